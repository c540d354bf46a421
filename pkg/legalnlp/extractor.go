// Package legalnlp extracts statute citations and search keywords from
// unstructured legal questions using regex patterns and a table of
// Indonesian code abbreviations.
package legalnlp

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/ailegalmate/legalmate/pkg/fn"
)

// Citation represents an extracted statute reference.
type Citation struct {
	Code       string  // canonical code, e.g. "KUHPerdata" or "UU"
	Article    string  // "1320" for Pasal 1320; empty if not cited
	Number     int     // law number for UU/PP citations, 0 if absent
	Year       int     // enactment year, 0 if absent
	Confidence float64 // 0.0-1.0
	Span       string  // the matched text fragment
}

// Key is the lower-cased lookup key used to tag statutes in the graph,
// e.g. "kuhperdata 1320" or "uu 13/2003".
func (c Citation) Key() string {
	switch {
	case c.Article != "":
		return strings.ToLower(c.Code + " " + c.Article)
	case c.Number > 0 && c.Year > 0:
		return strings.ToLower(fmt.Sprintf("%s %d/%d", c.Code, c.Number, c.Year))
	case c.Number > 0:
		return strings.ToLower(fmt.Sprintf("%s %d", c.Code, c.Number))
	default:
		return strings.ToLower(c.Code)
	}
}

// codeAliases maps abbreviations and long forms to canonical code names.
var codeAliases = map[string]string{
	"kuhperdata":                        "KUHPerdata",
	"kuh perdata":                       "KUHPerdata",
	"bw":                                "KUHPerdata",
	"burgerlijk wetboek":                "KUHPerdata",
	"kitab undang-undang hukum perdata": "KUHPerdata",
	"civil code":                        "KUHPerdata",
	"kuhp":                              "KUHP",
	"kitab undang-undang hukum pidana":  "KUHP",
	"criminal code":                     "KUHP",
	"kuhd":                              "KUHD",
	"kitab undang-undang hukum dagang":  "KUHD",
	"commercial code":                   "KUHD",
	"kuhap":                             "KUHAP",
	"uu":                                "UU",
	"undang-undang":                     "UU",
	"law":                               "UU",
	"pp":                                "PP",
	"peraturan pemerintah":              "PP",
	"government regulation":             "PP",
	"perpres":                           "Perpres",
	"peraturan presiden":                "Perpres",
}

var (
	codeRe *regexp.Regexp
	// articleRe matches "Pasal 1320" / "Article 1320" / "Art. 1320".
	articleRe = regexp.MustCompile(`(?i)\b(?:pasal|article|art\.)\s*(\d+[a-z]?)\b`)
	// numberRe matches "No. 13 Tahun 2003", "Nomor 11 Tahun 2020", "No. 13/2003", "Number 13 of 2003".
	numberRe = regexp.MustCompile(`(?i)^\s*(?:no\.?|nomor|number)\s*(\d+)(?:\s*(?:/|tahun|of)\s*((?:19|20)\d{2}))?`)
)

func init() {
	names := make([]string, 0, len(codeAliases))
	for alias := range codeAliases {
		names = append(names, regexp.QuoteMeta(alias))
	}
	// Longest first so "kuhperdata" wins over "kuhp".
	slices.SortFunc(names, func(a, b string) int { return len(b) - len(a) })
	codeRe = regexp.MustCompile(`(?i)\b(` + strings.Join(names, "|") + `)\b`)
}

// Citations finds all statute citations in text, sorted by confidence.
// Duplicate citations are reported once.
func Citations(text string) []Citation {
	if text == "" {
		return nil
	}
	var out []Citation
	seen := make(map[string]bool)

	for _, loc := range codeRe.FindAllStringSubmatchIndex(text, -1) {
		code := codeAliases[strings.ToLower(text[loc[2]:loc[3]])]
		if code == "" {
			continue
		}
		c := Citation{Code: code, Confidence: 0.5}
		spanStart, spanEnd := loc[0], loc[1]

		// "Pasal 1320 KUHPerdata": article up to 20 chars before the code.
		beforeStart := max(0, loc[0]-20)
		if start, article, ok := lastArticle(text[beforeStart:loc[0]]); ok {
			c.Article = article
			spanStart = beforeStart + start
		}

		// "UU No. 13 Tahun 2003": number and year right after the code.
		if m := numberRe.FindStringSubmatchIndex(text[loc[1]:]); m != nil {
			c.Number, _ = strconv.Atoi(text[loc[1]+m[2] : loc[1]+m[3]])
			if m[4] >= 0 {
				c.Year, _ = strconv.Atoi(text[loc[1]+m[4] : loc[1]+m[5]])
			}
			spanEnd = loc[1] + m[1]
		}

		switch {
		case c.Article != "":
			c.Confidence = 0.95
		case c.Number > 0 && c.Year > 0:
			c.Confidence = 0.9
		case c.Number > 0:
			c.Confidence = 0.7
		case isGenericAlias(text[loc[2]:loc[3]]):
			// A bare "law" or "uu" says nothing about which statute.
			continue
		}
		c.Span = strings.TrimSpace(text[spanStart:spanEnd])

		if seen[c.Key()] {
			continue
		}
		seen[c.Key()] = true
		out = append(out, c)
	}

	slices.SortStableFunc(out, func(a, b Citation) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		}
		return 0
	})
	return out
}

// lastArticle returns the start offset and article number of the last
// article reference in s.
func lastArticle(s string) (start int, article string, ok bool) {
	locs := articleRe.FindAllStringSubmatchIndex(s, -1)
	if len(locs) == 0 {
		return 0, "", false
	}
	l := locs[len(locs)-1]
	return l[0], s[l[2]:l[3]], true
}

func isGenericAlias(s string) bool {
	switch strings.ToLower(s) {
	case "law", "uu", "undang-undang", "pp":
		return true
	}
	return false
}

var stopWords = map[string]bool{
	// English
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "to": true,
	"of": true, "in": true, "for": true, "on": true, "with": true,
	"at": true, "by": true, "from": true, "as": true, "into": true,
	"what": true, "where": true, "when": true, "how": true, "which": true,
	"who": true, "this": true, "that": true, "these": true, "those": true,
	"i": true, "me": true, "my": true, "it": true, "its": true,
	"and": true, "but": true, "or": true, "not": true, "there": true,
	// Indonesian
	"yang": true, "dan": true, "di": true, "ke": true, "dari": true,
	"untuk": true, "dengan": true, "pada": true, "adalah": true, "apa": true,
	"bagaimana": true, "apakah": true, "saya": true, "ini": true, "itu": true,
	"atau": true, "tidak": true, "dalam": true, "akan": true, "bisa": true,
}

// Keywords splits text into lower-cased search terms, dropping stop words,
// words of two letters or fewer, and repeats.
func Keywords(text string) []string {
	words := fn.Map(strings.Fields(strings.ToLower(text)), func(w string) string {
		return strings.Trim(w, "?.,!;:'\"()")
	})
	return fn.Unique(fn.Filter(words, func(w string) bool {
		return len(w) > 2 && !stopWords[w]
	}))
}

// Terms returns the graph lookup terms for text: citation keys first,
// then plain keywords.
func Terms(text string) []string {
	keys := fn.Map(Citations(text), Citation.Key)
	return fn.Unique(append(keys, Keywords(text)...))
}
