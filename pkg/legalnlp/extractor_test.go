package legalnlp

import (
	"slices"
	"testing"
)

func TestCitations(t *testing.T) {
	tests := []struct {
		input    string
		wantKey  string
		wantCode string
	}{
		{"Apa syarat sah perjanjian menurut Pasal 1320 KUHPerdata?", "kuhperdata 1320", "KUHPerdata"},
		{"Is overtime regulated by UU No. 13 Tahun 2003?", "uu 13/2003", "UU"},
		{"Undang-Undang Nomor 11 Tahun 2020 tentang Cipta Kerja", "uu 11/2020", "UU"},
		{"Does PP No. 35/2021 cover fixed-term workers?", "pp 35/2021", "PP"},
		{"Pasal 362 KUHP tentang pencurian", "kuhp 362", "KUHP"},
		{"What does the BW say about leases?", "kuhperdata", "KUHPerdata"},
		{"Art. 1338 BW on freedom of contract", "kuhperdata 1338", "KUHPerdata"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Citations(tt.input)
			if len(got) == 0 {
				t.Fatalf("Citations(%q) = none", tt.input)
			}
			if got[0].Key() != tt.wantKey {
				t.Errorf("Key = %q, want %q", got[0].Key(), tt.wantKey)
			}
			if got[0].Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", got[0].Code, tt.wantCode)
			}
		})
	}
}

func TestCitationsEmpty(t *testing.T) {
	if got := Citations(""); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if got := Citations("Is this allowed under Indonesian law?"); len(got) != 0 {
		t.Errorf("bare 'law' should not cite, got %v", got)
	}
}

func TestCitationSpanAndConfidence(t *testing.T) {
	got := Citations("Menurut Pasal 1320 KUHPerdata, perjanjian harus sah")
	if len(got) != 1 {
		t.Fatalf("got %d citations", len(got))
	}
	c := got[0]
	if c.Span != "Pasal 1320 KUHPerdata" {
		t.Errorf("Span = %q", c.Span)
	}
	if c.Article != "1320" || c.Confidence != 0.95 {
		t.Errorf("citation = %+v", c)
	}
}

func TestLastArticle(t *testing.T) {
	start, article, ok := lastArticle("lihat Pasal 2 dan Pasal 1320 ")
	if !ok || article != "1320" || start != 18 {
		t.Errorf("got (%d, %q, %v)", start, article, ok)
	}
	if _, _, ok := lastArticle("tanpa rujukan "); ok {
		t.Error("expected no article")
	}
}

func TestCitationsDedupAndOrder(t *testing.T) {
	got := Citations("KUHPerdata and Pasal 1320 KUHPerdata and again Pasal 1320 KUHPerdata")
	if len(got) != 2 {
		t.Fatalf("got %d citations: %+v", len(got), got)
	}
	if got[0].Article != "1320" {
		t.Errorf("highest confidence first, got %+v", got[0])
	}
}

func TestKeywords(t *testing.T) {
	got := Keywords("What is required for a valid contract? Valid contract!")
	want := []string{"required", "valid", "contract"}
	if !slices.Equal(got, want) {
		t.Errorf("Keywords = %v, want %v", got, want)
	}
	if got := Keywords("apa itu di ke"); len(got) != 0 {
		t.Errorf("stop words only, got %v", got)
	}
}

func TestTerms(t *testing.T) {
	got := Terms("Pasal 1320 KUHPerdata syarat perjanjian")
	if len(got) == 0 || got[0] != "kuhperdata 1320" {
		t.Fatalf("Terms = %v", got)
	}
	if !slices.Contains(got, "perjanjian") {
		t.Errorf("Terms should include plain keywords, got %v", got)
	}
}
