package graph

import (
	"github.com/ailegalmate/legalmate/pkg/repo"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// newStatuteRepo creates a Neo4j-backed repository for Statute nodes keyed by code.
func newStatuteRepo(driver neo4j.DriverWithContext) *repo.Neo4jRepo[Statute, string] {
	return repo.NewNeo4jRepo[Statute, string](
		driver,
		"Statute",
		statuteToMap,
		statuteFromRecord,
		repo.WithIDKey[Statute, string]("code"),
	)
}

func statuteToMap(s Statute) map[string]any {
	kw := make([]any, len(s.Keywords))
	for i, k := range s.Keywords {
		kw[i] = k
	}
	return map[string]any{
		"code":         s.Code,
		"title":        s.Title,
		"summary":      s.Summary,
		"jurisdiction": s.Jurisdiction,
		"keywords":     kw,
	}
}

func statuteFromRecord(rec *neo4j.Record) (Statute, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return Statute{}, err
	}
	return statuteFromProps(node.Props), nil
}

func statuteFromProps(props map[string]any) Statute {
	s := Statute{
		Code:         strProp(props, "code"),
		Title:        strProp(props, "title"),
		Summary:      strProp(props, "summary"),
		Jurisdiction: strProp(props, "jurisdiction"),
	}
	switch kw := props["keywords"].(type) {
	case []any:
		for _, k := range kw {
			if str, ok := k.(string); ok {
				s.Keywords = append(s.Keywords, str)
			}
		}
	case []string:
		s.Keywords = append(s.Keywords, kw...)
	}
	return s
}

func strProp(props map[string]any, key string) string {
	if v, ok := props[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
