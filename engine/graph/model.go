// Package graph provides Neo4j statute graph lookups used to enrich legal
// questions with related statutory provisions.
package graph

// Statute is one statutory provision node.
type Statute struct {
	Code         string   `json:"code" yaml:"code"`
	Title        string   `json:"title" yaml:"title"`
	Summary      string   `json:"summary" yaml:"summary"`
	Jurisdiction string   `json:"jurisdiction" yaml:"jurisdiction"`
	Keywords     []string `json:"keywords" yaml:"keywords"`
	RefersTo     []string `json:"refers_to,omitempty" yaml:"refers_to"`
}
