package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// querier is the subset of repo.Neo4jRepo the graph needs.
type querier interface {
	Query(ctx context.Context, cypher string, params map[string]any) ([]Statute, error)
	Create(ctx context.Context, s Statute) (Statute, error)
}

// StatuteGraph answers "which statutes relate to these keywords" from Neo4j.
type StatuteGraph struct {
	statutes querier
	limit    int
}

// DefaultRelatedLimit caps how many statutes Related returns.
const DefaultRelatedLimit = 5

// New creates a StatuteGraph over driver.
func New(driver neo4j.DriverWithContext) *StatuteGraph {
	return &StatuteGraph{statutes: newStatuteRepo(driver), limit: DefaultRelatedLimit}
}

const relatedCypher = `MATCH (s:Statute)
WHERE any(k IN $keywords WHERE k IN s.keywords)
OPTIONAL MATCH (s)-[:REFERS_TO]-(r:Statute)
WITH collect(DISTINCT s) + collect(DISTINCT r) AS found
UNWIND found AS n
RETURN DISTINCT n
LIMIT $limit`

// Related returns statutes tagged with any of keywords plus statutes they
// refer to (in either direction). Keywords are matched lower-cased.
func (g *StatuteGraph) Related(ctx context.Context, keywords []string) ([]Statute, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	kw := make([]any, len(keywords))
	for i, k := range keywords {
		kw[i] = strings.ToLower(k)
	}
	found, err := g.statutes.Query(ctx, relatedCypher, map[string]any{"keywords": kw, "limit": g.limit})
	if err != nil {
		return nil, fmt.Errorf("graph: related statutes: %w", err)
	}
	return found, nil
}

// Seed merges statutes and their REFERS_TO edges. Re-seeding is idempotent.
func (g *StatuteGraph) Seed(ctx context.Context, statutes []Statute) error {
	for _, s := range statutes {
		for i, k := range s.Keywords {
			s.Keywords[i] = strings.ToLower(k)
		}
		if _, err := g.statutes.Create(ctx, s); err != nil {
			return fmt.Errorf("graph: seed %s: %w", s.Code, err)
		}
	}
	for _, s := range statutes {
		for _, to := range s.RefersTo {
			cypher := `MATCH (a:Statute {code: $from}), (n:Statute {code: $to})
MERGE (a)-[:REFERS_TO]->(n)
RETURN n`
			if _, err := g.statutes.Query(ctx, cypher, map[string]any{"from": s.Code, "to": to}); err != nil {
				return fmt.Errorf("graph: link %s -> %s: %w", s.Code, to, err)
			}
		}
	}
	return nil
}

// Format renders statutes as a prompt context block.
func Format(statutes []Statute) string {
	if len(statutes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Related statutes:\n")
	for _, s := range statutes {
		fmt.Fprintf(&b, "- %s: %s", s.Code, s.Title)
		if s.Summary != "" {
			fmt.Fprintf(&b, " (%s)", s.Summary)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}
