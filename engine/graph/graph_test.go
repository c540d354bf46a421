package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

type fakeQuerier struct {
	rows    []Statute
	err     error
	cyphers []string
	params  []map[string]any
	created []Statute
}

func (f *fakeQuerier) Query(_ context.Context, cypher string, params map[string]any) ([]Statute, error) {
	f.cyphers = append(f.cyphers, cypher)
	f.params = append(f.params, params)
	return f.rows, f.err
}

func (f *fakeQuerier) Create(_ context.Context, s Statute) (Statute, error) {
	if f.err != nil {
		return Statute{}, f.err
	}
	f.created = append(f.created, s)
	return s, nil
}

func TestRelated(t *testing.T) {
	q := &fakeQuerier{rows: []Statute{{Code: "KUHPer-1320", Title: "Conditions for a valid agreement"}}}
	g := &StatuteGraph{statutes: q, limit: 3}

	got, err := g.Related(context.Background(), []string{"Contract", "valid"})
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if len(got) != 1 || got[0].Code != "KUHPer-1320" {
		t.Fatalf("got %+v", got)
	}
	kw := q.params[0]["keywords"].([]any)
	if kw[0] != "contract" || kw[1] != "valid" {
		t.Fatalf("keywords = %v", kw)
	}
	if q.params[0]["limit"] != 3 {
		t.Fatalf("limit = %v", q.params[0]["limit"])
	}
	if !strings.Contains(q.cyphers[0], "REFERS_TO") {
		t.Fatal("expected neighbour expansion")
	}
}

func TestRelated_NoKeywordsSkipsQuery(t *testing.T) {
	q := &fakeQuerier{}
	g := &StatuteGraph{statutes: q, limit: 3}
	got, err := g.Related(context.Background(), nil)
	if err != nil || got != nil || len(q.cyphers) != 0 {
		t.Fatalf("got %v, %v, %d queries", got, err, len(q.cyphers))
	}
}

func TestRelated_Error(t *testing.T) {
	g := &StatuteGraph{statutes: &fakeQuerier{err: errors.New("neo4j down")}, limit: 3}
	if _, err := g.Related(context.Background(), []string{"lease"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSeed(t *testing.T) {
	q := &fakeQuerier{}
	g := &StatuteGraph{statutes: q, limit: 3}
	err := g.Seed(context.Background(), []Statute{
		{Code: "A", Keywords: []string{"Lease"}, RefersTo: []string{"B"}},
		{Code: "B", Keywords: []string{"rent"}},
	})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if len(q.created) != 2 || q.created[0].Keywords[0] != "lease" {
		t.Fatalf("created = %+v", q.created)
	}
	if len(q.cyphers) != 1 || q.params[0]["from"] != "A" || q.params[0]["to"] != "B" {
		t.Fatalf("links = %v %v", q.cyphers, q.params)
	}

	g = &StatuteGraph{statutes: &fakeQuerier{err: errors.New("fail")}}
	if err := g.Seed(context.Background(), []Statute{{Code: "A"}}); err == nil {
		t.Fatal("expected error")
	}
}

func TestFormat(t *testing.T) {
	if Format(nil) != "" {
		t.Fatal("empty input should format to empty string")
	}
	got := Format([]Statute{
		{Code: "KUHPer-1320", Title: "Valid agreements", Summary: "consent, capacity, object, lawful cause"},
		{Code: "KUHPer-1338", Title: "Binding force"},
	})
	want := "Related statutes:\n- KUHPer-1320: Valid agreements (consent, capacity, object, lawful cause)\n- KUHPer-1338: Binding force"
	if got != want {
		t.Fatalf("Format =\n%q\nwant\n%q", got, want)
	}
}

func TestStatuteFromRecord(t *testing.T) {
	rec := &neo4j.Record{
		Keys: []string{"n"},
		Values: []any{dbtype.Node{Props: map[string]any{
			"code":     "UU-13-2003",
			"title":    "Manpower",
			"keywords": []any{"employment", "wages"},
		}}},
	}
	s, err := statuteFromRecord(rec)
	if err != nil {
		t.Fatalf("statuteFromRecord: %v", err)
	}
	if s.Code != "UU-13-2003" || len(s.Keywords) != 2 || s.Keywords[1] != "wages" {
		t.Fatalf("got %+v", s)
	}

	bad := &neo4j.Record{Keys: []string{"n"}, Values: []any{"not a node"}}
	if _, err := statuteFromRecord(bad); err == nil {
		t.Fatal("expected error for non-node value")
	}
}

func TestStatuteToMap(t *testing.T) {
	m := statuteToMap(Statute{Code: "A", Title: "T", Keywords: []string{"x"}})
	if m["code"] != "A" || m["title"] != "T" {
		t.Fatalf("map = %v", m)
	}
	if kw, ok := m["keywords"].([]any); !ok || kw[0] != "x" {
		t.Fatalf("keywords = %v", m["keywords"])
	}
	back := statuteFromProps(m)
	if back.Code != "A" || back.Keywords[0] != "x" {
		t.Fatalf("round trip = %+v", back)
	}
}
