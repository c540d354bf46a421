package repo

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// result is the minimal interface needed from a neo4j result.
type result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// runner is the minimal interface needed from a neo4j session.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (result, error)
	Close(ctx context.Context) error
}

// Neo4jRepo is a generic Neo4j-backed repository over nodes with one label.
type Neo4jRepo[T any, ID comparable] struct {
	driver     neo4j.DriverWithContext
	label      string
	idKey      string
	toMap      func(T) map[string]any
	fromRecord func(*neo4j.Record) (T, error)
	newSession func(ctx context.Context) runner // for testing
}

// Neo4jOption configures a Neo4jRepo.
type Neo4jOption[T any, ID comparable] func(*Neo4jRepo[T, ID])

// WithIDKey sets the property name used as the ID (default "id").
func WithIDKey[T any, ID comparable](key string) Neo4jOption[T, ID] {
	return func(r *Neo4jRepo[T, ID]) { r.idKey = key }
}

// NewNeo4jRepo creates a new Neo4j-backed repository.
func NewNeo4jRepo[T any, ID comparable](
	driver neo4j.DriverWithContext,
	label string,
	toMap func(T) map[string]any,
	fromRecord func(*neo4j.Record) (T, error),
	opts ...Neo4jOption[T, ID],
) *Neo4jRepo[T, ID] {
	r := &Neo4jRepo[T, ID]{
		driver:     driver,
		label:      label,
		idKey:      "id",
		toMap:      toMap,
		fromRecord: fromRecord,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

var _ Repository[any, string] = (*Neo4jRepo[any, string])(nil)

type neo4jSessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *neo4jSessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *neo4jSessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

func (r *Neo4jRepo[T, ID]) session(ctx context.Context) runner {
	if r.newSession != nil {
		return r.newSession(ctx)
	}
	return &neo4jSessionAdapter{sess: r.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

// Query runs a read cypher statement and decodes every row with the
// repository's record decoder.
func (r *Neo4jRepo[T, ID]) Query(ctx context.Context, cypher string, params map[string]any) ([]T, error) {
	sess := r.session(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("repo: query %s: %w", r.label, err)
	}
	items := []T{}
	for res.Next(ctx) {
		item, err := r.fromRecord(res.Record())
		if err != nil {
			return nil, fmt.Errorf("repo: decode %s: %w", r.label, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *Neo4jRepo[T, ID]) Get(ctx context.Context, id ID) (T, error) {
	var zero T
	cypher := fmt.Sprintf("MATCH (n:%s {%s: $id}) RETURN n", r.label, r.idKey)
	items, err := r.Query(ctx, cypher, map[string]any{"id": id})
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, fmt.Errorf("%w: %s %v", ErrNotFound, r.label, id)
	}
	return items[0], nil
}

func (r *Neo4jRepo[T, ID]) List(ctx context.Context, opts ListOpts) ([]T, error) {
	where := ""
	params := map[string]any{"offset": opts.Offset, "limit": opts.limit()}
	if len(opts.Filter) > 0 {
		where = " WHERE all(k IN keys($filter) WHERE n[k] = $filter[k])"
		params["filter"] = opts.Filter
	}
	order := ""
	if opts.Order != "" {
		order = " ORDER BY n." + opts.Order
	}
	cypher := fmt.Sprintf("MATCH (n:%s)%s RETURN n%s SKIP $offset LIMIT $limit", r.label, where, order)
	return r.Query(ctx, cypher, params)
}

// Create merges on the id property so re-seeding a node is idempotent.
func (r *Neo4jRepo[T, ID]) Create(ctx context.Context, entity T) (T, error) {
	var zero T
	props := r.toMap(entity)
	cypher := fmt.Sprintf("MERGE (n:%s {%s: $id}) SET n += $props RETURN n", r.label, r.idKey)
	items, err := r.Query(ctx, cypher, map[string]any{"id": props[r.idKey], "props": props})
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, fmt.Errorf("repo: create %s returned no rows", r.label)
	}
	return items[0], nil
}

func (r *Neo4jRepo[T, ID]) Update(ctx context.Context, entity T) (T, error) {
	var zero T
	props := r.toMap(entity)
	cypher := fmt.Sprintf("MATCH (n:%s {%s: $id}) SET n += $props RETURN n", r.label, r.idKey)
	items, err := r.Query(ctx, cypher, map[string]any{"id": props[r.idKey], "props": props})
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, fmt.Errorf("%w: %s %v", ErrNotFound, r.label, props[r.idKey])
	}
	return items[0], nil
}

func (r *Neo4jRepo[T, ID]) Delete(ctx context.Context, id ID) error {
	sess := r.session(ctx)
	defer sess.Close(ctx)

	cypher := fmt.Sprintf("MATCH (n:%s {%s: $id}) DETACH DELETE n", r.label, r.idKey)
	if _, err := sess.Run(ctx, cypher, map[string]any{"id": id}); err != nil {
		return fmt.Errorf("repo: delete %s: %w", r.label, err)
	}
	return nil
}
