// Package repo defines the generic Repository interface and its gorm and
// Neo4j implementations.
package repo

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no entity matches the requested id.
var ErrNotFound = errors.New("repo: not found")

// Repository is a generic CRUD interface.
type Repository[T any, ID comparable] interface {
	Get(ctx context.Context, id ID) (T, error)
	List(ctx context.Context, opts ListOpts) ([]T, error)
	Create(ctx context.Context, entity T) (T, error)
	Update(ctx context.Context, entity T) (T, error)
	Delete(ctx context.Context, id ID) error
}

// ListOpts controls pagination, filtering and ordering for List operations.
// Filter keys are column (or property) names matched by equality.
type ListOpts struct {
	Offset int
	Limit  int
	Filter map[string]any
	Order  string
}

const defaultListLimit = 100

func (o ListOpts) limit() int {
	if o.Limit <= 0 {
		return defaultListLimit
	}
	return o.Limit
}
