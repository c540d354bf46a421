package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// GormRepo is a generic gorm-backed repository. T must be a gorm model.
type GormRepo[T any, ID comparable] struct {
	db       *gorm.DB
	idColumn string
}

// NewGormRepo creates a repository over db. The primary key column is "id".
func NewGormRepo[T any, ID comparable](db *gorm.DB) *GormRepo[T, ID] {
	return &GormRepo[T, ID]{db: db, idColumn: "id"}
}

var _ Repository[struct{}, string] = (*GormRepo[struct{}, string])(nil)

func (r *GormRepo[T, ID]) Get(ctx context.Context, id ID) (T, error) {
	var e T
	err := r.db.WithContext(ctx).Where(r.idColumn+" = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return e, fmt.Errorf("%w: %v", ErrNotFound, id)
	}
	return e, err
}

func (r *GormRepo[T, ID]) List(ctx context.Context, opts ListOpts) ([]T, error) {
	q := r.db.WithContext(ctx).Model(new(T))
	if len(opts.Filter) > 0 {
		q = q.Where(opts.Filter)
	}
	if opts.Order != "" {
		q = q.Order(opts.Order)
	}
	items := []T{}
	if err := q.Offset(opts.Offset).Limit(opts.limit()).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo[T, ID]) Create(ctx context.Context, entity T) (T, error) {
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		var zero T
		return zero, err
	}
	return entity, nil
}

func (r *GormRepo[T, ID]) Update(ctx context.Context, entity T) (T, error) {
	if err := r.db.WithContext(ctx).Save(&entity).Error; err != nil {
		var zero T
		return zero, err
	}
	return entity, nil
}

func (r *GormRepo[T, ID]) Delete(ctx context.Context, id ID) error {
	res := r.db.WithContext(ctx).Where(r.idColumn+" = ?", id).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %v", ErrNotFound, id)
	}
	return nil
}
