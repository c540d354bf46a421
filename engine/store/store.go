// Package store persists interactions, documents, contract analyses and
// generated forms in a relational database through gorm.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ailegalmate/legalmate/engine/domain"
	"github.com/ailegalmate/legalmate/pkg/repo"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Interaction history page bounds.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Store owns the relational tables. All saves are append-only.
type Store struct {
	db           *gorm.DB
	interactions *repo.GormRepo[InteractionRecord, string]
	documents    *repo.GormRepo[DocumentRecord, string]
	analyses     *repo.GormRepo[AnalysisRecord, string]
	forms        *repo.GormRepo[FormRecord, string]
	now          func() time.Time
}

// Open opens (or creates) the SQLite database at path and migrates it.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite %s: %w", path, err)
	}
	return New(db)
}

// New wraps an existing gorm connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&InteractionRecord{}, &DocumentRecord{}, &AnalysisRecord{}, &FormRecord{}); err != nil {
		return nil, fmt.Errorf("store: automigrate: %w", err)
	}
	return &Store{
		db:           db,
		interactions: repo.NewGormRepo[InteractionRecord, string](db),
		documents:    repo.NewGormRepo[DocumentRecord, string](db),
		analyses:     repo.NewGormRepo[AnalysisRecord, string](db),
		forms:        repo.NewGormRepo[FormRecord, string](db),
		now:          time.Now,
	}, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return s.now().UTC()
	}
	return t.UTC()
}

// SaveInteraction appends one interaction and returns its id.
func (s *Store) SaveInteraction(ctx context.Context, userID, question, response string, createdAt time.Time) (string, error) {
	rec, err := s.interactions.Create(ctx, InteractionRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		Question:  question,
		Response:  response,
		CreatedAt: s.stamp(createdAt),
	})
	if err != nil {
		return "", fmt.Errorf("store: save interaction: %w", err)
	}
	return rec.ID, nil
}

// Interactions lists a user's interactions, newest first. limit is clamped
// to [1, MaxHistoryLimit]; zero or negative means DefaultHistoryLimit.
func (s *Store) Interactions(ctx context.Context, userID string, limit int) ([]domain.Interaction, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	recs, err := s.interactions.List(ctx, repo.ListOpts{
		Limit:  limit,
		Filter: map[string]any{"user_id": userID},
		Order:  "created_at desc",
	})
	if err != nil {
		return nil, fmt.Errorf("store: list interactions: %w", err)
	}
	out := make([]domain.Interaction, len(recs))
	for i, r := range recs {
		out[i] = r.toDomain()
	}
	return out, nil
}

// SaveDocument records an uploaded document. An empty DocumentType
// defaults to domain.DocumentTypeLegal.
func (s *Store) SaveDocument(ctx context.Context, doc domain.IndexedDocument) (domain.IndexedDocument, error) {
	if doc.DocumentType == "" {
		doc.DocumentType = domain.DocumentTypeLegal
	}
	rec, err := s.documents.Create(ctx, DocumentRecord{
		ID:           doc.ID,
		UserID:       doc.OwnerUserID,
		Title:        doc.Title,
		Content:      doc.Text,
		DocumentType: doc.DocumentType,
		CreatedAt:    s.stamp(doc.CreatedAt),
	})
	if err != nil {
		if _, gerr := s.documents.Get(ctx, doc.ID); gerr == nil {
			return domain.IndexedDocument{}, fmt.Errorf("store: save document %s: %w", doc.ID, domain.ErrDuplicateID)
		}
		return domain.IndexedDocument{}, fmt.Errorf("store: save document %s: %w", doc.ID, err)
	}
	return rec.toDomain(), nil
}

// DeleteDocument removes a document record.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	if err := s.documents.Delete(ctx, id); err != nil {
		return fmt.Errorf("store: delete document %s: %w", id, err)
	}
	return nil
}

// Document fetches a stored document by id.
func (s *Store) Document(ctx context.Context, id string) (domain.IndexedDocument, error) {
	rec, err := s.documents.Get(ctx, id)
	if err != nil {
		return domain.IndexedDocument{}, fmt.Errorf("store: get document: %w", err)
	}
	return rec.toDomain(), nil
}

// SaveAnalysis appends one contract analysis and returns its id.
func (s *Store) SaveAnalysis(ctx context.Context, a domain.ContractAnalysis) (string, error) {
	rec, err := s.analyses.Create(ctx, AnalysisRecord{
		ID:           uuid.NewString(),
		UserID:       a.UserID,
		ContractText: a.ContractText,
		Analysis:     a.Analysis,
		CreatedAt:    s.stamp(a.CreatedAt),
	})
	if err != nil {
		return "", fmt.Errorf("store: save analysis: %w", err)
	}
	return rec.ID, nil
}

// SaveForm appends one generated form and returns its id.
func (s *Store) SaveForm(ctx context.Context, f domain.FormGeneration) (string, error) {
	rec, err := s.forms.Create(ctx, FormRecord{
		ID:         uuid.NewString(),
		UserID:     f.UserID,
		FormType:   f.FormType,
		Parameters: f.Parameters,
		Content:    f.Form,
		CreatedAt:  s.stamp(f.CreatedAt),
	})
	if err != nil {
		return "", fmt.Errorf("store: save form: %w", err)
	}
	return rec.ID, nil
}
