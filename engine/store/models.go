package store

import (
	"time"

	"github.com/ailegalmate/legalmate/engine/domain"
)

// InteractionRecord is one ask run.
type InteractionRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    string    `gorm:"index;not null"`
	Question  string    `gorm:"not null"`
	Response  string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"index"`
}

func (InteractionRecord) TableName() string { return "ai_interactions" }

func (r InteractionRecord) toDomain() domain.Interaction {
	return domain.Interaction{ID: r.ID, UserID: r.UserID, Question: r.Question, Response: r.Response, CreatedAt: r.CreatedAt}
}

// DocumentRecord is the relational copy of an indexed document.
type DocumentRecord struct {
	ID           string `gorm:"primaryKey"`
	UserID       string `gorm:"index;not null"`
	Title        string `gorm:"not null"`
	Content      string `gorm:"not null"`
	DocumentType string `gorm:"size:32"`
	CreatedAt    time.Time
}

func (DocumentRecord) TableName() string { return "documents" }

func (r DocumentRecord) toDomain() domain.IndexedDocument {
	return domain.IndexedDocument{
		ID:           r.ID,
		OwnerUserID:  r.UserID,
		Title:        r.Title,
		Text:         r.Content,
		DocumentType: r.DocumentType,
		CreatedAt:    r.CreatedAt,
	}
}

// AnalysisRecord is one analyze-contract run.
type AnalysisRecord struct {
	ID           string `gorm:"primaryKey;size:36"`
	UserID       string `gorm:"index;not null"`
	ContractText string `gorm:"not null"`
	Analysis     string `gorm:"not null"`
	CreatedAt    time.Time
}

func (AnalysisRecord) TableName() string { return "contract_analyses" }

// FormRecord is one generate-form run.
type FormRecord struct {
	ID         string         `gorm:"primaryKey;size:36"`
	UserID     string         `gorm:"index;not null"`
	FormType   string         `gorm:"not null"`
	Parameters map[string]any `gorm:"serializer:json"`
	Content    string         `gorm:"not null"`
	CreatedAt  time.Time
}

func (FormRecord) TableName() string { return "form_generations" }
