// Package domain defines core domain types, the error taxonomy, and input
// validation for the legal assistant pipeline. It acts as the validation gate
// at pipeline entry points.
package domain

import (
	"fmt"
	"time"
)

// Question is a user question submitted to the ask pipeline.
type Question struct {
	Text      string `json:"text"`
	Requester string `json:"requester"`
}

// Match is a single vector search hit carried into prompt assembly.
type Match struct {
	ID         string            `json:"id"`
	SourceText string            `json:"source_text"`
	Score      float32           `json:"score"`
	Metadata   map[string]string `json:"metadata"`
}

// GenerationResult is the text produced by the generation provider.
type GenerationResult struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

// GenerateOptions bounds a single generation call.
type GenerateOptions struct {
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
}

// Validate checks temperature is in [0,2] and MaxTokens is positive.
func (o GenerateOptions) Validate() error {
	if o.Temperature < 0 || o.Temperature > 2 {
		return fmt.Errorf("%w: temperature %.2f outside [0,2]", ErrInvalidOptions, o.Temperature)
	}
	if o.MaxTokens <= 0 {
		return fmt.Errorf("%w: max_tokens must be > 0, got %d", ErrInvalidOptions, o.MaxTokens)
	}
	return nil
}

// Interaction is the audit record of one completed ask run.
type Interaction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Question  string    `json:"question"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

// IndexedDocument is a user document whose embedding lives in the vector index.
type IndexedDocument struct {
	ID           string    `json:"id"`
	OwnerUserID  string    `json:"user_id"`
	Title        string    `json:"title"`
	Text         string    `json:"content"`
	DocumentType string    `json:"document_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// ContractAnalysis is the record of one analyze run.
type ContractAnalysis struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ContractText string    `json:"contract_text"`
	Analysis     string    `json:"analysis"`
	CreatedAt    time.Time `json:"created_at"`
}

// FormGeneration is the record of one generate-form run.
type FormGeneration struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	FormType   string         `json:"form_type"`
	Parameters map[string]any `json:"parameters"`
	Form       string         `json:"form"`
	CreatedAt  time.Time      `json:"created_at"`
}

// DocumentTypeLegal is the document_type assigned to uploaded documents.
const DocumentTypeLegal = "legal"

// DocumentID returns the vector key for a document uploaded by owner at t,
// in the form doc_<unix millis>_<owner>.
func DocumentID(t time.Time, owner string) string {
	return fmt.Sprintf("doc_%d_%s", t.UnixMilli(), owner)
}
