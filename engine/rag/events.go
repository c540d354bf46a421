package rag

import (
	"context"
	"time"
)

// Event subjects, relative to the publisher's prefix.
const (
	SubjectInteractionRecorded = "interaction.recorded"
	SubjectDocumentIndexed     = "document.indexed"
	SubjectAnalysisRecorded    = "analysis.recorded"
)

// Event announces a stored record. It never carries question, contract or
// document text.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Variant   string    `json:"variant"`
	CreatedAt time.Time `json:"created_at"`
}

// publish sends ev when a publisher is configured. Failures are logged.
func (s *Service) publish(ctx context.Context, subject string, ev Event) {
	if s.deps.Events == nil {
		return
	}
	if err := s.deps.Events.Publish(ctx, subject, ev); err != nil {
		s.logger.Warn("rag: publish event failed", "subject", subject, "id", ev.ID, "err", err)
		s.metrics.publishFailure(subject).Inc()
	}
}
