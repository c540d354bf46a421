// Package rag orchestrates the legal question pipeline. It validates input,
// embeds the question, retrieves related passages, optionally enriches the
// context with statutes from the knowledge graph, generates an answer, and
// records the interaction without blocking the caller. Sibling variants
// analyze contracts, generate forms, and index uploaded documents.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ailegalmate/legalmate/engine/domain"
	"github.com/ailegalmate/legalmate/engine/graph"
	"github.com/ailegalmate/legalmate/engine/semantic"
	"github.com/ailegalmate/legalmate/pkg/fn"
	"github.com/ailegalmate/legalmate/pkg/legalnlp"
	"github.com/ailegalmate/legalmate/pkg/metrics"
	"github.com/ailegalmate/legalmate/pkg/resilience"
)

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces a completion for a system and user prompt.
type Generator interface {
	Generate(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error)
}

// VectorIndex stores and searches document embeddings.
type VectorIndex interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	Query(ctx context.Context, vector []float32, topK int) ([]domain.Match, error)
}

// Store persists pipeline records.
type Store interface {
	SaveInteraction(ctx context.Context, userID, question, response string, createdAt time.Time) (string, error)
	Interactions(ctx context.Context, userID string, limit int) ([]domain.Interaction, error)
	SaveDocument(ctx context.Context, doc domain.IndexedDocument) (domain.IndexedDocument, error)
	DeleteDocument(ctx context.Context, id string) error
	SaveAnalysis(ctx context.Context, a domain.ContractAnalysis) (string, error)
	SaveForm(ctx context.Context, f domain.FormGeneration) (string, error)
}

// StatuteFinder optionally looks up statutes related to search terms.
type StatuteFinder interface {
	Related(ctx context.Context, terms []string) ([]graph.Statute, error)
}

// EventPublisher optionally announces completed records.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, event any) error
}

// Deps are the collaborators of a Service. Statutes, Events and Metrics
// may be nil.
type Deps struct {
	Embedder  Embedder
	Generator Generator
	Index     VectorIndex
	Store     Store
	Statutes  StatuteFinder
	Events    EventPublisher
	Metrics   *metrics.Registry
}

// Options configures the pipeline behaviour.
type Options struct {
	TopK           int
	CallTimeout    time.Duration // per upstream call
	PersistTimeout time.Duration // per best-effort save
	Profiles       Profiles
	// Breaker configures one circuit breaker per upstream. nil disables them.
	Breaker *resilience.BreakerOpts
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		TopK:           5,
		CallTimeout:    30 * time.Second,
		PersistTimeout: 10 * time.Second,
		Profiles:       DefaultProfiles(DefaultJurisdiction),
	}
}

var (
	// errEmptyCompletion is returned when the provider answers with no text.
	errEmptyCompletion = errors.New("empty completion")
	// ErrClosed is logged for saves submitted after Close.
	ErrClosed = errors.New("rag: service closed")
)

type upsertReq struct {
	id       string
	vector   []float32
	metadata map[string]string
}

type genReq struct {
	profile Profile
	user    string
}

// Service is the pipeline orchestration service.
type Service struct {
	deps    Deps
	opts    Options
	logger  *slog.Logger
	metrics *pipelineMetrics

	embed    fn.Stage[string, []float32]
	query    fn.Stage[[]float32, []domain.Match]
	upsert   fn.Stage[upsertReq, struct{}]
	generate fn.Stage[genReq, string]
	retrieve fn.Stage[string, []domain.Match]

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
	now     func() time.Time
}

// New creates a Service. Embedder, Generator, Index and Store are required.
func New(deps Deps, opts Options, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Embedder == nil || deps.Generator == nil || deps.Index == nil || deps.Store == nil {
		return nil, errors.New("rag: embedder, generator, index and store are required")
	}
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("rag: %w: %d", semantic.ErrInvalidTopK, opts.TopK)
	}
	if err := opts.Profiles.Validate(); err != nil {
		return nil, err
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = DefaultOptions().PersistTimeout
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	s := &Service{
		deps:    deps,
		opts:    opts,
		logger:  logger,
		metrics: newPipelineMetrics(deps.Metrics),
		now:     time.Now,
	}

	s.embed = upstreamStage(s, "embed", func(ctx context.Context, text string) ([]float32, error) {
		return deps.Embedder.Embed(ctx, text)
	})
	s.query = upstreamStage(s, "index_query", func(ctx context.Context, vec []float32) ([]domain.Match, error) {
		return deps.Index.Query(ctx, vec, opts.TopK)
	})
	s.upsert = upstreamStage(s, "index_upsert", func(ctx context.Context, r upsertReq) (struct{}, error) {
		return struct{}{}, deps.Index.Upsert(ctx, r.id, r.vector, r.metadata)
	})
	s.generate = upstreamStage(s, "generate", func(ctx context.Context, r genReq) (string, error) {
		text, err := deps.Generator.Generate(ctx, r.profile.SystemPrompt, r.user, r.profile.Options.Temperature, r.profile.Options.MaxTokens)
		if err == nil && text == "" {
			err = errEmptyCompletion
		}
		return text, err
	})
	s.retrieve = fn.Then(s.embed, s.query)
	return s, nil
}

// upstreamStage wraps one external call: traced, classified as an
// UpstreamError, guarded by its own breaker, and bounded by CallTimeout.
func upstreamStage[In, Out any](s *Service, op string, f func(context.Context, In) (Out, error)) fn.Stage[In, Out] {
	var b *resilience.Breaker
	if s.opts.Breaker != nil {
		bo := *s.opts.Breaker
		bo.Name = op
		if bo.IsFailure == nil {
			bo.IsFailure = resilience.IgnoreCanceled
		}
		bo.OnStateChange = func(name string, from, to resilience.State) {
			s.logger.Warn("rag: breaker state change", "upstream", name, "from", from.String(), "to", to.String())
			s.metrics.breakerState(name).Set(int64(to))
		}
		b = resilience.NewBreaker(bo)
	}
	wrap := func(err error) error { return domain.Upstream(op, err) }
	return fn.TracedStage("rag."+op, fn.WrapErr(wrap, resilience.BreakerStage(b, fn.Timeout(s.opts.CallTimeout, fn.Lift(f)))))
}

// Wait blocks until all outstanding best-effort saves have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close stops accepting best-effort saves and waits for the outstanding
// ones. Saves submitted afterwards are dropped and logged.
func (s *Service) Close() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.wg.Wait()
}

// Ask answers a legal question with retrieved context.
func (s *Service) Ask(ctx context.Context, q domain.Question) (string, error) {
	start := s.now()
	answer, err := s.ask(ctx, q, start)
	s.metrics.observe(variantAsk, start, err)
	return answer, err
}

func (s *Service) ask(ctx context.Context, q domain.Question, start time.Time) (string, error) {
	if err := domain.ValidateQuestion(q); err != nil {
		return "", err
	}
	s.logger.Info("rag ask start", "user_id", q.Requester, "question_len", len(q.Text))

	matches, err := s.retrieve(ctx, q.Text).Unwrap()
	if err != nil {
		return "", err
	}

	parts := contextParts(matches)
	if s.deps.Statutes != nil {
		if block := s.statuteContext(ctx, q.Text); block != "" {
			parts = append(parts, block)
		}
	}

	answer, err := s.generate(ctx, genReq{profile: s.opts.Profiles.Ask, user: askPrompt(q.Text, parts)}).Unwrap()
	if err != nil {
		return "", err
	}
	s.logger.Info("rag ask done", "user_id", q.Requester, "matches", len(matches))

	s.detach(ctx, "save interaction", func(ctx context.Context) error {
		id, err := s.deps.Store.SaveInteraction(ctx, q.Requester, q.Text, answer, start)
		if err != nil {
			return err
		}
		s.publish(ctx, SubjectInteractionRecorded, Event{ID: id, UserID: q.Requester, Variant: variantAsk, CreatedAt: start})
		return nil
	})
	return answer, nil
}

// AnalyzeContract summarizes clauses, risks, obligations and compliance
// issues of contractText. No retrieval is involved.
func (s *Service) AnalyzeContract(ctx context.Context, userID, contractText string) (string, error) {
	start := s.now()
	analysis, err := s.analyze(ctx, userID, contractText, start)
	s.metrics.observe(variantAnalyze, start, err)
	return analysis, err
}

func (s *Service) analyze(ctx context.Context, userID, contractText string, start time.Time) (string, error) {
	if err := domain.ValidateContract(contractText); err != nil {
		return "", err
	}
	s.logger.Info("rag analyze start", "user_id", userID, "contract_len", len(contractText))

	analysis, err := s.generate(ctx, genReq{profile: s.opts.Profiles.Analyze, user: analyzePrompt(contractText)}).Unwrap()
	if err != nil {
		return "", err
	}

	s.detach(ctx, "save analysis", func(ctx context.Context) error {
		id, err := s.deps.Store.SaveAnalysis(ctx, domain.ContractAnalysis{
			UserID:       userID,
			ContractText: contractText,
			Analysis:     analysis,
			CreatedAt:    start,
		})
		if err != nil {
			return err
		}
		s.publish(ctx, SubjectAnalysisRecorded, Event{ID: id, UserID: userID, Variant: variantAnalyze, CreatedAt: start})
		return nil
	})
	return analysis, nil
}

// GenerateForm drafts a legal form of formType from params.
func (s *Service) GenerateForm(ctx context.Context, userID, formType string, params map[string]any) (string, error) {
	start := s.now()
	form, err := s.generateForm(ctx, userID, formType, params, start)
	s.metrics.observe(variantForm, start, err)
	return form, err
}

func (s *Service) generateForm(ctx context.Context, userID, formType string, params map[string]any, start time.Time) (string, error) {
	if err := domain.ValidateForm(formType, params); err != nil {
		return "", err
	}
	s.logger.Info("rag form start", "user_id", userID, "form_type", formType, "params", len(params))

	prompt := formPrompt(s.opts.Profiles.Jurisdiction, formType, params)
	form, err := s.generate(ctx, genReq{profile: s.opts.Profiles.Form, user: prompt}).Unwrap()
	if err != nil {
		return "", err
	}

	s.detach(ctx, "save form", func(ctx context.Context) error {
		_, err := s.deps.Store.SaveForm(ctx, domain.FormGeneration{
			UserID:     userID,
			FormType:   formType,
			Parameters: params,
			Form:       form,
			CreatedAt:  start,
		})
		return err
	})
	return form, nil
}

// UploadDocument embeds content, records the document and indexes it under
// doc_<millis>_<userID>. Unlike the other variants the record is saved
// synchronously and a failure is returned. The record goes in before the
// vector and is removed again when indexing fails.
func (s *Service) UploadDocument(ctx context.Context, userID, title, content string) (domain.IndexedDocument, error) {
	start := s.now()
	doc, err := s.upload(ctx, userID, title, content, start)
	s.metrics.observe(variantUpload, start, err)
	return doc, err
}

func (s *Service) upload(ctx context.Context, userID, title, content string, start time.Time) (domain.IndexedDocument, error) {
	if err := domain.ValidateUpload(title, content); err != nil {
		return domain.IndexedDocument{}, err
	}
	id := domain.DocumentID(start, userID)
	s.logger.Info("rag upload start", "user_id", userID, "doc_id", id, "content_len", len(content))

	vec, err := s.embed(ctx, content).Unwrap()
	if err != nil {
		return domain.IndexedDocument{}, err
	}

	saveCtx, cancel := context.WithTimeout(ctx, s.opts.PersistTimeout)
	defer cancel()
	doc, err := s.deps.Store.SaveDocument(saveCtx, domain.IndexedDocument{
		ID:           id,
		OwnerUserID:  userID,
		Title:        title,
		Text:         content,
		DocumentType: domain.DocumentTypeLegal,
		CreatedAt:    start,
	})
	if err != nil {
		perr := &domain.PersistenceError{Op: "save document", Err: err}
		s.logger.Error("rag: document save failed", "doc_id", id, "err", perr)
		s.metrics.persistFailure("save document").Inc()
		return domain.IndexedDocument{}, perr
	}

	meta := map[string]string{
		semantic.KeyTitle:     title,
		semantic.KeyText:      content,
		semantic.KeyUserID:    userID,
		semantic.KeyCreatedAt: start.UTC().Format(time.RFC3339),
	}
	if _, err := s.upsert(ctx, upsertReq{id: id, vector: vec, metadata: meta}).Unwrap(); err != nil {
		s.discardDocument(ctx, id)
		return domain.IndexedDocument{}, err
	}
	s.logger.Info("rag upload done", "user_id", userID, "doc_id", id)

	s.detach(ctx, "publish document", func(ctx context.Context) error {
		s.publish(ctx, SubjectDocumentIndexed, Event{ID: id, UserID: userID, Variant: variantUpload, CreatedAt: start})
		return nil
	})
	return doc, nil
}

// discardDocument removes the record of a document that could not be indexed.
func (s *Service) discardDocument(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PersistTimeout)
	defer cancel()
	if err := s.deps.Store.DeleteDocument(ctx, id); err != nil {
		perr := &domain.PersistenceError{Op: "delete document", Err: err}
		s.logger.Error("rag: orphaned document record", "doc_id", id, "err", perr)
		s.metrics.persistFailure("delete document").Inc()
	}
}

// Interactions lists userID's past interactions, newest first.
func (s *Service) Interactions(ctx context.Context, userID string, limit int) ([]domain.Interaction, error) {
	items, err := s.deps.Store.Interactions(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("rag: interactions: %w", err)
	}
	return items, nil
}

// detach runs save after the response is produced. It gets its own
// deadline and survives cancellation of ctx; failures are logged as
// PersistenceError and never reach the caller.
func (s *Service) detach(ctx context.Context, op string, save func(context.Context) error) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		s.logger.Error("rag: best-effort save dropped", "op", op, "err", &domain.PersistenceError{Op: op, Err: ErrClosed})
		s.metrics.persistFailure(op).Inc()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, s.opts.PersistTimeout)
		defer cancel()
		if err := save(ctx); err != nil {
			perr := &domain.PersistenceError{Op: op, Err: err}
			s.logger.Error("rag: best-effort save failed", "op", op, "err", perr)
			s.metrics.persistFailure(op).Inc()
		}
	}()
}

// statuteContext returns the "Related statutes" block for question, or ""
// when nothing relevant is found. Failures are logged and skipped.
func (s *Service) statuteContext(ctx context.Context, question string) string {
	terms := legalnlp.Terms(question)
	if len(terms) == 0 {
		return ""
	}
	if s.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.CallTimeout)
		defer cancel()
	}
	found, err := s.deps.Statutes.Related(ctx, terms)
	if err != nil {
		s.logger.Warn("rag: statute enrichment failed, continuing without", "err", err)
		return ""
	}
	return graph.Format(found)
}

// contextParts extracts the passage texts from matches in rank order.
func contextParts(matches []domain.Match) []string {
	return fn.Map(matches, func(m domain.Match) string { return m.SourceText })
}
