package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ailegalmate/legalmate/engine/domain"
	"github.com/ailegalmate/legalmate/pkg/metrics"
	"github.com/ailegalmate/legalmate/pkg/mid"
)

// maxBodyBytes bounds request bodies; contracts can be long.
const maxBodyBytes = 2 << 20

// pipeline is the subset of rag.Service the handlers use.
type pipeline interface {
	Ask(ctx context.Context, q domain.Question) (string, error)
	AnalyzeContract(ctx context.Context, userID, contractText string) (string, error)
	GenerateForm(ctx context.Context, userID, formType string, params map[string]any) (string, error)
	UploadDocument(ctx context.Context, userID, title, content string) (domain.IndexedDocument, error)
	Interactions(ctx context.Context, userID string, limit int) ([]domain.Interaction, error)
}

// pinger reports datastore health.
type pinger interface {
	Ping(ctx context.Context) error
}

// routeMessages are the user-facing texts for one endpoint.
type routeMessages struct {
	invalid string // 400 on a missing field
	failed  string // 500 on anything else
}

var (
	askMessages     = routeMessages{"Question is required", "Server error processing AI request"}
	uploadMessages  = routeMessages{"Title and content are required", "Server error uploading document"}
	analyzeMessages = routeMessages{"Contract text is required", "Server error analyzing contract"}
	formMessages    = routeMessages{"Form type is required", "Server error generating form"}
)

// newRouter builds the HTTP handler tree.
func newRouter(svc pipeline, db pinger, reg *metrics.Registry, limiter *mid.RateLimiter, cfg Config, logger *slog.Logger) http.Handler {
	started := time.Now()
	protect := func(h http.HandlerFunc) http.Handler {
		return mid.Chain(h, mid.Auth([]byte(cfg.JWTSecret)), mid.RateLimit(limiter))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth(db, started))
	mux.Handle("GET /metrics", reg.Handler())
	mux.Handle("POST /ai/ask", protect(handleAsk(svc, logger)))
	mux.Handle("POST /ai/upload-document", protect(handleUpload(svc, logger)))
	mux.Handle("POST /ai/analyze-contract", protect(handleAnalyze(svc, logger)))
	mux.Handle("POST /ai/generate-form", protect(handleForm(svc, logger)))
	mux.Handle("GET /ai/interactions", protect(handleInteractions(svc, logger)))

	return mid.Chain(mux,
		mid.Recover(logger),
		mid.OTel("legalmate-api"),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
	)
}

// --- Handlers ---

func handleHealth(db pinger, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status, dbStatus, code := "ok", "ok", http.StatusOK
		if err := db.Ping(ctx); err != nil {
			status, dbStatus, code = "degraded", "unavailable", http.StatusServiceUnavailable
		}
		mid.WriteJSON(w, code, map[string]any{
			"status":   status,
			"database": dbStatus,
			"uptime":   time.Since(started).Round(time.Second).String(),
		})
	}
}

// AskRequest is the JSON body for POST /ai/ask.
type AskRequest struct {
	Question string `json:"question"`
}

func handleAsk(svc pipeline, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AskRequest
		if !decode(w, r, &req) {
			return
		}
		uid, _ := mid.UserID(r.Context())
		answer, err := svc.Ask(r.Context(), domain.Question{Text: req.Question, Requester: uid})
		if err != nil {
			writeError(w, logger, "ask", err, askMessages)
			return
		}
		mid.WriteJSON(w, http.StatusOK, map[string]string{"response": answer})
	}
}

// UploadRequest is the JSON body for POST /ai/upload-document.
type UploadRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func handleUpload(svc pipeline, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UploadRequest
		if !decode(w, r, &req) {
			return
		}
		uid, _ := mid.UserID(r.Context())
		doc, err := svc.UploadDocument(r.Context(), uid, req.Title, req.Content)
		if err != nil {
			if errors.Is(err, domain.ErrDuplicateID) {
				mid.WriteMessage(w, http.StatusConflict, "Document already exists")
				return
			}
			writeError(w, logger, "upload document", err, uploadMessages)
			return
		}
		mid.WriteJSON(w, http.StatusCreated, map[string]domain.IndexedDocument{"document": doc})
	}
}

// AnalyzeRequest is the JSON body for POST /ai/analyze-contract.
type AnalyzeRequest struct {
	ContractText string `json:"contractText"`
}

func handleAnalyze(svc pipeline, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnalyzeRequest
		if !decode(w, r, &req) {
			return
		}
		uid, _ := mid.UserID(r.Context())
		analysis, err := svc.AnalyzeContract(r.Context(), uid, req.ContractText)
		if err != nil {
			writeError(w, logger, "analyze contract", err, analyzeMessages)
			return
		}
		mid.WriteJSON(w, http.StatusOK, map[string]string{"analysis": analysis})
	}
}

// FormRequest is the JSON body for POST /ai/generate-form.
type FormRequest struct {
	FormType   string         `json:"formType"`
	Parameters map[string]any `json:"parameters"`
}

func handleForm(svc pipeline, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req FormRequest
		if !decode(w, r, &req) {
			return
		}
		uid, _ := mid.UserID(r.Context())
		form, err := svc.GenerateForm(r.Context(), uid, req.FormType, req.Parameters)
		if err != nil {
			writeError(w, logger, "generate form", err, formMessages)
			return
		}
		mid.WriteJSON(w, http.StatusOK, map[string]string{"form": form})
	}
}

func handleInteractions(svc pipeline, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				mid.WriteMessage(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}
		uid, _ := mid.UserID(r.Context())
		items, err := svc.Interactions(r.Context(), uid, limit)
		if err != nil {
			logger.Error("list interactions failed", "user_id", uid, "err", err)
			mid.WriteMessage(w, http.StatusInternalServerError, "Server error fetching interactions")
			return
		}
		mid.WriteJSON(w, http.StatusOK, map[string][]domain.Interaction{"interactions": items})
	}
}

// decode reads a JSON body into v, answering 400 itself on failure. An
// empty body leaves v zero so validation reports the missing field.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			mid.WriteMessage(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		mid.WriteMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeError maps pipeline errors to responses. Only validation failures
// are reported specifically; upstream details stay in the log.
func writeError(w http.ResponseWriter, logger *slog.Logger, op string, err error, msgs routeMessages) {
	if domain.IsValidation(err) {
		mid.WriteMessage(w, http.StatusBadRequest, msgs.invalid)
		return
	}
	logger.Error(op+" failed", "err", err, "upstream", domain.IsUpstream(err))
	mid.WriteMessage(w, http.StatusInternalServerError, msgs.failed)
}
