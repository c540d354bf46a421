// Package main implements the legal assistant API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ailegalmate/legalmate/engine/graph"
	"github.com/ailegalmate/legalmate/engine/rag"
	"github.com/ailegalmate/legalmate/engine/semantic"
	"github.com/ailegalmate/legalmate/engine/store"
	"github.com/ailegalmate/legalmate/pkg/metrics"
	"github.com/ailegalmate/legalmate/pkg/mid"
	"github.com/ailegalmate/legalmate/pkg/natsutil"
	"github.com/ailegalmate/legalmate/pkg/ollama"
	"github.com/ailegalmate/legalmate/pkg/openai"
	"github.com/ailegalmate/legalmate/pkg/resilience"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Ollama model defaults when EMBED_MODEL / CHAT_MODEL are unset.
const (
	defaultOllamaEmbedModel = "nomic-embed-text"
	defaultOllamaChatModel  = "llama3.1"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Relational store ---
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	// --- Providers ---
	httpClient := &http.Client{Timeout: 2 * cfg.CallTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	embedder, err := newEmbedder(cfg, httpClient)
	if err != nil {
		return err
	}
	generator, err := newGenerator(cfg, httpClient)
	if err != nil {
		return err
	}

	// --- Vector index ---
	index, closeIndex, err := newIndex(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeIndex.Close()

	reg := metrics.New()
	deps := rag.Deps{
		Embedder:  embedder,
		Generator: generator,
		Index:     index,
		Store:     db,
		Metrics:   reg,
	}

	// --- Optional statute graph ---
	if cfg.Neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		defer driver.Close(context.Background())
		deps.Statutes = graph.New(driver)
		logger.Info("statute enrichment enabled", "url", cfg.Neo4jURL)
	}

	// --- Optional events ---
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL, nats.Name("legalmate-api"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		pub := natsutil.NewPublisher(nc, cfg.EventPrefix)
		defer pub.Close()
		deps.Events = pub
		logger.Info("event publishing enabled", "url", cfg.NatsURL, "prefix", cfg.EventPrefix)
	}

	// --- Pipeline ---
	profiles, err := rag.LoadProfiles(cfg.PromptsFile, cfg.Jurisdiction)
	if err != nil {
		return err
	}
	opts := rag.DefaultOptions()
	opts.CallTimeout = cfg.CallTimeout
	opts.Profiles = profiles
	if cfg.BreakerThreshold > 0 {
		opts.Breaker = &resilience.BreakerOpts{FailThreshold: cfg.BreakerThreshold, Timeout: cfg.BreakerCooldown}
	}
	svc, err := rag.New(deps, opts, logger)
	if err != nil {
		return err
	}
	// Flush best-effort saves before the store closes.
	defer svc.Close()

	limiter := mid.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
	go sweep(ctx, limiter, time.Minute)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(svc, db, reg, limiter, cfg, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.CallTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	logger.Info("api server starting", "port", cfg.Port, "embed", cfg.EmbedProvider, "chat", cfg.ChatProvider)
	return serve(ctx, srv, ln, logger)
}

// serve runs srv on ln until ctx is done, then drains in-flight requests
// for up to srv.WriteTimeout, since a request may be waiting on a provider.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), srv.WriteTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		logger.Warn("graceful shutdown incomplete, closing connections", "err", err)
		srv.Close()
		return err
	}
	return nil
}

func newEmbedder(cfg Config, hc *http.Client) (rag.Embedder, error) {
	if cfg.EmbedProvider == "ollama" {
		return ollama.New(cfg.OllamaURL, orDefault(cfg.EmbedModel, defaultOllamaEmbedModel), "", hc)
	}
	return openai.New(openai.Config{BaseURL: cfg.OpenAIBaseURL, APIKey: cfg.OpenAIAPIKey, EmbedModel: cfg.EmbedModel, HTTPClient: hc}), nil
}

func newGenerator(cfg Config, hc *http.Client) (rag.Generator, error) {
	if cfg.ChatProvider == "ollama" {
		return ollama.New(cfg.OllamaURL, "", orDefault(cfg.ChatModel, defaultOllamaChatModel), hc)
	}
	return openai.New(openai.Config{BaseURL: cfg.OpenAIBaseURL, APIKey: cfg.OpenAIAPIKey, ChatModel: cfg.ChatModel, HTTPClient: hc}), nil
}

// newIndex returns the Qdrant-backed index when QDRANT_URL is set, else an
// in-process one.
func newIndex(ctx context.Context, cfg Config, logger *slog.Logger) (rag.VectorIndex, io.Closer, error) {
	policy, err := semantic.ParseConflictPolicy(cfg.VectorOnConflict)
	if err != nil {
		return nil, nil, err
	}
	if cfg.QdrantURL == "" {
		logger.Warn("QDRANT_URL not set, using in-process vector index; uploads are lost on restart")
		return semantic.NewMemoryIndex(policy), closerFunc(func() error { return nil }), nil
	}
	vs, err := semantic.New(cfg.QdrantURL, cfg.Collection, policy)
	if err != nil {
		return nil, nil, err
	}
	if err := vs.EnsureCollection(ctx, cfg.EmbedDims); err != nil {
		vs.Close()
		return nil, nil, err
	}
	logger.Info("qdrant index ready", "url", cfg.QdrantURL, "collection", cfg.Collection, "on_conflict", policy.String())
	return vs, vs, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func sweep(ctx context.Context, l *mid.RateLimiter, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Sweep()
		}
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
