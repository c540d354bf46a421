package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration.
type Config struct {
	Port       string
	JWTSecret  string
	DBPath     string
	CORSOrigin string

	EmbedProvider string // openai | ollama
	EmbedModel    string
	ChatProvider  string // openai | ollama
	ChatModel     string
	OpenAIBaseURL string
	OpenAIAPIKey  string
	OllamaURL     string

	QdrantURL        string // empty: in-process index
	Collection       string
	EmbedDims        int
	VectorOnConflict string // overwrite | reject

	Neo4jURL  string // empty: no statute enrichment
	Neo4jUser string
	Neo4jPass string

	NatsURL     string // empty: no events
	EventPrefix string

	CallTimeout      time.Duration
	BreakerThreshold int // 0 disables breakers
	BreakerCooldown  time.Duration
	RateLimitRPS     float64
	RateLimitBurst   int

	PromptsFile  string
	Jurisdiction string
}

// loadConfig reads .env (if present) and then the environment. Real
// environment variables win over .env entries.
func loadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:       envOr("PORT", "5000"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		DBPath:     envOr("DB_PATH", "legalmate.db"),
		CORSOrigin: envOr("CORS_ORIGIN", "*"),

		EmbedProvider: envOr("EMBED_PROVIDER", "openai"),
		EmbedModel:    os.Getenv("EMBED_MODEL"),
		ChatProvider:  envOr("CHAT_PROVIDER", "openai"),
		ChatModel:     os.Getenv("CHAT_MODEL"),
		OpenAIBaseURL: envOr("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OllamaURL:     envOr("OLLAMA_URL", "http://localhost:11434"),

		QdrantURL:        os.Getenv("QDRANT_URL"),
		Collection:       envOr("QDRANT_COLLECTION", "legal-documents"),
		VectorOnConflict: envOr("VECTOR_ON_CONFLICT", "overwrite"),

		Neo4jURL:  os.Getenv("NEO4J_URL"),
		Neo4jUser: envOr("NEO4J_USER", "neo4j"),
		Neo4jPass: envOr("NEO4J_PASS", "password"),

		NatsURL:     os.Getenv("NATS_URL"),
		EventPrefix: envOr("EVENT_PREFIX", "legalmate."),

		PromptsFile:  os.Getenv("PROMPTS_FILE"),
		Jurisdiction: envOr("JURISDICTION", "Indonesian"),
	}

	var err error
	if cfg.EmbedDims, err = envInt("EMBED_DIMS", 1536); err != nil {
		return Config{}, err
	}
	if cfg.BreakerThreshold, err = envInt("BREAKER_THRESHOLD", 5); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitBurst, err = envInt("RATE_LIMIT_BURST", 10); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = envFloat("RATE_LIMIT_RPS", 1); err != nil {
		return Config{}, err
	}
	if cfg.CallTimeout, err = envDuration("CALL_TIMEOUT", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.BreakerCooldown, err = envDuration("BREAKER_COOLDOWN", 30*time.Second); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	for key, v := range map[string]string{"EMBED_PROVIDER": c.EmbedProvider, "CHAT_PROVIDER": c.ChatProvider} {
		if v != "openai" && v != "ollama" {
			return fmt.Errorf("config: %s must be openai or ollama, got %q", key, v)
		}
	}
	if c.EmbedDims <= 0 {
		return fmt.Errorf("config: EMBED_DIMS must be positive, got %d", c.EmbedDims)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
