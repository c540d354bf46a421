package main

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "5000" || cfg.EmbedProvider != "openai" || cfg.ChatProvider != "openai" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.EmbedDims != 1536 || cfg.CallTimeout != 30*time.Second || cfg.BreakerThreshold != 5 {
		t.Errorf("numeric defaults = %+v", cfg)
	}
	if cfg.QdrantURL != "" || cfg.Neo4jURL != "" || cfg.NatsURL != "" {
		t.Error("optional backends should default to disabled")
	}
	if cfg.Jurisdiction != "Indonesian" || cfg.EventPrefix != "legalmate." {
		t.Errorf("jurisdiction=%q prefix=%q", cfg.Jurisdiction, cfg.EventPrefix)
	}
}

func TestLoadConfig_AllEnvVars(t *testing.T) {
	env := map[string]string{
		"PORT":               "9090",
		"JWT_SECRET":         "k",
		"DB_PATH":            "/tmp/x.db",
		"EMBED_PROVIDER":     "ollama",
		"CHAT_PROVIDER":      "ollama",
		"EMBED_MODEL":        "bge-m3",
		"CHAT_MODEL":         "qwen2.5",
		"QDRANT_URL":         "qdrant:6334",
		"QDRANT_COLLECTION":  "docs",
		"EMBED_DIMS":         "1024",
		"VECTOR_ON_CONFLICT": "reject",
		"NEO4J_URL":          "neo4j://graph:7687",
		"NATS_URL":           "nats://bus:4222",
		"CALL_TIMEOUT":       "5s",
		"RATE_LIMIT_RPS":     "2.5",
		"RATE_LIMIT_BURST":   "4",
		"BREAKER_THRESHOLD":  "0",
		"PROMPTS_FILE":       "/etc/legalmate/prompts.yaml",
		"JURISDICTION":       "Malaysian",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9090" || cfg.DBPath != "/tmp/x.db" || cfg.EmbedModel != "bge-m3" || cfg.ChatModel != "qwen2.5" {
		t.Errorf("strings = %+v", cfg)
	}
	if cfg.EmbedDims != 1024 || cfg.CallTimeout != 5*time.Second || cfg.RateLimitRPS != 2.5 || cfg.RateLimitBurst != 4 || cfg.BreakerThreshold != 0 {
		t.Errorf("numbers = %+v", cfg)
	}
	if cfg.VectorOnConflict != "reject" || cfg.Jurisdiction != "Malaysian" || cfg.PromptsFile == "" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"bad provider", map[string]string{"JWT_SECRET": "k", "EMBED_PROVIDER": "cohere"}},
		{"bad int", map[string]string{"JWT_SECRET": "k", "EMBED_DIMS": "many"}},
		{"zero dims", map[string]string{"JWT_SECRET": "k", "EMBED_DIMS": "0"}},
		{"bad duration", map[string]string{"JWT_SECRET": "k", "CALL_TIMEOUT": "soon"}},
		{"bad float", map[string]string{"JWT_SECRET": "k", "RATE_LIMIT_RPS": "fast"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := loadConfig(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("LEGALMATE_TEST_KEY", "value")
	if got := envOr("LEGALMATE_TEST_KEY", "fallback"); got != "value" {
		t.Errorf("got %q", got)
	}
	if got := envOr("LEGALMATE_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("got %q", got)
	}
}

func TestNewIndex_InProcess(t *testing.T) {
	cfg := Config{VectorOnConflict: "reject"}
	idx, closer, err := newIndex(t.Context(), cfg, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()
	if idx == nil {
		t.Fatal("nil index")
	}
	if _, _, err := newIndex(t.Context(), Config{VectorOnConflict: "version"}, discardLogger()); err == nil {
		t.Error("unknown conflict policy should fail")
	}
}

func TestNewProviders(t *testing.T) {
	for _, p := range []string{"openai", "ollama"} {
		cfg := Config{EmbedProvider: p, ChatProvider: p, OpenAIBaseURL: "http://localhost:1", OllamaURL: "http://localhost:11434"}
		if _, err := newEmbedder(cfg, nil); err != nil {
			t.Errorf("%s embedder: %v", p, err)
		}
		if _, err := newGenerator(cfg, nil); err != nil {
			t.Errorf("%s generator: %v", p, err)
		}
	}
}
