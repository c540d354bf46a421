package rag

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ailegalmate/legalmate/engine/domain"
)

func TestDefaultProfiles(t *testing.T) {
	p := DefaultProfiles("")
	if p.Jurisdiction != "Indonesian" {
		t.Errorf("jurisdiction = %q", p.Jurisdiction)
	}
	tests := []struct {
		name    string
		prof    Profile
		temp    float64
		tokens  int
		mention string
	}{
		{"ask", p.Ask, 0.3, 1000, "qualified Indonesian lawyer"},
		{"analyze", p.Analyze, 0.2, 1500, "potential risks, obligations"},
		{"form", p.Form, 0.1, 2000, "Indonesian legal standards"},
	}
	for _, tt := range tests {
		if tt.prof.Options.Temperature != tt.temp || tt.prof.Options.MaxTokens != tt.tokens {
			t.Errorf("%s options = %+v", tt.name, tt.prof.Options)
		}
		if !strings.Contains(tt.prof.SystemPrompt, tt.mention) {
			t.Errorf("%s system prompt = %q", tt.name, tt.prof.SystemPrompt)
		}
	}
	if err := p.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestParseProfiles(t *testing.T) {
	data := []byte(`
jurisdiction: Malaysian
ask:
  temperature: 0
  max_tokens: 500
form:
  system_prompt: "Draft forms."
`)
	p, err := ParseProfiles(data, "Indonesian")
	if err != nil {
		t.Fatal(err)
	}
	if p.Jurisdiction != "Malaysian" || !strings.Contains(p.Ask.SystemPrompt, "Malaysian law") {
		t.Errorf("jurisdiction not applied: %+v", p.Ask)
	}
	if p.Ask.Options.Temperature != 0 || p.Ask.Options.MaxTokens != 500 {
		t.Errorf("ask options = %+v", p.Ask.Options)
	}
	if p.Form.SystemPrompt != "Draft forms." || p.Form.Options.MaxTokens != 2000 {
		t.Errorf("form = %+v", p.Form)
	}
	if p.Analyze.Options.Temperature != 0.2 {
		t.Errorf("analyze should keep defaults: %+v", p.Analyze.Options)
	}
}

func TestParseProfiles_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"temperature too high", "analyze:\n  temperature: 2.5\n"},
		{"zero tokens", "ask:\n  max_tokens: 0\n"},
		{"malformed", "ask: [unclosed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseProfiles([]byte(tt.data), ""); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	_, err := ParseProfiles([]byte("ask:\n  temperature: -1\n"), "")
	if !errors.Is(err, domain.ErrInvalidOptions) {
		t.Errorf("err = %v, want ErrInvalidOptions", err)
	}
}

func TestLoadProfiles(t *testing.T) {
	p, err := LoadProfiles("", "Indonesian")
	if err != nil || p.Ask.Options.MaxTokens != 1000 {
		t.Fatalf("empty path: %+v, %v", p, err)
	}

	path := filepath.Join(t.TempDir(), "prompts.yaml")
	if err := os.WriteFile(path, []byte("analyze:\n  max_tokens: 3000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	p, err = LoadProfiles(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if p.Analyze.Options.MaxTokens != 3000 {
		t.Errorf("analyze tokens = %d", p.Analyze.Options.MaxTokens)
	}

	if _, err := LoadProfiles(filepath.Join(t.TempDir(), "missing.yaml"), ""); err == nil {
		t.Error("missing file should fail")
	}
}

func TestAskPrompt(t *testing.T) {
	got := askPrompt("Q?", []string{"a", "b"})
	if got != "Context: a\n\nb\n\nQuestion: Q?" {
		t.Errorf("askPrompt = %q", got)
	}
	if got := askPrompt("Q?", nil); got != "Context: \n\nQuestion: Q?" {
		t.Errorf("askPrompt(empty) = %q", got)
	}
}

func TestFormPromptMixedParams(t *testing.T) {
	got := formPrompt("Indonesian", "loan agreement", map[string]any{
		"lender":  "Budi",
		"amount":  5000000,
		"parties": []string{"A", "B"},
	})
	want := `Parameters: {"amount":5000000,"lender":"Budi","parties":["A","B"]}.`
	if !strings.Contains(got, want) {
		t.Errorf("formPrompt = %q", got)
	}
}

func TestFormPromptNilParams(t *testing.T) {
	got := formPrompt("Indonesian", "lease", nil)
	if !strings.Contains(got, "Parameters: {}.") {
		t.Errorf("formPrompt = %q", got)
	}
}
