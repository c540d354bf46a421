package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRequireText(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"empty", "", true},
		{"spaces", "   ", true},
		{"tabs and newlines", "\t\n ", true},
		{"text", "What is a contract?", false},
		{"padded text", "  hi  ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireText("question", tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RequireText(%q) err = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrEmptyField) {
				t.Errorf("expected ErrEmptyField, got %v", err)
			}
			if err != nil && !IsValidation(err) {
				t.Errorf("expected ValidationError, got %T", err)
			}
		})
	}
}

func TestValidateUpload(t *testing.T) {
	err := ValidateUpload("", "body")
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "title" {
		t.Fatalf("expected title validation error, got %v", err)
	}
	err = ValidateUpload("Lease", " ")
	if !errors.As(err, &ve) || ve.Field != "content" {
		t.Fatalf("expected content validation error, got %v", err)
	}
	if err := ValidateUpload("Lease", "The tenant shall..."); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateContractAndQuestion(t *testing.T) {
	if err := ValidateContract("\n"); !errors.Is(err, ErrEmptyField) {
		t.Errorf("expected ErrEmptyField, got %v", err)
	}
	if err := ValidateQuestion(Question{Text: "", Requester: "u1"}); !errors.Is(err, ErrEmptyField) {
		t.Errorf("expected ErrEmptyField, got %v", err)
	}
	if err := ValidateQuestion(Question{Text: "ok", Requester: "u1"}); err != nil {
		t.Errorf("unexpected: %v", err)
	}
}

func TestValidateForm(t *testing.T) {
	if err := ValidateForm("", nil); !errors.Is(err, ErrEmptyField) {
		t.Errorf("expected ErrEmptyField for formType, got %v", err)
	}
	if err := ValidateForm("power of attorney", map[string]any{" ": "x"}); !errors.Is(err, ErrEmptyField) {
		t.Errorf("expected ErrEmptyField for blank key, got %v", err)
	}
	if err := ValidateForm("power of attorney", map[string]any{"grantor": "Budi"}); err != nil {
		t.Errorf("unexpected: %v", err)
	}
	mixed := map[string]any{"amount": 5000000, "parties": []any{"A", "B"}, "secured": true}
	if err := ValidateForm("loan agreement", mixed); err != nil {
		t.Errorf("non-string parameters rejected: %v", err)
	}
	var ve *ValidationError
	if err := ValidateForm("loan agreement", map[string]any{"cb": func() {}}); !errors.As(err, &ve) || ve.Field != "parameters" {
		t.Errorf("unencodable parameter: err = %v", err)
	}
}

func TestValidationErrorTruncatesValue(t *testing.T) {
	long := strings.Repeat(" ", 200)
	err := RequireText("content", long)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Value) > maxEchoedValue+3 {
		t.Errorf("value not truncated: len=%d", len(ve.Value))
	}
}

func TestGenerateOptionsValidate(t *testing.T) {
	tests := []struct {
		opts    GenerateOptions
		wantErr bool
	}{
		{GenerateOptions{Temperature: 0.3, MaxTokens: 1000}, false},
		{GenerateOptions{Temperature: 0, MaxTokens: 1}, false},
		{GenerateOptions{Temperature: 2, MaxTokens: 1}, false},
		{GenerateOptions{Temperature: -0.1, MaxTokens: 1}, true},
		{GenerateOptions{Temperature: 2.1, MaxTokens: 1}, true},
		{GenerateOptions{Temperature: 1, MaxTokens: 0}, true},
	}
	for _, tt := range tests {
		err := tt.opts.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) err = %v, wantErr %v", tt.opts, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("expected ErrInvalidOptions, got %v", err)
		}
	}
}

func TestDocumentID(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	if got := DocumentID(ts, "42"); got != "doc_1700000000123_42" {
		t.Errorf("DocumentID = %q", got)
	}
}
