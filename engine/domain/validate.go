package domain

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// maxEchoedValue caps how much of a rejected value is echoed back in errors.
const maxEchoedValue = 64

// RequireText fails with a ValidationError when value is empty or whitespace.
func RequireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(field, truncate(value), ErrEmptyField)
	}
	return nil
}

// ValidateQuestion validates an ask request.
func ValidateQuestion(q Question) error {
	return RequireText("question", q.Text)
}

// ValidateUpload validates an upload-document request.
func ValidateUpload(title, content string) error {
	if err := RequireText("title", title); err != nil {
		return err
	}
	return RequireText("content", content)
}

// ValidateContract validates an analyze-contract request.
func ValidateContract(contractText string) error {
	return RequireText("contractText", contractText)
}

// ValidateForm validates a generate-form request.
func ValidateForm(formType string, params map[string]any) error {
	if err := RequireText("formType", formType); err != nil {
		return err
	}
	for k := range params {
		if strings.TrimSpace(k) == "" {
			return NewValidationError("parameters", k, ErrEmptyField)
		}
	}
	if _, err := json.Marshal(params); err != nil {
		return NewValidationError("parameters", "", err)
	}
	return nil
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxEchoedValue {
		return s
	}
	r := []rune(s)
	return string(r[:maxEchoedValue]) + "..."
}
