// Package openai adapts OpenAI-compatible embedding and chat-completion
// endpoints to the pipeline's Embedder and Generator interfaces.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

// Defaults match the models the assistant was tuned against.
const (
	DefaultBaseURL    = "https://api.openai.com"
	DefaultEmbedModel = "text-embedding-ada-002"
	DefaultChatModel  = "gpt-4-turbo-preview"
)

// Config configures a Client. BaseURL is the server root; the /v1 prefix is
// added when missing.
type Config struct {
	BaseURL    string
	APIKey     string
	EmbedModel string
	ChatModel  string
	HTTPClient *http.Client
}

// Client embeds and generates through go-openai. It never retries.
type Client struct {
	api        *goopenai.Client
	embedModel string
	chatModel  string
}

// New creates a Client, filling unset fields with defaults.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	oc := goopenai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = base
	oc.HTTPClient = cfg.HTTPClient

	return &Client{
		api:        goopenai.NewClientWithConfig(oc),
		embedModel: cfg.EmbedModel,
		chatModel:  cfg.ChatModel,
	}
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	Status  int
	Type    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("openai: status %d", e.Status)
	}
	return fmt.Sprintf("openai: status %d: %s", e.Status, e.Message)
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: []string{text},
		Model: goopenai.EmbeddingModel(c.embedModel),
	})
	if err != nil {
		return nil, fmt.Errorf("openai: embed: %w", apiError(err))
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("openai: embed: empty embedding")
	}
	return resp.Data[0].Embedding, nil
}

// Generate runs one non-streaming chat completion with a system and a user
// message and returns the first choice's content.
func (c *Client) Generate(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat: %w", apiError(err))
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: chat: no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Model returns the chat model name.
func (c *Client) Model() string { return c.chatModel }

// apiError flattens the SDK's error types into APIError. Transport and
// context errors pass through unchanged.
func apiError(err error) error {
	var ae *goopenai.APIError
	if errors.As(err, &ae) {
		return &APIError{Status: ae.HTTPStatusCode, Type: ae.Type, Message: ae.Message}
	}
	var re *goopenai.RequestError
	if errors.As(err, &re) {
		return &APIError{Status: re.HTTPStatusCode}
	}
	return err
}
