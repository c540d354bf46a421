// Package ollama adapts a local Ollama server to the embedding and
// generation contracts used by the query pipeline.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// Client wraps the Ollama API client.
type Client struct {
	api        *api.Client
	embedModel string
	chatModel  string
}

// New creates a Client for the server at baseURL.
func New(baseURL, embedModel, chatModel string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama: parse url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		api:        api.NewClient(u, httpClient),
		embedModel: embedModel,
		chatModel:  chatModel,
	}, nil
}

// Embed returns the embedding for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.api.Embeddings(ctx, &api.EmbeddingRequest{Model: c.embedModel, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("ollama: embed: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama: embed: empty embedding")
	}
	out := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

// Generate runs one non-streaming chat turn.
func (c *Client) Generate(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: c.chatModel,
		Messages: []api.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream: &stream,
		Options: map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}
	var b strings.Builder
	err := c.api.Chat(ctx, req, func(resp api.ChatResponse) error {
		b.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama: chat: %w", err)
	}
	return b.String(), nil
}

// Model returns the chat model name.
func (c *Client) Model() string { return c.chatModel }
