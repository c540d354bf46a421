// Command chat is a terminal client for the legalmate API.
// It sends each line typed at the prompt to POST /ai/ask and prints the answer.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ailegalmate/legalmate/engine/domain"
	"github.com/ailegalmate/legalmate/pkg/mid"
	"github.com/fatih/color"
)

var (
	boldGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
	red       = color.New(color.FgRed).SprintFunc()
	faint     = color.New(color.Faint).SprintFunc()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, err := resolveToken(os.Getenv("LEGALMATE_TOKEN"), os.Getenv("JWT_SECRET"), envOr("LEGALMATE_USER", "cli"))
	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		os.Exit(1)
	}

	c := &client{
		baseURL: strings.TrimRight(envOr("LEGALMATE_API", "http://localhost:5000"), "/"),
		token:   token,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}

	fmt.Println(boldGreen("legalmate chat"))
	fmt.Printf("API: %s\n", boldCyan(c.baseURL))
	fmt.Println("Type a question and press Enter. /history lists past questions, /quit exits.")
	fmt.Println()

	if err := repl(ctx, c, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		os.Exit(1)
	}
}

// resolveToken prefers an explicit token and otherwise mints a short-lived one.
func resolveToken(token, secret, user string) (string, error) {
	if token != "" {
		return token, nil
	}
	if secret == "" {
		return "", errors.New("chat: set LEGALMATE_TOKEN or JWT_SECRET")
	}
	return mid.IssueToken([]byte(secret), user, 12*time.Hour)
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("chat: %d %s", e.Status, e.Message)
}

func (c *client) ask(ctx context.Context, question string) (string, error) {
	var out struct {
		Response string `json:"response"`
	}
	if err := c.do(ctx, http.MethodPost, "/ai/ask", map[string]string{"question": question}, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

func (c *client) history(ctx context.Context, limit int) ([]domain.Interaction, error) {
	var out struct {
		Interactions []domain.Interaction `json:"interactions"`
	}
	path := "/ai/interactions?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Interactions, nil
}

func (c *client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("chat: marshal: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("chat: request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("chat: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&msg)
		if msg.Message == "" {
			msg.Message = http.StatusText(resp.StatusCode)
		}
		return &apiError{Status: resp.StatusCode, Message: msg.Message}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("chat: decode: %w", err)
	}
	return nil
}

func repl(ctx context.Context, c *client, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, boldGreen("You: "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "exit":
			return nil
		case line == "/history":
			items, err := c.history(ctx, 10)
			if err != nil {
				fmt.Fprintln(out, red(err.Error()))
				continue
			}
			if len(items) == 0 {
				fmt.Fprintln(out, faint("no interactions yet"))
			}
			for _, it := range items {
				fmt.Fprintf(out, "%s %s\n", faint(it.CreatedAt.Local().Format(time.DateTime)), it.Question)
			}
			fmt.Fprintln(out)
			continue
		}

		answer, err := c.ask(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(out, red(err.Error()))
			continue
		}
		fmt.Fprintf(out, "%s%s\n\n", boldCyan("Assistant: "), answer)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
