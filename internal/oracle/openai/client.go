// Package openai asks an OpenAI compatible chat completion endpoint for
// layout suggestions: column headers, column orders and sheet grouping.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vk/parasheet/internal/config"
	"github.com/vk/parasheet/internal/ctxlog"
	"resty.dev/v3"
)

var (
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("openai: API key is not set")
	// ErrUnparseable is returned when the model answer is not a JSON array.
	ErrUnparseable = errors.New("openai: response is not a JSON array")
)

const (
	temperature   = 0.1
	maxErrorBytes = 512
)

// Options configures a Client.
type Options struct {
	APIKey   string
	Endpoint string
	Model    string
	// Language is the natural language used for headers and sheet names.
	Language string
	// Timeout bounds a single HTTP exchange. Zero leaves it to the context.
	Timeout time.Duration
}

// Client implements layout.HeaderOracle, layout.OrderOracle and
// layout.SheetOracle.
type Client struct {
	http     *resty.Client
	model    string
	language string
}

// New creates a client. It fails with ErrMissingAPIKey when opts.APIKey is
// blank.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	defaults := config.Default().Oracle
	if opts.Endpoint == "" {
		opts.Endpoint = defaults.Endpoint
	}
	if opts.Model == "" {
		opts.Model = defaults.Model
	}
	if opts.Language == "" {
		opts.Language = defaults.Language
	}

	hc := resty.New().
		SetBaseURL(strings.TrimRight(opts.Endpoint, "/")).
		SetAuthToken(strings.TrimSpace(opts.APIKey)).
		SetHeader("Content-Type", "application/json")
	if opts.Timeout > 0 {
		hc.SetTimeout(opts.Timeout)
	}
	return &Client{http: hc, model: opts.Model, language: opts.Language}, nil
}

// NewFromEnv creates a client whose API key is read from the environment
// variable keyEnv.
func NewFromEnv(keyEnv string, opts Options) (*Client, error) {
	opts.APIKey = os.Getenv(keyEnv)
	c, err := New(opts)
	if errors.Is(err, ErrMissingAPIKey) {
		return nil, fmt.Errorf("%w (environment variable %s)", ErrMissingAPIKey, keyEnv)
	}
	return c, err
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.http.Close()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete sends one system prompt plus a JSON payload and returns the
// elements of the JSON array the model answered with.
func (c *Client) complete(ctx context.Context, system string, payload any) ([]json.RawMessage, error) {
	user, err := marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding prompt payload: %w", err)
	}

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: user},
			},
			Temperature: temperature,
		}).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("chat completion request: %w", err)
	}
	if resp.IsError() {
		body := resp.String()
		if len(body) > maxErrorBytes {
			body = body[:maxErrorBytes]
		}
		return nil, fmt.Errorf("chat completion: status %d: %s", resp.StatusCode(), body)
	}

	content := "[]"
	if len(out.Choices) > 0 {
		content = out.Choices[0].Message.Content
	}
	ctxlog.FromContext(ctx).Debug("Chat completion received.", "model", c.model, "bytes", len(content))
	return parseArray(content)
}

// parseArray decodes the model answer, tolerating a surrounding Markdown
// code fence.
func parseArray(content string) ([]json.RawMessage, error) {
	content = stripFence(content)
	if content == "" {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return items, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func marshal(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
