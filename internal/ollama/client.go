// Package ollama talks to a local Ollama server for text generation and
// model discovery.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 120 * time.Second

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client is safe for concurrent use.
type Client struct {
	http    *http.Client
	baseURL func() string
	logger  *slog.Logger
	group   singleflight.Group
}

// NewClient returns a client that resolves the server address through
// baseURL on every call, so endpoint changes take effect immediately.
func NewClient(baseURL func() string, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		baseURL: baseURL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateRequest struct {
	Model   string             `json:"model"`
	Prompt  string             `json:"prompt"`
	Stream  bool               `json:"stream"`
	Options map[string]float64 `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Generate runs a non-streaming completion and returns the sanitized text.
// Every failure is a *TransformError.
func (c *Client) Generate(ctx context.Context, prompt, model string, temperature float64) (string, error) {
	endpoint, err := c.endpoint("/api/generate")
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(generateRequest{
		Model:   model,
		Prompt:  prompt,
		Stream:  false,
		Options: map[string]float64{"temperature": temperature},
	})
	if err != nil {
		return "", &TransformError{Kind: DecodeFailure, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &TransformError{Kind: InvalidEndpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("ollama: generate",
		slog.String("model", model),
		slog.Float64("temperature", temperature),
	)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransformError{Kind: NetworkFailure, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("ollama: non-2xx response",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(snippet)),
		)
		return "", &TransformError{Kind: NonSuccessStatus, Code: resp.StatusCode}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &TransformError{Kind: DecodeFailure, Err: err}
	}
	return Sanitize(out.Response), nil
}

// ListModels returns the names of installed models. Any failure yields an
// empty list. Concurrent calls for the same server share one request.
func (c *Client) ListModels(ctx context.Context) []string {
	endpoint, err := c.endpoint("/api/tags")
	if err != nil {
		c.logger.Warn("ollama: list models", slog.String("error", err.Error()))
		return []string{}
	}

	// The shared request outlives any single caller; the client timeout
	// still bounds it.
	ch := c.group.DoChan(endpoint, func() (interface{}, error) {
		return c.fetchModels(context.WithoutCancel(ctx), endpoint)
	})
	select {
	case <-ctx.Done():
		c.logger.Warn("ollama: list models", slog.String("error", ctx.Err().Error()))
		return []string{}
	case res := <-ch:
		if res.Err != nil {
			c.logger.Warn("ollama: list models", slog.String("error", res.Err.Error()))
			return []string{}
		}
		names := res.Val.([]string)
		return append([]string{}, names...)
	}
}

func (c *Client) fetchModels(ctx context.Context, endpoint string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("tags returned %d", resp.StatusCode)
	}

	var out tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		names = append(names, m.Name)
	}
	c.logger.Debug("ollama: models listed", slog.Int("count", len(names)))
	return names, nil
}

func (c *Client) endpoint(path string) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(c.baseURL()), "/")
	u, err := url.Parse(base + path)
	if err != nil {
		return "", &TransformError{Kind: InvalidEndpoint, Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", &TransformError{Kind: InvalidEndpoint, Err: fmt.Errorf("unusable base URL %q", base)}
	}
	return u.String(), nil
}

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Sanitize removes reasoning blocks and surrounding whitespace.
func Sanitize(raw string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(raw, ""))
}
