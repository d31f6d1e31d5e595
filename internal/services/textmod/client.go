package textmod

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vidgate/internal/services"
)

const defaultHTTPTimeout = 30 * time.Second

// Result is the remote model's verdict for a piece of text.
type Result struct {
	Flagged    bool
	Categories []string
}

// Client wraps the remote text moderation model.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes the text moderation client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a text moderation client.
func NewClient(endpoint string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: timeout}
	}
	return client
}

// Check asks the remote model whether the text violates policy.
func (c *Client) Check(ctx context.Context, text string) (Result, error) {
	var empty Result

	encoded, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return empty, fmt.Errorf("textmod check: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/moderate", bytes.NewReader(encoded))
	if err != nil {
		return empty, fmt.Errorf("textmod check: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, services.Wrap(
			services.ErrTransient, "textmod", "check",
			"Text moderation service unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, services.Wrap(
			services.ErrTransient, "textmod", "check",
			"Failed reading text moderation response", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return empty, services.Wrap(
			services.ErrUnavailable, "textmod", "check",
			fmt.Sprintf("Text moderation service returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, services.Wrap(
			services.ErrExternalTool, "textmod", "check",
			fmt.Sprintf("Text moderation service rejected the request with HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var payload struct {
		Flagged    bool     `json:"flagged"`
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return empty, services.Wrap(
			services.ErrExternalTool, "textmod", "check",
			"Text moderation service returned malformed JSON", err)
	}
	return Result{Flagged: payload.Flagged, Categories: payload.Categories}, nil
}

// Ping checks service reachability for health reporting.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("textmod ping: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "textmod", "ping", "Text moderation service unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return services.Wrap(services.ErrUnavailable, "textmod", "ping",
			fmt.Sprintf("Text moderation health returned HTTP %d", resp.StatusCode), nil)
	}
	return nil
}
