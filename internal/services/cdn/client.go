package cdn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"vidgate/internal/services"
)

const defaultHTTPTimeout = 60 * time.Second

// Client wraps the public CDN origin API. Published objects become publicly
// addressable once the edge reports them ready.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes the CDN client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a CDN origin client.
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

// Publish uploads a local file under the given key and returns the public URL.
func (c *Client) Publish(ctx context.Context, key, localPath, contentType string) (string, error) {
	in, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(
			services.ErrValidation, "cdn", "publish",
			fmt.Sprintf("Cannot open %s for publishing", localPath), err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", services.Wrap(
			services.ErrValidation, "cdn", "publish",
			fmt.Sprintf("Cannot stat %s for publishing", localPath), err)
	}

	target := c.contentURL(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, in)
	if err != nil {
		return "", fmt.Errorf("cdn publish: build request: %w", err)
	}
	req.ContentLength = info.Size()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(
			services.ErrTransient, "cdn", "publish",
			"CDN origin unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		marker := services.ErrExternalTool
		if resp.StatusCode >= http.StatusInternalServerError {
			marker = services.ErrUnavailable
		}
		return "", services.Wrap(marker, "cdn", "publish",
			fmt.Sprintf("CDN origin returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	return target, nil
}

// WaitReady polls the published URL until the edge serves it or the deadline
// passes. Publication is not done until the content is actually fetchable.
func (c *Client) WaitReady(ctx context.Context, publicURL string, interval, timeout time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	deadline := time.Now().Add(timeout)

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, publicURL, nil)
		if err != nil {
			return fmt.Errorf("cdn ready check: build request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < http.StatusMultipleChoices {
				return nil
			}
		}

		if time.Now().After(deadline) {
			return services.Wrap(
				services.ErrTimeout, "cdn", "ready check",
				fmt.Sprintf("Published content %s never became fetchable within %s", publicURL, timeout), err)
		}
		select {
		case <-ctx.Done():
			return services.Wrap(services.ErrTimeout, "cdn", "ready check",
				"Ready check cancelled", ctx.Err())
		case <-time.After(interval):
		}
	}
}

// Unpublish removes a previously published object. Missing objects are fine.
func (c *Client) Unpublish(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.contentURL(key), nil)
	if err != nil {
		return fmt.Errorf("cdn unpublish: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "cdn", "unpublish", "CDN origin unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(services.ErrExternalTool, "cdn", "unpublish",
			fmt.Sprintf("CDN origin returned HTTP %d", resp.StatusCode), nil)
	}
	return nil
}

// Ping checks origin reachability for health reporting.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("cdn ping: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "cdn", "ping", "CDN origin unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return services.Wrap(services.ErrUnavailable, "cdn", "ping",
			fmt.Sprintf("CDN origin health returned HTTP %d", resp.StatusCode), nil)
	}
	return nil
}

func (c *Client) contentURL(key string) string {
	parts := strings.Split(strings.TrimPrefix(key, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return c.baseURL + "/content/" + strings.Join(parts, "/")
}
