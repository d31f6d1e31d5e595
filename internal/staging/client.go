package staging

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidgate/internal/services"
)

const defaultHTTPTimeout = 30 * time.Second

// Client wraps the staging object store HTTP API. Objects live at
// /{bucket}/{key} and support PUT, HEAD, GET, and DELETE.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes the staging client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a staging object store client.
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

// Put streams a local file into the store and returns its staging URI.
func (c *Client) Put(ctx context.Context, bucket, key, localPath string) (string, error) {
	in, err := os.Open(localPath)
	if err != nil {
		return "", services.Wrap(
			services.ErrValidation, "staging", "put object",
			fmt.Sprintf("Cannot open %s for upload", localPath), err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", services.Wrap(
			services.ErrValidation, "staging", "put object",
			fmt.Sprintf("Cannot stat %s for upload", localPath), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.objectURL(bucket, key), in)
	if err != nil {
		return "", fmt.Errorf("staging put: build request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError("put object", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", statusError("put object", resp)
	}
	return URIFor(bucket, key), nil
}

// Exists reports whether an object is present in the store.
func (c *Client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.objectURL(bucket, key), nil)
	if err != nil {
		return false, fmt.Errorf("staging head: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, transportError("head object", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= http.StatusMultipleChoices:
		return false, statusError("head object", resp)
	default:
		return true, nil
	}
}

// Fetch downloads an object into destPath.
func (c *Client) Fetch(ctx context.Context, bucket, key, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.objectURL(bucket, key), nil)
	if err != nil {
		return fmt.Errorf("staging get: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError("get object", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return services.Wrap(
			services.ErrNotFound, "staging", "get object",
			fmt.Sprintf("Staged object %s is gone; the item must restart from ingestion", URIFor(bucket, key)), nil)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return statusError("get object", resp)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("staging get: create destination directory: %w", err)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("staging get: create destination: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = os.Remove(destPath)
		return transportError("get object", err)
	}
	return out.Close()
}

// Delete removes an object. A missing object is not an error so cleanup can
// run on every exit path without tracking what was uploaded.
func (c *Client) Delete(ctx context.Context, bucket, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.objectURL(bucket, key), nil)
	if err != nil {
		return fmt.Errorf("staging delete: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError("delete object", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return statusError("delete object", resp)
	}
	return nil
}

// RemoveURI deletes the object referenced by a staging URI.
func (c *Client) RemoveURI(ctx context.Context, uri string) error {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return err
	}
	return c.Delete(ctx, bucket, key)
}

// FetchURI downloads the object referenced by a staging URI.
func (c *Client) FetchURI(ctx context.Context, uri, destPath string) error {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return err
	}
	return c.Fetch(ctx, bucket, key, destPath)
}

// ExistsURI checks presence via a staging URI.
func (c *Client) ExistsURI(ctx context.Context, uri string) (bool, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return false, err
	}
	return c.Exists(ctx, bucket, key)
}

// Ping verifies the store responds at all, for stage health checks.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("staging ping: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError("ping", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return statusError("ping", resp)
	}
	return nil
}

func (c *Client) objectURL(bucket, key string) string {
	return c.baseURL + "/" + url.PathEscape(bucket) + "/" + escapeKey(key)
}

func escapeKey(key string) string {
	parts := strings.Split(strings.TrimPrefix(key, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func transportError(operation string, err error) error {
	return services.Wrap(
		services.ErrTransient, "staging", operation,
		"Staging store unreachable; the item can be retried", err)
}

func statusError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := strings.TrimSpace(string(body))
	message := fmt.Sprintf("Staging store returned HTTP %d", resp.StatusCode)
	if detail != "" {
		message = fmt.Sprintf("%s: %s", message, detail)
	}
	marker := services.ErrStorage
	if resp.StatusCode >= http.StatusInternalServerError {
		marker = services.ErrUnavailable
	}
	return services.Wrap(marker, "staging", operation, message, nil)
}
