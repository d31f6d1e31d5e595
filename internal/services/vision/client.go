package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"vidgate/internal/services"
)

const defaultHTTPTimeout = 60 * time.Second

// FrameResult is the classifier verdict for a single sampled frame.
type FrameResult struct {
	Frame      string
	Likelihood Likelihood
}

// Client wraps the visual classification HTTP service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes the vision client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a visual classifier client.
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

type annotateRequest struct {
	Images []annotateImage `json:"images"`
}

type annotateImage struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type annotateResponse struct {
	Results []struct {
		Name       string `json:"name"`
		Likelihood string `json:"likelihood"`
	} `json:"results"`
}

// ClassifyFrames submits sampled frames in one batch and returns a verdict
// per frame in the same order.
func (c *Client) ClassifyFrames(ctx context.Context, framePaths []string) ([]FrameResult, error) {
	if len(framePaths) == 0 {
		return nil, services.Wrap(
			services.ErrValidation, "vision", "classify frames",
			"No frames were sampled from the clip", nil)
	}

	request := annotateRequest{Images: make([]annotateImage, 0, len(framePaths))}
	for _, path := range framePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, services.Wrap(
				services.ErrValidation, "vision", "classify frames",
				fmt.Sprintf("Cannot read sampled frame %s", path), err)
		}
		request.Images = append(request.Images, annotateImage{
			Name:    path,
			Content: base64.StdEncoding.EncodeToString(data),
		})
	}

	encoded, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("vision classify: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/frames:annotate", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("vision classify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(
			services.ErrTransient, "vision", "classify frames",
			"Vision service unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(
			services.ErrTransient, "vision", "classify frames",
			"Failed reading vision service response", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, services.Wrap(
			services.ErrUnavailable, "vision", "classify frames",
			fmt.Sprintf("Vision service returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.Wrap(
			services.ErrExternalTool, "vision", "classify frames",
			fmt.Sprintf("Vision service rejected the batch with HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var payload annotateResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, services.Wrap(
			services.ErrExternalTool, "vision", "classify frames",
			"Vision service returned malformed JSON", err)
	}
	if len(payload.Results) != len(framePaths) {
		return nil, services.Wrap(
			services.ErrExternalTool, "vision", "classify frames",
			fmt.Sprintf("Vision service returned %d results for %d frames", len(payload.Results), len(framePaths)), nil)
	}

	results := make([]FrameResult, 0, len(payload.Results))
	for i, entry := range payload.Results {
		name := entry.Name
		if name == "" {
			name = framePaths[i]
		}
		results = append(results, FrameResult{
			Frame:      name,
			Likelihood: Likelihood(strings.ToUpper(strings.TrimSpace(entry.Likelihood))),
		})
	}
	return results, nil
}

// Ping checks service reachability for health reporting.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("vision ping: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "vision", "ping", "Vision service unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return services.Wrap(services.ErrUnavailable, "vision", "ping",
			fmt.Sprintf("Vision service health returned HTTP %d", resp.StatusCode), nil)
	}
	return nil
}
