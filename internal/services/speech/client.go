package speech

import (
	"context"
	"encoding/json"
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

// Transcript is the speech-to-text result for a clip's audio track.
type Transcript struct {
	Text     string
	Language string
}

// Client wraps the speech-to-text HTTP service.
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client
}

// Option customizes the speech client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a speech-to-text client.
func NewClient(endpoint, language string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		language:   strings.TrimSpace(language),
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

// Transcribe uploads a mono 16kHz WAV file and returns its transcript. An
// empty transcript is a valid result for clips with silent audio.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (Transcript, error) {
	var empty Transcript

	in, err := os.Open(audioPath)
	if err != nil {
		return empty, services.Wrap(
			services.ErrValidation, "speech", "transcribe",
			fmt.Sprintf("Cannot open extracted audio %s", audioPath), err)
	}
	defer in.Close()

	endpoint := c.baseURL + "/v1/transcribe"
	if c.language != "" {
		endpoint += "?language=" + url.QueryEscape(c.language)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, in)
	if err != nil {
		return empty, fmt.Errorf("speech transcribe: build request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, services.Wrap(
			services.ErrTransient, "speech", "transcribe",
			"Speech service unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, services.Wrap(
			services.ErrTransient, "speech", "transcribe",
			"Failed reading speech service response", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return empty, services.Wrap(
			services.ErrUnavailable, "speech", "transcribe",
			fmt.Sprintf("Speech service returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, services.Wrap(
			services.ErrExternalTool, "speech", "transcribe",
			fmt.Sprintf("Speech service rejected the audio with HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var payload struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return empty, services.Wrap(
			services.ErrExternalTool, "speech", "transcribe",
			"Speech service returned malformed JSON", err)
	}
	return Transcript{Text: strings.TrimSpace(payload.Text), Language: payload.Language}, nil
}

// Ping checks service reachability for health reporting.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("speech ping: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "speech", "ping", "Speech service unreachable", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return services.Wrap(services.ErrUnavailable, "speech", "ping",
			fmt.Sprintf("Speech service health returned HTTP %d", resp.StatusCode), nil)
	}
	return nil
}
