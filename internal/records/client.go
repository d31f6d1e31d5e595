// Package records notifies the downstream content systems that own posts,
// comments, and thread messages about moderation outcomes.
package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vidgate/internal/queue"
	"vidgate/internal/services"
)

const defaultHTTPTimeout = 15 * time.Second

// Update is the payload pushed to the owning system after a verdict.
type Update struct {
	ItemKey          string   `json:"item_key"`
	Status           string   `json:"status"`
	PublicURL        string   `json:"public_url,omitempty"`
	ThumbnailURL     string   `json:"thumbnail_url,omitempty"`
	RejectionReasons []string `json:"rejection_reasons,omitempty"`
}

// Updater routes record updates to the endpoint that owns each item kind.
type Updater struct {
	endpoints  map[queue.Kind]string
	httpClient *http.Client
}

// Option customizes the updater.
type Option func(*Updater)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(u *Updater) {
		if client != nil {
			u.httpClient = client
		}
	}
}

// NewUpdater constructs an Updater with one endpoint per item kind.
func NewUpdater(postEndpoint, commentEndpoint, messageEndpoint string, timeout time.Duration, opts ...Option) *Updater {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	updater := &Updater{
		endpoints: map[queue.Kind]string{
			queue.KindPrimaryPost:   strings.TrimRight(strings.TrimSpace(postEndpoint), "/"),
			queue.KindReplyComment:  strings.TrimRight(strings.TrimSpace(commentEndpoint), "/"),
			queue.KindThreadMessage: strings.TrimRight(strings.TrimSpace(messageEndpoint), "/"),
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(updater)
	}
	if updater.httpClient == nil {
		updater.httpClient = &http.Client{Timeout: timeout}
	}
	return updater
}

// Send pushes the update to the system owning the item's kind.
func (u *Updater) Send(ctx context.Context, kind queue.Kind, update Update) error {
	endpoint, ok := u.endpoints[kind]
	if !ok || endpoint == "" {
		return services.Wrap(
			services.ErrConfiguration, "records", "send update",
			fmt.Sprintf("No record endpoint configured for kind %q", kind), nil)
	}

	encoded, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("records send: encode update: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("records send: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return services.Wrap(
			services.ErrTransient, "records", "send update",
			"Record system unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		marker := services.ErrExternalTool
		if resp.StatusCode >= http.StatusInternalServerError {
			marker = services.ErrUnavailable
		}
		return services.Wrap(marker, "records", "send update",
			fmt.Sprintf("Record system returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	return nil
}
