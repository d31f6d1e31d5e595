package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vidgate/internal/config"
)

const userAgent = "Vidgate-Go/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyItemApproved(ctx context.Context, itemKey, publicURL string) error
	NotifyItemRejected(ctx context.Context, itemKey string, reasons []string) error
	NotifyItemFailed(ctx context.Context, itemKey string, cause error) error
	NotifyQueueStarted(ctx context.Context, count int) error
	NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.Notifications.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		approved: cfg.Notifications.Approved,
		rejected: cfg.Notifications.Rejected,
		errors:   cfg.Notifications.Errors,
		queue:    cfg.Notifications.Queue,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	approved bool
	rejected bool
	errors   bool
	queue    bool
}

func (n *ntfyService) NotifyItemApproved(ctx context.Context, itemKey, publicURL string) error {
	if !n.approved {
		return nil
	}
	message := fmt.Sprintf("Published: %s", strings.TrimSpace(itemKey))
	if publicURL = strings.TrimSpace(publicURL); publicURL != "" {
		message = fmt.Sprintf("%s\n%s", message, publicURL)
	}
	data := payload{
		title:   "Vidgate - Approved",
		message: message,
		tags:    []string{"vidgate", "moderation", "approved"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyItemRejected(ctx context.Context, itemKey string, reasons []string) error {
	if !n.rejected {
		return nil
	}
	message := fmt.Sprintf("Rejected: %s", strings.TrimSpace(itemKey))
	if len(reasons) > 0 {
		message = fmt.Sprintf("%s\n%s", message, strings.Join(reasons, "; "))
	}
	data := payload{
		title:   "Vidgate - Rejected",
		message: message,
		tags:    []string{"vidgate", "moderation", "rejected"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyItemFailed(ctx context.Context, itemKey string, cause error) error {
	if !n.errors {
		return nil
	}
	detail := "unknown"
	if cause != nil {
		detail = strings.TrimSpace(cause.Error())
	}
	data := payload{
		title:    "Vidgate - Item Failed",
		message:  fmt.Sprintf("Processing failed: %s\n%s", strings.TrimSpace(itemKey), detail),
		tags:     []string{"vidgate", "pipeline", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueStarted(ctx context.Context, count int) error {
	if !n.queue {
		return nil
	}
	data := payload{
		title:   "Vidgate - Queue Started",
		message: fmt.Sprintf("Started processing queue with %d items", count),
		tags:    []string{"vidgate", "queue", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	if !n.queue {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title, message string
	if failed == 0 {
		title = "Vidgate - Queue Complete"
		message = fmt.Sprintf("Queue processing complete: %d items processed in %s", processed, durationText)
	} else {
		title = "Vidgate - Queue Complete (with errors)"
		message = fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", processed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"vidgate", "queue", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Vidgate - Error",
		message:  builder.String(),
		tags:     []string{"vidgate", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Vidgate - Test",
		message:  "Notification system test",
		tags:     []string{"vidgate", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyItemApproved(context.Context, string, string) error      { return nil }
func (noopService) NotifyItemRejected(context.Context, string, []string) error    { return nil }
func (noopService) NotifyItemFailed(context.Context, string, error) error         { return nil }
func (noopService) NotifyQueueStarted(context.Context, int) error                 { return nil }
func (noopService) NotifyQueueCompleted(context.Context, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
