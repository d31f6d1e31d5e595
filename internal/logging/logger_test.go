package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"vidgate/internal/services"
)

func TestConsoleHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelInfo)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("stage completed", String(FieldComponent, "workflow"), Int64(FieldItemID, 7), String("next_status", "pending_moderation"))

	out := buf.String()
	if !strings.Contains(out, "INFO workflow: stage completed") {
		t.Fatalf("unexpected output: %q", out)
	}
	if !strings.Contains(out, "item_id=7") || !strings.Contains(out, "next_status=pending_moderation") {
		t.Fatalf("missing attrs: %q", out)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("message", String("reason", "contains blocked phrase"))

	if !strings.Contains(buf.String(), `reason="contains blocked phrase"`) {
		t.Fatalf("expected quoted value: %q", buf.String())
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	base := slog.New(newConsoleHandler(&buf, lvl, false))

	ctx := services.WithItemID(context.Background(), 12)
	ctx = services.WithStage(ctx, "ingest")
	WithContext(ctx, base).Info("hello")

	out := buf.String()
	if !strings.Contains(out, "item_id=12") || !strings.Contains(out, "stage=ingest") {
		t.Fatalf("context fields missing: %q", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerIsSilent(t *testing.T) {
	logger := NewNop()
	logger.Error("should not panic", Error(nil))
}
