package services

import (
	"context"
	"testing"
)

func TestItemIDRoundTrip(t *testing.T) {
	ctx := WithItemID(context.Background(), 42)
	id, ok := ItemIDFromContext(ctx)
	if !ok || id != 42 {
		t.Fatalf("got (%d, %v), want (42, true)", id, ok)
	}

	if _, ok := ItemIDFromContext(context.Background()); ok {
		t.Fatal("expected no item id on empty context")
	}
}

func TestStageAndRequestID(t *testing.T) {
	ctx := WithStage(context.Background(), "moderate")
	ctx = WithRequestID(ctx, "req-123")

	if stage, ok := StageFromContext(ctx); !ok || stage != "moderate" {
		t.Fatalf("stage = (%q, %v)", stage, ok)
	}
	if rid, ok := RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("request id = (%q, %v)", rid, ok)
	}

	// Empty values must not be stored.
	if _, ok := StageFromContext(WithStage(context.Background(), "")); ok {
		t.Fatal("empty stage should not be stored")
	}
}
