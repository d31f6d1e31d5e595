package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vidgate/internal/queue"
	"vidgate/internal/testsupport"
)

type fakeCDN struct {
	published   map[string]string
	failKey     string
	failErr     error
	readyErr    error
	waited      []string
	unpublished []string
}

func (f *fakeCDN) Publish(ctx context.Context, key, localPath, contentType string) (string, error) {
	if f.failKey != "" && strings.HasSuffix(key, f.failKey) {
		return "", f.failErr
	}
	if f.published == nil {
		f.published = make(map[string]string)
	}
	f.published[key] = contentType
	return "https://cdn.example/content/" + key, nil
}

func (f *fakeCDN) WaitReady(ctx context.Context, publicURL string, interval, timeout time.Duration) error {
	f.waited = append(f.waited, publicURL)
	return f.readyErr
}

func (f *fakeCDN) Unpublish(ctx context.Context, key string) error {
	f.unpublished = append(f.unpublished, key)
	delete(f.published, key)
	return nil
}

type fakeQuarantine struct {
	bucket, key string
}

func (f *fakeQuarantine) Put(ctx context.Context, bucket, key, localPath string) (string, error) {
	f.bucket, f.key = bucket, key
	return "staging://" + bucket + "/" + key, nil
}

func thumbnailStub(t *testing.T) string {
	t.Helper()
	return testsupport.StubBinary(t, "ffmpeg", `for a; do last=$a; done
printf jpeg > "$last"`)
}

func writeClipFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "normalized.mp4")
	if err := os.WriteFile(path, []byte("clip"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	return path
}

func TestPublishApproved(t *testing.T) {
	cdnFake := &fakeCDN{}
	publisher := New(Options{
		CDN:           cdnFake,
		FFmpegBinary:  thumbnailStub(t),
		ReadyInterval: time.Millisecond,
		ReadyTimeout:  time.Second,
	})
	item := &queue.Item{ItemKey: "abc", Kind: queue.KindPrimaryPost}

	result, err := publisher.PublishApproved(context.Background(), item, writeClipFile(t))
	if err != nil {
		t.Fatalf("PublishApproved: %v", err)
	}
	if result.PublicURL != "https://cdn.example/content/items/abc/clip.mp4" {
		t.Fatalf("public url = %s", result.PublicURL)
	}
	if result.ThumbnailURL != "https://cdn.example/content/items/abc/thumbnail.jpg" {
		t.Fatalf("thumbnail url = %s", result.ThumbnailURL)
	}
	if cdnFake.published["items/abc/clip.mp4"] != "video/mp4" {
		t.Fatalf("published = %v", cdnFake.published)
	}
	if len(cdnFake.waited) != 1 || cdnFake.waited[0] != result.PublicURL {
		t.Fatalf("ready checks = %v", cdnFake.waited)
	}
}

func TestPublishApprovedFailsWhenEdgeNeverReady(t *testing.T) {
	readyErr := errors.New("edge never converged")
	cdnFake := &fakeCDN{readyErr: readyErr}
	publisher := New(Options{
		CDN:          cdnFake,
		FFmpegBinary: thumbnailStub(t),
	})
	item := &queue.Item{ItemKey: "abc", Kind: queue.KindPrimaryPost}

	_, err := publisher.PublishApproved(context.Background(), item, writeClipFile(t))
	if !errors.Is(err, readyErr) {
		t.Fatalf("err = %v, want ready failure", err)
	}
	// Both uploads land before the ready check, so both come back down.
	want := map[string]bool{"items/abc/clip.mp4": true, "items/abc/thumbnail.jpg": true}
	if len(cdnFake.unpublished) != 2 {
		t.Fatalf("unpublished = %v", cdnFake.unpublished)
	}
	for _, key := range cdnFake.unpublished {
		if !want[key] {
			t.Fatalf("unexpected unpublish of %s", key)
		}
	}
	if len(cdnFake.published) != 0 {
		t.Fatalf("objects left at origin: %v", cdnFake.published)
	}
}

func TestPublishApprovedSurvivesThumbnailUploadFailure(t *testing.T) {
	cdnFake := &fakeCDN{failKey: "thumbnail.jpg", failErr: errors.New("origin 503")}
	publisher := New(Options{
		CDN:          cdnFake,
		FFmpegBinary: thumbnailStub(t),
	})
	item := &queue.Item{ItemKey: "abc", Kind: queue.KindPrimaryPost}

	result, err := publisher.PublishApproved(context.Background(), item, writeClipFile(t))
	if err != nil {
		t.Fatalf("PublishApproved: %v", err)
	}
	if result.PublicURL != "https://cdn.example/content/items/abc/clip.mp4" {
		t.Fatalf("public url = %s", result.PublicURL)
	}
	if result.ThumbnailURL != "" {
		t.Fatalf("thumbnail url = %s, want empty", result.ThumbnailURL)
	}
	if cdnFake.published["items/abc/clip.mp4"] != "video/mp4" {
		t.Fatalf("published = %v", cdnFake.published)
	}
}

func TestPublishApprovedSurvivesThumbnailGrabFailure(t *testing.T) {
	cdnFake := &fakeCDN{}
	publisher := New(Options{
		CDN: cdnFake,
		// Stub fails and the placeholder write target is unwritable, so
		// even the fallback artwork cannot be produced.
		FFmpegBinary: testsupport.StubBinary(t, "ffmpeg", "exit 1"),
	})
	item := &queue.Item{ItemKey: "abc", Kind: queue.KindPrimaryPost}
	clipPath := filepath.Join(t.TempDir(), "missing", "normalized.mp4")

	result, err := publisher.PublishApproved(context.Background(), item, clipPath)
	if err != nil {
		t.Fatalf("PublishApproved: %v", err)
	}
	if result.ThumbnailURL != "" {
		t.Fatalf("thumbnail url = %s, want empty", result.ThumbnailURL)
	}
}

func TestThumbnailFallsBackToPlaceholder(t *testing.T) {
	failing := testsupport.StubBinary(t, "ffmpeg", "exit 1")
	dest := filepath.Join(t.TempDir(), "thumb.jpg")

	if err := Thumbnail(context.Background(), failing, "missing.mp4", dest, queue.KindReplyComment, time.Second); err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	first, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read placeholder: %v", err)
	}
	if len(first) < 2 || first[0] != 0xFF || first[1] != 0xD8 {
		t.Fatal("placeholder is not a JPEG")
	}

	// Same kind yields byte-identical artwork.
	dest2 := filepath.Join(t.TempDir(), "thumb2.jpg")
	if err := Thumbnail(context.Background(), failing, "missing.mp4", dest2, queue.KindReplyComment, time.Second); err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	second, err := os.ReadFile(dest2)
	if err != nil {
		t.Fatalf("read second placeholder: %v", err)
	}
	if string(first) != string(second) {
		t.Fatal("placeholder should be deterministic per kind")
	}

	dest3 := filepath.Join(t.TempDir(), "thumb3.jpg")
	if err := Thumbnail(context.Background(), failing, "missing.mp4", dest3, queue.KindThreadMessage, time.Second); err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	third, _ := os.ReadFile(dest3)
	if string(first) == string(third) {
		t.Fatal("different kinds should get different artwork")
	}
}

func TestQuarantineRejected(t *testing.T) {
	store := &fakeQuarantine{}
	publisher := New(Options{Quarantine: store, QuarantineBucket: "quarantine"})
	item := &queue.Item{ItemKey: "abc"}

	source := filepath.Join(t.TempDir(), "upload.mov")
	if err := os.WriteFile(source, []byte("raw"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	ref, err := publisher.QuarantineRejected(context.Background(), item, source)
	if err != nil {
		t.Fatalf("QuarantineRejected: %v", err)
	}
	if store.bucket != "quarantine" || !strings.HasSuffix(store.key, "items/abc/source.mov") {
		t.Fatalf("stored %s/%s", store.bucket, store.key)
	}
	if ref != "staging://quarantine/items/abc/source.mov" {
		t.Fatalf("ref = %s", ref)
	}
}
