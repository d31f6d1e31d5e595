package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"vidgate/internal/queue"
	"vidgate/internal/services"
	"vidgate/internal/staging"
	"vidgate/internal/testsupport"
	"vidgate/internal/transcode"
)

type fakeNormalizer struct {
	err    error
	rung   transcode.Rung
	called bool
}

func (f *fakeNormalizer) Normalize(ctx context.Context, sourcePath, outputDir string, durationHint float64, progress func(transcode.ProgressUpdate)) (transcode.Result, error) {
	f.called = true
	if f.err != nil {
		return transcode.Result{}, f.err
	}
	if progress != nil {
		progress(transcode.ProgressUpdate{Stage: "Remuxing", Message: "Remuxing container", Percent: 25})
	}
	output := filepath.Join(outputDir, "normalized.mp4")
	if err := os.WriteFile(output, []byte("normalized"), 0o644); err != nil {
		return transcode.Result{}, err
	}
	rung := f.rung
	if rung == "" {
		rung = transcode.RungRemux
	}
	return transcode.Result{OutputPath: output, Rung: rung, Duration: 9.5, Width: 640, Height: 360}, nil
}

type fakeStaging struct {
	objects map[string]string
	putErr  error
	removed []string
	puts    int
}

func newFakeStaging() *fakeStaging {
	return &fakeStaging{objects: make(map[string]string)}
}

func (f *fakeStaging) Put(ctx context.Context, bucket, key, localPath string) (string, error) {
	f.puts++
	if f.putErr != nil {
		return "", f.putErr
	}
	uri := staging.URIFor(bucket, key)
	f.objects[uri] = localPath
	return uri, nil
}

func (f *fakeStaging) ExistsURI(ctx context.Context, uri string) (bool, error) {
	_, ok := f.objects[uri]
	return ok, nil
}

func (f *fakeStaging) RemoveURI(ctx context.Context, uri string) error {
	f.removed = append(f.removed, uri)
	delete(f.objects, uri)
	return nil
}

func (f *fakeStaging) Ping(ctx context.Context) error { return nil }

func newTestIngester(t *testing.T) (*Ingester, *queue.Store, *fakeStaging, *fakeNormalizer) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	fs := newFakeStaging()
	fn := &fakeNormalizer{}
	ing := New(cfg, store, slog.New(slog.NewTextHandler(io.Discard, nil)), fs)
	ing.normalizer = fn
	return ing, store, fs, fn
}

func TestExecuteNormalizesAndStages(t *testing.T) {
	ing, store, fs, _ := newTestIngester(t)
	ctx := context.Background()

	source := testsupport.WriteSourceFile(t, ing.cfg, "clip.mov", "raw upload bytes")
	item, err := store.NewItem(ctx, source, queue.KindPrimaryPost, 9.5)
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}

	if err := ing.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := ing.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if item.Status != queue.StatusPendingModeration {
		t.Fatalf("status = %q, want %q", item.Status, queue.StatusPendingModeration)
	}
	if item.StagingURI == "" {
		t.Fatal("expected staging URI to be recorded")
	}
	if _, ok := fs.objects[item.StagingURI]; !ok {
		t.Fatalf("staging object %q not present after upload", item.StagingURI)
	}
	if item.NormalizedPath == "" {
		t.Fatal("expected normalized path to be recorded")
	}
	if _, err := os.Stat(item.NormalizedPath); err != nil {
		t.Fatalf("normalized clip missing: %v", err)
	}
	if item.ProgressPercent != 100 {
		t.Fatalf("progress = %v, want 100", item.ProgressPercent)
	}
}

func TestExecuteSkipsWhenAlreadyStaged(t *testing.T) {
	ing, store, fs, fn := newTestIngester(t)
	ctx := context.Background()

	source := testsupport.WriteSourceFile(t, ing.cfg, "clip.mov", "raw upload bytes")
	item, err := store.NewItem(ctx, source, queue.KindPrimaryPost, 5)
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	uri := staging.URIFor(ing.cfg.Staging.Bucket, staging.KeyFor(item.ItemKey, "normalized.mp4"))
	fs.objects[uri] = "already-there"
	item.StagingURI = uri

	if err := ing.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if fn.called {
		t.Fatal("normalizer ran even though the staged object already existed")
	}
	if fs.puts != 0 {
		t.Fatalf("expected no uploads, got %d", fs.puts)
	}
	if item.Status != queue.StatusPendingModeration {
		t.Fatalf("status = %q, want %q", item.Status, queue.StatusPendingModeration)
	}
}

func TestExecuteCleansScratchOnNormalizeFailure(t *testing.T) {
	ing, store, _, fn := newTestIngester(t)
	ctx := context.Background()
	fn.err = services.Wrap(services.ErrExternalTool, "transcode", "normalize", "unrecoverable", nil)

	source := testsupport.WriteSourceFile(t, ing.cfg, "clip.mov", "raw upload bytes")
	item, err := store.NewItem(ctx, source, queue.KindPrimaryPost, 5)
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}

	if err := ing.Execute(ctx, item); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("Execute error = %v, want ErrExternalTool", err)
	}
	if _, statErr := os.Stat(ing.cfg.ScratchDirFor(item.ItemKey)); !os.IsNotExist(statErr) {
		t.Fatalf("scratch directory survived a failed normalize: %v", statErr)
	}
	if item.Status != queue.StatusUploading {
		t.Fatalf("status = %q, want it untouched on failure", item.Status)
	}
}

func TestExecuteCleansUpOnUploadFailure(t *testing.T) {
	ing, store, fs, _ := newTestIngester(t)
	ctx := context.Background()
	fs.putErr = services.Wrap(services.ErrUnavailable, "staging", "put object", "store down", nil)

	source := testsupport.WriteSourceFile(t, ing.cfg, "clip.mov", "raw upload bytes")
	item, err := store.NewItem(ctx, source, queue.KindPrimaryPost, 5)
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}

	if err := ing.Execute(ctx, item); !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("Execute error = %v, want ErrUnavailable", err)
	}
	if _, statErr := os.Stat(ing.cfg.ScratchDirFor(item.ItemKey)); !os.IsNotExist(statErr) {
		t.Fatal("scratch directory survived a failed upload")
	}
	if item.StagingURI != "" {
		t.Fatalf("staging URI = %q, want empty after failure", item.StagingURI)
	}
}

func TestPrepareRejectsMissingSource(t *testing.T) {
	ing, store, _, _ := newTestIngester(t)
	ctx := context.Background()

	item, err := store.NewItem(ctx, filepath.Join(t.TempDir(), "nope.mov"), queue.KindPrimaryPost, 5)
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}
	if err := ing.Prepare(ctx, item); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("Prepare error = %v, want ErrValidation", err)
	}
}
