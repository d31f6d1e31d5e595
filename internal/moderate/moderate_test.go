package moderate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vidgate/internal/config"
	"vidgate/internal/moderation"
	"vidgate/internal/publish"
	"vidgate/internal/queue"
	"vidgate/internal/records"
	"vidgate/internal/services"
	"vidgate/internal/staging"
	"vidgate/internal/testsupport"
	"vidgate/internal/transcode"
)

type fakeStaging struct {
	objects map[string][]byte
	removed []string
	fetched int
}

func newFakeStaging() *fakeStaging {
	return &fakeStaging{objects: make(map[string][]byte)}
}

func (f *fakeStaging) Put(ctx context.Context, bucket, key, localPath string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	uri := staging.URIFor(bucket, key)
	f.objects[uri] = data
	return uri, nil
}

func (f *fakeStaging) ExistsURI(ctx context.Context, uri string) (bool, error) {
	_, ok := f.objects[uri]
	return ok, nil
}

func (f *fakeStaging) FetchURI(ctx context.Context, uri, destPath string) error {
	data, ok := f.objects[uri]
	if !ok {
		return services.Wrap(services.ErrNotFound, "staging", "fetch object", "object is gone", nil)
	}
	f.fetched++
	return os.WriteFile(destPath, data, 0o644)
}

func (f *fakeStaging) RemoveURI(ctx context.Context, uri string) error {
	f.removed = append(f.removed, uri)
	delete(f.objects, uri)
	return nil
}

func (f *fakeStaging) Ping(ctx context.Context) error { return nil }

type fakeVisual struct {
	result   moderation.VisualResult
	err      error
	panicMsg string
}

func (f *fakeVisual) Classify(ctx context.Context, clipPath, scratchDir string) (moderation.VisualResult, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.result, f.err
}

type fakeAudio struct {
	result   moderation.AudioResult
	err      error
	hasAudio bool
	panicMsg string
}

func (f *fakeAudio) Classify(ctx context.Context, clipPath, scratchDir string, hasAudio bool) (moderation.AudioResult, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.hasAudio = hasAudio
	return f.result, f.err
}

type fakePublisher struct {
	published     int
	quarantined   int
	publishErr    error
	quarantineErr error
	lastClipPath  string
	lastSource    string
}

func (f *fakePublisher) PublishApproved(ctx context.Context, item *queue.Item, clipPath string) (publish.Result, error) {
	if f.publishErr != nil {
		return publish.Result{}, f.publishErr
	}
	f.published++
	f.lastClipPath = clipPath
	return publish.Result{
		PublicURL:    "https://cdn.example/content/items/" + item.ItemKey + "/clip.mp4",
		ThumbnailURL: "https://cdn.example/content/items/" + item.ItemKey + "/thumbnail.jpg",
	}, nil
}

func (f *fakePublisher) QuarantineRejected(ctx context.Context, item *queue.Item, sourcePath string) (string, error) {
	f.quarantined++
	f.lastSource = sourcePath
	if f.quarantineErr != nil {
		return "", f.quarantineErr
	}
	return staging.URIFor("quarantine", staging.KeyFor(item.ItemKey, "source.mov")), nil
}

type fakeRecords struct {
	updates []records.Update
	err     error
}

func (f *fakeRecords) Send(ctx context.Context, kind queue.Kind, update records.Update) error {
	if f.err != nil {
		return f.err
	}
	f.updates = append(f.updates, update)
	return nil
}

type fixture struct {
	mod     *Moderator
	cfg     *config.Config
	store   *queue.Store
	staging *fakeStaging
	visual  *fakeVisual
	audio   *fakeAudio
	pub     *fakePublisher
	recs    *fakeRecords
	item    *queue.Item
}

func passingVisual() moderation.VisualResult {
	return moderation.VisualResult{Passed: true, FrameCount: 10}
}

func passingAudio() moderation.AudioResult {
	return moderation.AudioResult{Passed: true, Transcript: "hello there"}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	f := &fixture{
		cfg:     cfg,
		store:   store,
		staging: newFakeStaging(),
		visual:  &fakeVisual{result: passingVisual()},
		audio:   &fakeAudio{result: passingAudio()},
		pub:     &fakePublisher{},
		recs:    &fakeRecords{},
	}
	f.mod = New(cfg, store, slog.New(slog.NewTextHandler(io.Discard, nil)), Deps{
		Staging: f.staging,
		Visual:  f.visual,
		Audio:   f.audio,
		Publish: f.pub,
		Records: f.recs,
	})
	f.mod.probe = func(ctx context.Context, probeBinary, path string) (transcode.ProbeResult, error) {
		return transcode.ProbeResult{HasVideo: true, HasAudio: true, Duration: 9.5}, nil
	}

	ctx := context.Background()
	source := testsupport.WriteSourceFile(t, cfg, "upload.mov", "raw upload bytes")
	item, err := store.NewItem(ctx, source, queue.KindPrimaryPost, 9.5)
	if err != nil {
		t.Fatalf("NewItem: %v", err)
	}

	// Simulate a completed ingest: normalized clip on disk plus staged copy.
	scratch := cfg.ScratchDirFor(item.ItemKey)
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		t.Fatalf("mkdir scratch: %v", err)
	}
	clip := filepath.Join(scratch, "normalized.mp4")
	if err := os.WriteFile(clip, []byte("normalized"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	uri := staging.URIFor(cfg.Staging.Bucket, staging.KeyFor(item.ItemKey, "normalized.mp4"))
	f.staging.objects[uri] = []byte("normalized")
	item.NormalizedPath = clip
	item.StagingURI = uri
	if err := store.Transition(ctx, item, queue.StatusPendingModeration); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	f.item = item
	return f
}

func (f *fixture) assertArtifactsGone(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(f.cfg.ScratchDirFor(f.item.ItemKey)); !os.IsNotExist(err) {
		t.Fatalf("scratch directory still present: %v", err)
	}
	if len(f.staging.removed) == 0 {
		t.Fatal("staging object was never removed")
	}
}

func TestExecuteApprovesAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.mod.Prepare(ctx, f.item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := f.mod.Execute(ctx, f.item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if f.item.Status != queue.StatusApproved {
		t.Fatalf("status = %q, want %q", f.item.Status, queue.StatusApproved)
	}
	if f.pub.published != 1 {
		t.Fatalf("published = %d, want 1", f.pub.published)
	}
	if f.item.PublicURL == "" || f.item.ThumbnailURL == "" {
		t.Fatalf("missing CDN URLs: %q %q", f.item.PublicURL, f.item.ThumbnailURL)
	}
	if f.item.DecisionJSON == "" {
		t.Fatal("decision JSON not recorded")
	}
	decision, err := moderation.DecodeDecision(f.item.DecisionJSON)
	if err != nil {
		t.Fatalf("DecodeDecision: %v", err)
	}
	if !decision.Approved {
		t.Fatal("recorded decision should be an approval")
	}
	if len(f.recs.updates) != 1 || f.recs.updates[0].Status != string(queue.StatusApproved) {
		t.Fatalf("record updates = %+v", f.recs.updates)
	}
	if _, err := os.Stat(f.item.SourcePath); !os.IsNotExist(err) {
		t.Fatal("source upload should be deleted once published")
	}
	f.assertArtifactsGone(t)
}

func TestExecuteRejectsAndQuarantines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.visual.result = moderation.VisualResult{
		Passed:   false,
		Reasons:  []string{"3 frames classified VERY_LIKELY"},
		TopLevel: 3, FrameCount: 10,
	}
	source := f.item.SourcePath

	if err := f.mod.Execute(ctx, f.item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if f.item.Status != queue.StatusRejected {
		t.Fatalf("status = %q, want %q", f.item.Status, queue.StatusRejected)
	}
	if f.pub.quarantined != 1 || f.pub.published != 0 {
		t.Fatalf("quarantined=%d published=%d", f.pub.quarantined, f.pub.published)
	}
	if f.pub.lastSource != source {
		t.Fatalf("quarantined %q, want the source upload %q", f.pub.lastSource, source)
	}
	if f.item.QuarantineRef == "" {
		t.Fatal("quarantine reference not recorded")
	}
	if len(f.recs.updates) != 1 || len(f.recs.updates[0].RejectionReasons) == 0 {
		t.Fatalf("record updates = %+v", f.recs.updates)
	}
	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Fatal("source upload should be deleted once quarantined")
	}
	f.assertArtifactsGone(t)
}

func TestQuarantineFailureKeepsVerdictAndSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.visual.result = moderation.VisualResult{
		Passed:   false,
		Reasons:  []string{"3 frames classified VERY_LIKELY"},
		TopLevel: 3, FrameCount: 10,
	}
	f.pub.quarantineErr = errors.New("bucket unavailable")
	source := f.item.SourcePath

	if err := f.mod.Execute(ctx, f.item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if f.item.Status != queue.StatusRejected {
		t.Fatalf("status = %q, want %q", f.item.Status, queue.StatusRejected)
	}
	if f.item.QuarantineRef != "" {
		t.Fatalf("quarantine ref recorded despite failure: %q", f.item.QuarantineRef)
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatalf("source upload must survive a failed quarantine: %v", err)
	}
	f.assertArtifactsGone(t)
}

func TestExecuteFailsClosedOnVisualError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.visual.err = services.Wrap(services.ErrUnavailable, "vision", "classify frames", "service down", nil)

	err := f.mod.Execute(ctx, f.item)
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("Execute error = %v, want ErrUnavailable", err)
	}
	if f.pub.published != 0 || f.pub.quarantined != 0 {
		t.Fatal("nothing may be published or quarantined without a verdict")
	}
	// Even a failed run must not leak artifacts.
	f.assertArtifactsGone(t)
	if _, statErr := os.Stat(f.item.SourcePath); statErr != nil {
		t.Fatalf("source upload must survive a failed run: %v", statErr)
	}
}

func TestExecuteApprovesOnVisualAloneWhenAudioInfraDown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.audio.err = services.Wrap(services.ErrUnavailable, "speech", "transcribe", "service down", nil)

	if err := f.mod.Execute(ctx, f.item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if f.item.Status != queue.StatusApproved {
		t.Fatalf("status = %q, want %q", f.item.Status, queue.StatusApproved)
	}
	decision, err := moderation.DecodeDecision(f.item.DecisionJSON)
	if err != nil {
		t.Fatalf("DecodeDecision: %v", err)
	}
	if !decision.AudioSkipped {
		t.Fatal("decision should record the skipped audio pass")
	}
}

func TestExecuteFailsClosedOnSemanticAudioError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.audio.err = services.Wrap(services.ErrExternalTool, "speech", "transcribe", "audio track rejected", nil)

	err := f.mod.Execute(ctx, f.item)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("Execute error = %v, want ErrExternalTool", err)
	}
	if f.pub.published != 0 {
		t.Fatal("clip must not reach the CDN on a semantic audio failure")
	}
	f.assertArtifactsGone(t)
}

func TestExecuteContainsVisualClassifierPanic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.visual.panicMsg = "nil annotation page"
	source := f.item.SourcePath

	err := f.mod.Execute(ctx, f.item)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("Execute error = %v, want ErrExternalTool", err)
	}
	if !strings.Contains(err.Error(), "nil annotation page") {
		t.Fatalf("panic value lost from error: %v", err)
	}
	if f.pub.published != 0 || f.pub.quarantined != 0 {
		t.Fatal("no verdict may be acted on after a classifier panic")
	}
	if _, statErr := os.Stat(source); statErr != nil {
		t.Fatalf("source upload must survive for retry: %v", statErr)
	}
	f.assertArtifactsGone(t)
}

func TestExecuteContainsAudioClassifierPanic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.audio.panicMsg = "segment index out of range"

	// An audio panic is not an infrastructure error, so it fails closed
	// rather than degrading to a visual-only verdict.
	err := f.mod.Execute(ctx, f.item)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("Execute error = %v, want ErrExternalTool", err)
	}
	if f.pub.published != 0 {
		t.Fatal("clip must not reach the CDN after an audio classifier panic")
	}
	f.assertArtifactsGone(t)
}

func TestExecuteRefetchesMissingClip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := os.Remove(f.item.NormalizedPath); err != nil {
		t.Fatalf("remove clip: %v", err)
	}
	f.item.NormalizedPath = ""

	if err := f.mod.Execute(ctx, f.item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if f.staging.fetched != 1 {
		t.Fatalf("fetched = %d, want 1", f.staging.fetched)
	}
	if f.item.Status != queue.StatusApproved {
		t.Fatalf("status = %q, want %q", f.item.Status, queue.StatusApproved)
	}
}

func TestPrepareReuploadsFromLocalCheckpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Staged object lost, normalized clip still on disk.
	delete(f.staging.objects, f.item.StagingURI)
	if err := f.mod.Prepare(ctx, f.item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if _, ok := f.staging.objects[f.item.StagingURI]; !ok {
		t.Fatal("clip was not re-staged from the local checkpoint")
	}
}

func TestPrepareFailsClosedWithoutAnyCheckpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	delete(f.staging.objects, f.item.StagingURI)
	if err := os.Remove(f.item.NormalizedPath); err != nil {
		t.Fatalf("remove clip: %v", err)
	}
	if err := f.mod.Prepare(ctx, f.item); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("Prepare error = %v, want ErrValidation", err)
	}

	f.item.StagingURI = ""
	if err := f.mod.Prepare(ctx, f.item); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("Prepare error = %v, want ErrValidation", err)
	}
}

func TestRecordFailureDoesNotFailItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.recs.err = services.Wrap(services.ErrTransient, "records", "send update", "endpoint down", nil)

	if err := f.mod.Execute(ctx, f.item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if f.item.Status != queue.StatusApproved {
		t.Fatalf("status = %q, want %q", f.item.Status, queue.StatusApproved)
	}
}

func TestExecutePassesAudioPresenceToClassifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.mod.probe = func(ctx context.Context, probeBinary, path string) (transcode.ProbeResult, error) {
		return transcode.ProbeResult{HasVideo: true, HasAudio: false}, nil
	}

	if err := f.mod.Execute(ctx, f.item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if f.audio.hasAudio {
		t.Fatal("classifier told the clip has audio when the probe said otherwise")
	}
}
