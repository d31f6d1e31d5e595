// Package moderate judges staged clips and routes them to the CDN or into
// quarantine. Whatever the verdict, the stage deletes the item's scratch
// directory and staging object before it returns.
package moderate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"vidgate/internal/config"
	"vidgate/internal/fileutil"
	"vidgate/internal/logging"
	"vidgate/internal/moderation"
	"vidgate/internal/publish"
	"vidgate/internal/queue"
	"vidgate/internal/records"
	"vidgate/internal/services"
	"vidgate/internal/stage"
	"vidgate/internal/staging"
	"vidgate/internal/transcode"
)

// StagingClient is the slice of the staging store this stage needs.
type StagingClient interface {
	Put(ctx context.Context, bucket, key, localPath string) (string, error)
	ExistsURI(ctx context.Context, uri string) (bool, error)
	FetchURI(ctx context.Context, uri, destPath string) error
	RemoveURI(ctx context.Context, uri string) error
	Ping(ctx context.Context) error
}

// VisualClassifier judges sampled frames.
type VisualClassifier interface {
	Classify(ctx context.Context, clipPath, scratchDir string) (moderation.VisualResult, error)
}

// AudioClassifier judges the transcribed audio track.
type AudioClassifier interface {
	Classify(ctx context.Context, clipPath, scratchDir string, hasAudio bool) (moderation.AudioResult, error)
}

// Publisher moves clips to their terminal destination.
type Publisher interface {
	PublishApproved(ctx context.Context, item *queue.Item, clipPath string) (publish.Result, error)
	QuarantineRejected(ctx context.Context, item *queue.Item, sourcePath string) (string, error)
}

// RecordSender tells the owning record about the verdict.
type RecordSender interface {
	Send(ctx context.Context, kind queue.Kind, update records.Update) error
}

// Deps bundles the collaborators the moderator drives.
type Deps struct {
	Staging StagingClient
	Visual  VisualClassifier
	Audio   AudioClassifier
	Publish Publisher
	Records RecordSender
}

// Moderator runs both classifiers, evaluates the combined policy, and
// finalizes the item.
type Moderator struct {
	cfg    *config.Config
	store  *queue.Store
	logger *slog.Logger
	deps   Deps

	// probe is swapped in tests.
	probe func(ctx context.Context, probeBinary, path string) (transcode.ProbeResult, error)
}

// New constructs the moderation stage handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, deps Deps) *Moderator {
	return &Moderator{
		cfg:    cfg,
		store:  store,
		logger: logger,
		deps:   deps,
		probe:  transcode.Probe,
	}
}

// Prepare verifies the moderation checkpoint is intact.
func (m *Moderator) Prepare(ctx context.Context, item *queue.Item) error {
	if item.StagingURI == "" {
		return services.Wrap(
			services.ErrValidation, "moderate", "validate checkpoint",
			"Item reached moderation without a staging URI; it must restart from ingestion", nil)
	}
	exists, err := m.deps.Staging.ExistsURI(ctx, item.StagingURI)
	if err != nil {
		return err
	}
	if !exists {
		if err := m.restageCheckpoint(ctx, item); err != nil {
			return err
		}
	}
	item.SetProgress("Moderating", "Preparing classifiers", 0)
	return nil
}

// restageCheckpoint re-uploads the normalized clip when the staging object
// vanished but the local checkpoint survived. Uploads are keyed by item, so
// redoing one is safe. Without a local copy the item fails closed.
func (m *Moderator) restageCheckpoint(ctx context.Context, item *queue.Item) error {
	failClosed := services.Wrap(
		services.ErrValidation, "moderate", "validate checkpoint",
		fmt.Sprintf("Staged object %s is gone and no local copy remains; the item must restart from ingestion", item.StagingURI), nil)

	if item.NormalizedPath == "" {
		return failClosed
	}
	if err := stage.RequireLocalFile("moderate", "validate checkpoint", item.NormalizedPath); err != nil {
		return failClosed
	}
	bucket, key, err := staging.ParseURI(item.StagingURI)
	if err != nil {
		return err
	}
	uri, err := m.deps.Staging.Put(ctx, bucket, key, item.NormalizedPath)
	if err != nil {
		return err
	}
	item.StagingURI = uri
	return nil
}

// Execute classifies the clip and routes it by verdict. The scratch directory
// and the staging object are removed on every way out of this function,
// including panics and mid flight errors.
func (m *Moderator) Execute(ctx context.Context, item *queue.Item) (err error) {
	logger := logging.WithContext(ctx, m.logger)
	scratchDir := m.cfg.ScratchDirFor(item.ItemKey)
	if mkErr := os.MkdirAll(scratchDir, 0o755); mkErr != nil {
		return services.Wrap(
			services.ErrStorage, "moderate", "create scratch dir",
			fmt.Sprintf("Cannot create scratch directory %s", scratchDir), mkErr)
	}

	stagingURI := item.StagingURI
	defer func() {
		// Cleanup failures never mask the verdict or the original error.
		if rmErr := fileutil.RemoveDirTree(scratchDir); rmErr != nil {
			logger.Warn("failed to remove scratch directory",
				logging.String("path", scratchDir),
				logging.Error(rmErr),
				logging.String(logging.FieldEventType, "moderate_cleanup_failed"))
		}
		cleanupCtx := context.WithoutCancel(ctx)
		if rmErr := m.deps.Staging.RemoveURI(cleanupCtx, stagingURI); rmErr != nil {
			logger.Warn("failed to remove staging object",
				logging.String("staging_uri", stagingURI),
				logging.Error(rmErr),
				logging.String(logging.FieldEventType, "moderate_cleanup_failed"))
		}
		item.NormalizedPath = ""
		item.StagingURI = ""
	}()

	clipPath, err := m.localClip(ctx, item, scratchDir)
	if err != nil {
		return err
	}

	probe, err := m.probe(ctx, m.cfg.FFmpeg.ProbeBinary, clipPath)
	if err != nil {
		return err
	}

	item.SetProgress("Moderating", "Classifying content", 25)
	_ = m.store.Update(ctx, item)

	var (
		wg        sync.WaitGroup
		visual    moderation.VisualResult
		visualErr error
		audio     moderation.AudioResult
		audioErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		// A classifier panic must become that classifier's error result,
		// not a dead daemon.
		defer func() {
			if r := recover(); r != nil {
				visualErr = services.Wrap(services.ErrExternalTool, "moderate", "visual classify",
					fmt.Sprintf("Visual classifier panicked: %v", r), nil)
			}
		}()
		visual, visualErr = m.deps.Visual.Classify(ctx, clipPath, scratchDir)
	}()
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				audioErr = services.Wrap(services.ErrExternalTool, "moderate", "audio classify",
					fmt.Sprintf("Audio classifier panicked: %v", r), nil)
			}
		}()
		audio, audioErr = m.deps.Audio.Classify(ctx, clipPath, scratchDir, probe.HasAudio)
	}()
	wg.Wait()

	decision, err := moderation.Evaluate(visual, visualErr, audio, audioErr)
	if err != nil {
		return err
	}
	encoded, err := decision.Encode()
	if err != nil {
		return err
	}
	item.DecisionJSON = encoded

	logger.Info("moderation decision",
		logging.Bool("approved", decision.Approved),
		logging.Bool("visual_passed", decision.VisualPassed),
		logging.Bool("audio_passed", decision.AudioPassed),
		logging.Bool("audio_skipped", decision.AudioSkipped),
		logging.Int("flagged_frames", decision.FlaggedFrames),
		logging.String(logging.FieldEventType, "moderate_decision"))

	if decision.Approved {
		return m.finalizeApproved(ctx, item, clipPath, logger)
	}
	return m.finalizeRejected(ctx, item, decision, logger)
}

// localClip returns a readable path to the normalized clip, refetching it
// from staging when the local checkpoint did not survive.
func (m *Moderator) localClip(ctx context.Context, item *queue.Item, scratchDir string) (string, error) {
	if item.NormalizedPath != "" {
		if err := stage.RequireLocalFile("moderate", "validate clip", item.NormalizedPath); err == nil {
			return item.NormalizedPath, nil
		}
	}
	dest := filepath.Join(scratchDir, "normalized.mp4")
	if err := m.deps.Staging.FetchURI(ctx, item.StagingURI, dest); err != nil {
		return "", err
	}
	item.NormalizedPath = dest
	return dest, nil
}

func (m *Moderator) finalizeApproved(ctx context.Context, item *queue.Item, clipPath string, logger *slog.Logger) error {
	item.SetProgress("Publishing", "Pushing to CDN", 75)
	_ = m.store.Update(ctx, item)

	result, err := m.deps.Publish.PublishApproved(ctx, item, clipPath)
	if err != nil {
		return err
	}
	item.PublicURL = result.PublicURL
	item.ThumbnailURL = result.ThumbnailURL

	m.sendRecordUpdate(ctx, item, records.Update{
		ItemKey:      item.ItemKey,
		Status:       string(queue.StatusApproved),
		PublicURL:    item.PublicURL,
		ThumbnailURL: item.ThumbnailURL,
	}, logger)

	m.removeSource(item, logger)
	item.SetProgress("Approved", "Published to CDN", 100)
	item.Status = queue.StatusApproved
	return nil
}

func (m *Moderator) finalizeRejected(ctx context.Context, item *queue.Item, decision moderation.Decision, logger *slog.Logger) error {
	item.SetProgress("Quarantining", "Moving source to quarantine", 75)
	_ = m.store.Update(ctx, item)

	// The verdict stands even when quarantine upload fails; the item must
	// not re-run moderation over an archival error.
	ref, quarantineErr := m.deps.Publish.QuarantineRejected(ctx, item, item.SourcePath)
	if quarantineErr != nil {
		logger.Warn("quarantine upload failed",
			logging.Error(quarantineErr),
			logging.String(logging.FieldEventType, "quarantine_failed"),
			logging.String(logging.FieldErrorHint, "source file retained locally for manual quarantine"))
	} else {
		item.QuarantineRef = ref
	}

	m.sendRecordUpdate(ctx, item, records.Update{
		ItemKey:          item.ItemKey,
		Status:           string(queue.StatusRejected),
		RejectionReasons: decision.RejectionReasons,
	}, logger)

	// The source is the only remaining copy when quarantine failed; keep
	// it so an operator can archive it by hand.
	if quarantineErr == nil {
		m.removeSource(item, logger)
	}
	item.SetProgress("Rejected", "Source quarantined", 100)
	item.Status = queue.StatusRejected
	return nil
}

// sendRecordUpdate reports the verdict downstream. The verdict is already
// durable in the queue, so a dead record endpoint is logged and survived
// rather than turning a finished item into a failed one.
func (m *Moderator) sendRecordUpdate(ctx context.Context, item *queue.Item, update records.Update, logger *slog.Logger) {
	if m.deps.Records == nil {
		return
	}
	if err := m.deps.Records.Send(ctx, item.Kind, update); err != nil {
		logger.Warn("record update failed",
			logging.String("kind", string(item.Kind)),
			logging.String("status", update.Status),
			logging.Error(err),
			logging.String(logging.FieldEventType, "record_update_failed"))
	}
}

func (m *Moderator) removeSource(item *queue.Item, logger *slog.Logger) {
	if item.SourcePath == "" {
		return
	}
	if err := os.Remove(item.SourcePath); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove source upload",
			logging.String("path", item.SourcePath),
			logging.Error(err))
	}
}

// HealthCheck verifies the staging store and classifier backends.
func (m *Moderator) HealthCheck(ctx context.Context) stage.Health {
	if err := m.deps.Staging.Ping(ctx); err != nil {
		return stage.Unhealthy("moderate", fmt.Sprintf("staging store: %v", err))
	}
	type pinger interface {
		Ping(ctx context.Context) error
	}
	for name, dep := range map[string]any{
		"visual classifier": m.deps.Visual,
		"audio classifier":  m.deps.Audio,
	} {
		if p, ok := dep.(pinger); ok {
			if err := p.Ping(ctx); err != nil {
				return stage.Unhealthy("moderate", fmt.Sprintf("%s: %v", name, err))
			}
		}
	}
	return stage.Healthy("moderate")
}
