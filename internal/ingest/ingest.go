// Package ingest normalizes freshly uploaded clips and stages them for
// moderation.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"vidgate/internal/config"
	"vidgate/internal/fileutil"
	"vidgate/internal/logging"
	"vidgate/internal/queue"
	"vidgate/internal/services"
	"vidgate/internal/stage"
	"vidgate/internal/staging"
	"vidgate/internal/transcode"
)

// StagingClient is the slice of the staging store the ingester needs.
type StagingClient interface {
	Put(ctx context.Context, bucket, key, localPath string) (string, error)
	ExistsURI(ctx context.Context, uri string) (bool, error)
	RemoveURI(ctx context.Context, uri string) error
	Ping(ctx context.Context) error
}

// Normalizer produces the canonical MP4 from an arbitrary upload.
type Normalizer interface {
	Normalize(ctx context.Context, sourcePath, outputDir string, durationHint float64, progress func(transcode.ProgressUpdate)) (transcode.Result, error)
}

// Ingester runs the transcoder ladder and uploads the result to staging.
type Ingester struct {
	cfg        *config.Config
	store      *queue.Store
	logger     *slog.Logger
	staging    StagingClient
	normalizer Normalizer
}

// New constructs the ingest stage handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, stagingClient StagingClient) *Ingester {
	return &Ingester{
		cfg:        cfg,
		store:      store,
		logger:     logger,
		staging:    stagingClient,
		normalizer: transcode.NewNormalizer(cfg),
	}
}

// Prepare validates that the upload is actually on disk before work starts.
func (i *Ingester) Prepare(ctx context.Context, item *queue.Item) error {
	if err := stage.RequireLocalFile("ingest", "validate source", item.SourcePath); err != nil {
		return err
	}
	item.SetProgress("Ingesting", "Preparing source", 0)
	return nil
}

// Execute normalizes the upload and stages the result. On success the item
// carries its staging URI and moves to moderation; on failure every partial
// artifact is removed so a retry starts clean.
func (i *Ingester) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, i.logger)

	// Resume: a staged object from a previous run means the work is done.
	if item.StagingURI != "" {
		exists, err := i.staging.ExistsURI(ctx, item.StagingURI)
		if err == nil && exists {
			logger.Info("staged object already present, skipping normalization",
				logging.String("staging_uri", item.StagingURI),
				logging.String(logging.FieldEventType, "ingest_resume"))
			item.SetProgress("Staged", "Already staged", 100)
			item.Status = queue.StatusPendingModeration
			return nil
		}
		item.StagingURI = ""
		item.NormalizedPath = ""
	}

	scratchDir := i.cfg.ScratchDirFor(item.ItemKey)
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrStorage, "ingest", "create scratch dir",
			fmt.Sprintf("Cannot create scratch directory %s", scratchDir), err)
	}

	result, err := i.normalizer.Normalize(ctx, item.SourcePath, scratchDir, item.DeclaredDuration, func(update transcode.ProgressUpdate) {
		item.SetProgress(update.Stage, update.Message, update.Percent)
		_ = i.store.Update(ctx, item)
	})
	if err != nil {
		_ = fileutil.RemoveDirTree(scratchDir)
		return err
	}
	logger.Info("normalization complete",
		logging.String("rung", string(result.Rung)),
		logging.Float64("duration", result.Duration),
		logging.Int("width", result.Width),
		logging.Int("height", result.Height),
		logging.String(logging.FieldEventType, "ingest_normalized"))

	item.SetProgress("Staging", "Uploading normalized clip", 90)
	_ = i.store.Update(ctx, item)

	key := staging.KeyFor(item.ItemKey, "normalized.mp4")
	uri, err := i.staging.Put(ctx, i.cfg.Staging.Bucket, key, result.OutputPath)
	if err != nil {
		_ = fileutil.RemoveDirTree(scratchDir)
		return err
	}

	// Trust nothing: the staged copy must be readable before the local
	// artifact is allowed to become the moderation checkpoint.
	exists, err := i.staging.ExistsURI(ctx, uri)
	if err != nil || !exists {
		_ = i.staging.RemoveURI(ctx, uri)
		_ = fileutil.RemoveDirTree(scratchDir)
		if err == nil {
			err = services.Wrap(services.ErrStorage, "ingest", "verify staged object",
				"Staged object vanished immediately after upload", nil)
		}
		return err
	}

	item.NormalizedPath = result.OutputPath
	item.StagingURI = uri
	item.SetProgress("Staged", fmt.Sprintf("Normalized via %s", result.Rung), 100)
	item.Status = queue.StatusPendingModeration
	return nil
}

// HealthCheck verifies the transcoder binaries and the staging store.
func (i *Ingester) HealthCheck(ctx context.Context) stage.Health {
	if _, err := exec.LookPath(i.cfg.FFmpeg.Binary); err != nil {
		return stage.Unhealthy("ingest", fmt.Sprintf("ffmpeg binary %q not found", i.cfg.FFmpeg.Binary))
	}
	if _, err := exec.LookPath(i.cfg.FFmpeg.ProbeBinary); err != nil {
		return stage.Unhealthy("ingest", fmt.Sprintf("ffprobe binary %q not found", i.cfg.FFmpeg.ProbeBinary))
	}
	if err := i.staging.Ping(ctx); err != nil {
		return stage.Unhealthy("ingest", fmt.Sprintf("staging store: %v", err))
	}
	return stage.Healthy("ingest")
}
