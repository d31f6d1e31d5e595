// Package daemon wires the pipeline together and enforces single-instance
// execution through a lock file.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"vidgate/internal/config"
	"vidgate/internal/ingest"
	"vidgate/internal/logging"
	"vidgate/internal/moderate"
	"vidgate/internal/moderation"
	"vidgate/internal/notifications"
	"vidgate/internal/publish"
	"vidgate/internal/queue"
	"vidgate/internal/records"
	"vidgate/internal/services/cdn"
	"vidgate/internal/services/speech"
	"vidgate/internal/services/textmod"
	"vidgate/internal/services/vision"
	"vidgate/internal/stage"
	"vidgate/internal/staging"
	"vidgate/internal/workflow"
)

// Daemon owns the workflow manager and every collaborator client.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs the daemon and wires the two pipeline stages.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	stagingClient := staging.NewClient(cfg.Staging.Endpoint, cfg.Staging.Timeout())
	speechClient := speech.NewClient(cfg.Speech.Endpoint, cfg.Speech.Language, cfg.Speech.Timeout())
	visionClient := vision.NewClient(cfg.Vision.Endpoint, cfg.Vision.Timeout())
	textmodClient := textmod.NewClient(cfg.TextMod.Endpoint, cfg.TextMod.Timeout())
	cdnClient := cdn.NewClient(cfg.CDN.Endpoint, cfg.CDN.Timeout())
	recordUpdater := records.NewUpdater(
		cfg.Records.PostEndpoint,
		cfg.Records.CommentEndpoint,
		cfg.Records.MessageEndpoint,
		cfg.Records.Timeout(),
	)
	notifier := notifications.NewService(cfg)

	blocklist, err := moderation.LoadBlocklist(cfg.TextMod.BlocklistPath)
	if err != nil {
		return nil, fmt.Errorf("load blocklist: %w", err)
	}
	visual := moderation.NewVisualClassifier(visionClient, cfg.FFmpeg.Binary, moderation.VisualThresholds{
		TopLevelFrames:      cfg.Vision.TopLevelFrames,
		ShortClipFrames:     cfg.Vision.ShortClipFrames,
		ShortClipProportion: cfg.Vision.ShortClipProportion,
	})
	audio := moderation.NewAudioClassifier(speechClient, textmodClient, blocklist, cfg.FFmpeg.Binary)

	publisher := publish.New(publish.Options{
		CDN:              cdnClient,
		Quarantine:       stagingClient,
		QuarantineBucket: cfg.Staging.QuarantineBucket,
		FFmpegBinary:     cfg.FFmpeg.Binary,
		ThumbnailTimeout: cfg.FFmpeg.ThumbnailBudget(),
		ReadyInterval:    cfg.CDN.PollInterval(),
		ReadyTimeout:     cfg.CDN.ReadyDeadline(),
		Logger:           logger,
	})

	manager := workflow.NewManager(cfg, store, logger, notifier)
	manager.Configure(
		ingest.New(cfg, store, logger, stagingClient),
		moderate.New(cfg, store, logger, moderate.Deps{
			Staging: stagingClient,
			Visual:  visual,
			Audio:   audio,
			Publish: publisher,
			Records: recordUpdater,
		}),
		stagingClient,
	)

	lockPath := filepath.Join(cfg.Paths.LogDir, "vidgate.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		workflow: manager,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the worker pool.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vidgate daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("vidgate daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts the worker pool and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("vidgate daemon stopped")
}

// Close stops the daemon and closes the queue store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the worker pool is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Health runs every stage's health probe.
func (d *Daemon) Health(ctx context.Context) []stage.Health {
	return d.workflow.HealthChecks(ctx)
}
