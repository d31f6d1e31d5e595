package workflow

import (
	"context"
	"time"

	"vidgate/internal/logging"
	"vidgate/internal/queue"
	"vidgate/internal/staging"
)

// scratchMaxAge is the age past which a scratch directory is presumed
// abandoned even if its item key cannot be resolved.
const scratchMaxAge = 24 * time.Hour

// runJanitor periodically removes scratch directories that no live item owns.
// The moderation stage already cleans up after itself; the janitor catches
// what crashes and power cuts leave behind.
func (m *Manager) runJanitor(ctx context.Context) {
	interval := m.cfg.Workflow.JanitorEvery()
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweepScratch(ctx)
			m.sweepStagingObjects(ctx)
		}
	}
}

// sweepStagingObjects deletes staged objects still referenced by terminal
// items. The failure path deletes eagerly; this catches crashes between the
// terminal write and that deletion.
func (m *Manager) sweepStagingObjects(ctx context.Context) {
	if m.objects == nil {
		return
	}
	items, err := m.store.List(ctx, queue.StatusApproved, queue.StatusRejected, queue.StatusFailed)
	if err != nil {
		m.logger.Warn("cannot list terminal items for staging sweep",
			logging.Error(err),
			logging.String(logging.FieldEventType, "janitor_sweep_failed"))
		return
	}
	var removed, failed int
	for _, item := range items {
		if item.StagingURI == "" {
			continue
		}
		if err := m.objects.RemoveURI(ctx, item.StagingURI); err != nil {
			failed++
			m.logger.Warn("failed to remove orphaned staging object",
				logging.String("item_key", item.ItemKey),
				logging.String("staging_uri", item.StagingURI),
				logging.Error(err))
			continue
		}
		item.StagingURI = ""
		if err := m.store.Update(ctx, item); err != nil {
			m.logger.Warn("failed to record cleared staging reference",
				logging.String("item_key", item.ItemKey),
				logging.Error(err))
		}
		removed++
	}
	if removed > 0 || failed > 0 {
		m.logger.Info("orphaned staging sweep finished",
			logging.Int("removed", removed),
			logging.Int("failed", failed),
			logging.String(logging.FieldEventType, "janitor_sweep"))
	}
}

func (m *Manager) sweepScratch(ctx context.Context) {
	scratchDir := m.cfg.Paths.ScratchDir

	result := staging.CleanStale(ctx, scratchDir, scratchMaxAge, m.logger)
	if len(result.Removed) > 0 || len(result.Errors) > 0 {
		m.logger.Info("stale scratch sweep finished",
			logging.Int("removed", len(result.Removed)),
			logging.Int("failed", len(result.Errors)),
			logging.String(logging.FieldEventType, "janitor_sweep"))
	}

	activeKeys, err := m.store.ActiveItemKeys(ctx)
	if err != nil {
		m.logger.Warn("cannot resolve active items for orphan sweep",
			logging.Error(err),
			logging.String(logging.FieldEventType, "janitor_sweep_failed"))
		return
	}
	orphans := staging.CleanOrphaned(ctx, scratchDir, activeKeys, m.logger)
	if len(orphans.Removed) > 0 || len(orphans.Errors) > 0 {
		m.logger.Info("orphan scratch sweep finished",
			logging.Int("removed", len(orphans.Removed)),
			logging.Int("failed", len(orphans.Errors)),
			logging.String(logging.FieldEventType, "janitor_sweep"))
	}
}
