package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"vidgate/internal/config"
	"vidgate/internal/logging"
	"vidgate/internal/queue"
)

// HeartbeatMonitor keeps claimed items visibly alive and reclaims items whose
// worker died without releasing them.
type HeartbeatMonitor struct {
	store    *queue.Store
	logger   *slog.Logger
	interval time.Duration
	expiry   time.Duration
}

// NewHeartbeatMonitor builds a monitor from the workflow configuration.
func NewHeartbeatMonitor(cfg *config.Config, store *queue.Store, logger *slog.Logger) *HeartbeatMonitor {
	interval := cfg.Workflow.HeartbeatEvery()
	if interval <= 0 {
		interval = 15 * time.Second
	}
	expiry := cfg.Workflow.HeartbeatExpiry()
	if expiry <= 0 {
		expiry = 2 * time.Minute
	}
	return &HeartbeatMonitor{
		store:    store,
		logger:   logger,
		interval: interval,
		expiry:   expiry,
	}
}

// ReclaimStaleItems releases items whose heartbeat went silent past the
// expiry window so another worker can resume them at their durable status.
func (h *HeartbeatMonitor) ReclaimStaleItems(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-h.expiry)
	reclaimed, err := h.store.ReclaimStale(ctx, cutoff)
	if err != nil {
		h.logger.Warn("failed to reclaim stale items",
			logging.Error(err),
			logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"))
		return
	}
	if reclaimed > 0 {
		h.logger.Info("reclaimed items from dead workers",
			logging.Int("count", int(reclaimed)),
			logging.Duration("expiry", h.expiry),
			logging.String(logging.FieldEventType, "heartbeat_reclaim"))
	}
}

// StartLoop refreshes the item's heartbeat until the returned stop function
// is invoked. Stop blocks until the loop goroutine has exited, so callers can
// safely release the item afterwards.
func (h *HeartbeatMonitor) StartLoop(ctx context.Context, itemID int64) (stop func()) {
	loopCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				if err := h.store.UpdateHeartbeat(loopCtx, itemID); err != nil && loopCtx.Err() == nil {
					h.logger.Warn("heartbeat update failed",
						logging.Int64(logging.FieldItemID, itemID),
						logging.Error(err),
						logging.String(logging.FieldEventType, "heartbeat_update_failed"))
				}
			}
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}
