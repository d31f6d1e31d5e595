package workflow

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"vidgate/internal/logging"
)

// Start launches the worker pool, the reclaimer, and the janitor. It returns
// immediately; Stop shuts everything down.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow manager already running")
	}
	if len(m.stages) == 0 {
		return errors.New("workflow manager has no configured stages")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	workers := m.cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	m.logger.Info("workflow manager starting",
		logging.Int("workers", workers),
		logging.String(logging.FieldEventType, "workflow_start"))

	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go func(worker int) {
			defer m.wg.Done()
			m.runWorker(runCtx, worker)
		}(i)
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runReclaimer(runCtx)
	}()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runJanitor(runCtx)
	}()

	return nil
}

// Stop cancels all loops and waits for in-flight items to settle.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow manager stopped",
		logging.String(logging.FieldEventType, "workflow_stop"))
}

func (m *Manager) runWorker(ctx context.Context, worker int) {
	pollInterval := m.cfg.Workflow.PollInterval()
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	retryInterval := m.cfg.Workflow.RetryInterval()
	if retryInterval <= 0 {
		retryInterval = 5 * time.Second
	}
	logger := m.logger.With(logging.Int("worker", worker))

	for {
		if ctx.Err() != nil {
			return
		}
		item, err := m.store.Claim(ctx, m.claimOrder...)
		if err != nil {
			if ctx.Err() != nil || ignorableClaimError(err) {
				return
			}
			logger.Warn("queue claim failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "claim_failed"))
			if !sleepCtx(ctx, retryInterval) {
				return
			}
			continue
		}
		if item == nil {
			m.noteQueueDrained(ctx)
			if !sleepCtx(ctx, pollInterval) {
				return
			}
			continue
		}
		m.noteItemStarted(ctx)
		failed := m.processItem(ctx, item)
		m.noteItemFinished(failed)
	}
}

func (m *Manager) runReclaimer(ctx context.Context) {
	interval := m.heartbeat.expiry / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	m.heartbeat.ReclaimStaleItems(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.heartbeat.ReclaimStaleItems(ctx)
		}
	}
}

// sleepCtx waits for the duration or until the context ends. It reports
// whether the full duration elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// ignorableClaimError filters errors a shutdown naturally produces.
func ignorableClaimError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, sql.ErrConnDone)
}
