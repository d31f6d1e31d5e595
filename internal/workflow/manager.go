// Package workflow schedules claimed queue items through the pipeline
// stages. Workers claim the oldest unowned item, run the stage that matches
// its status, and commit the resulting status through a conditional write so
// two workers can never finish the same item.
package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"vidgate/internal/config"
	"vidgate/internal/logging"
	"vidgate/internal/notifications"
	"vidgate/internal/queue"
	"vidgate/internal/stage"
)

// ObjectStore is the slice of the staging client the manager needs to clear
// leftover objects from items that ended without running their own cleanup.
type ObjectStore interface {
	RemoveURI(ctx context.Context, uri string) error
}

// pipelineStage binds a handler to the status it consumes.
type pipelineStage struct {
	name  string
	start queue.Status

	handler stage.Handler
}

// Manager owns the worker pool, the heartbeat monitor, and the janitor.
type Manager struct {
	cfg       *config.Config
	store     *queue.Store
	logger    *slog.Logger
	notifier  notifications.Service
	heartbeat *HeartbeatMonitor

	stages      []pipelineStage
	claimOrder  []queue.Status
	stageByType map[queue.Status]pipelineStage
	objects     ObjectStore

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Batch accounting for queue started/completed notifications.
	batchMu      sync.Mutex
	batchActive  bool
	batchStart   time.Time
	batchDone    int
	batchFailed  int
	lastActivity time.Time
}

// NewManager wires a manager without stage handlers. Configure must be
// called before Start.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Manager{
		cfg:         cfg,
		store:       store,
		logger:      logger,
		notifier:    notifier,
		heartbeat:   NewHeartbeatMonitor(cfg, store, logger),
		stageByType: make(map[queue.Status]pipelineStage),
	}
}

// Configure registers the two pipeline stages and the staging store used to
// clear objects left behind by failed items. Ingest consumes freshly
// uploaded items; moderate consumes staged ones.
func (m *Manager) Configure(ingest, moderate stage.Handler, objects ObjectStore) {
	m.objects = objects
	m.stages = []pipelineStage{
		{name: "ingest", start: queue.StatusUploading, handler: ingest},
		{name: "moderate", start: queue.StatusPendingModeration, handler: moderate},
	}
	m.claimOrder = m.claimOrder[:0]
	for _, ps := range m.stages {
		m.stageByType[ps.start] = ps
		m.claimOrder = append(m.claimOrder, ps.start)
	}
}

// HealthChecks runs every registered stage's health probe.
func (m *Manager) HealthChecks(ctx context.Context) []stage.Health {
	checks := make([]stage.Health, 0, len(m.stages))
	for _, ps := range m.stages {
		checks = append(checks, ps.handler.HealthCheck(ctx))
	}
	return checks
}

// Running reports whether the worker pool is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) noteItemStarted(ctx context.Context) {
	m.batchMu.Lock()
	defer m.batchMu.Unlock()
	m.lastActivity = time.Now()
	if m.batchActive {
		return
	}
	m.batchActive = true
	m.batchStart = time.Now()
	m.batchDone = 0
	m.batchFailed = 0
	if counts, err := m.store.Stats(ctx); err == nil {
		pending := counts[queue.StatusUploading] + counts[queue.StatusPendingModeration]
		if err := m.notifier.NotifyQueueStarted(ctx, pending); err != nil {
			m.logger.Debug("queue started notification failed", logging.Error(err))
		}
	}
}

func (m *Manager) noteItemFinished(failed bool) {
	m.batchMu.Lock()
	defer m.batchMu.Unlock()
	m.lastActivity = time.Now()
	if failed {
		m.batchFailed++
	} else {
		m.batchDone++
	}
}

// noteQueueDrained fires the queue completed notification once per batch,
// when every worker has gone idle after processing at least one item.
func (m *Manager) noteQueueDrained(ctx context.Context) {
	m.batchMu.Lock()
	defer m.batchMu.Unlock()
	if !m.batchActive {
		return
	}
	m.batchActive = false
	duration := time.Since(m.batchStart)
	if err := m.notifier.NotifyQueueCompleted(ctx, m.batchDone, m.batchFailed, duration); err != nil {
		m.logger.Debug("queue completed notification failed", logging.Error(err))
	}
}
