package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vidgate/internal/logging"
	"vidgate/internal/moderation"
	"vidgate/internal/queue"
	"vidgate/internal/services"
)

// processItem runs the stage matching the item's status and commits the
// outcome. It reports whether the item ended up failed.
func (m *Manager) processItem(ctx context.Context, item *queue.Item) bool {
	ps, ok := m.stageByType[item.Status]
	if !ok {
		m.failItem(ctx, item, fmt.Errorf("no stage handles status %q", item.Status))
		return true
	}

	stageCtx := services.WithItemID(ctx, item.ID)
	stageCtx = services.WithStage(stageCtx, ps.name)
	stageCtx = services.WithRequestID(stageCtx, uuid.NewString())
	logger := logging.WithContext(stageCtx, m.logger)

	started := time.Now()
	logger.Info("stage starting",
		logging.String("item_key", item.ItemKey),
		logging.String(logging.FieldEventType, "stage_start"))

	stopHeartbeat := m.heartbeat.StartLoop(ctx, item.ID)
	err := ps.handler.Prepare(stageCtx, item)
	if err == nil {
		if updateErr := m.store.Update(stageCtx, item); updateErr != nil {
			err = updateErr
		}
	}
	if err == nil {
		err = ps.handler.Execute(stageCtx, item)
	}
	stopHeartbeat()

	if err != nil {
		m.handleStageFailure(stageCtx, item, ps, err)
		return true
	}

	from, to := ps.start, item.Status
	if to == from {
		m.handleStageFailure(stageCtx, item, ps,
			fmt.Errorf("stage %s finished without advancing the item", ps.name))
		return true
	}

	item.Status = from
	item.LastHeartbeat = nil
	if err := m.store.Transition(stageCtx, item, to); err != nil {
		if errors.Is(err, queue.ErrConflict) {
			logger.Warn("item changed under this worker, discarding result",
				logging.String("item_key", item.ItemKey),
				logging.String(logging.FieldEventType, "stage_conflict"))
			return true
		}
		m.handleStageFailure(stageCtx, item, ps, err)
		return true
	}

	logger.Info("stage complete",
		logging.String("item_key", item.ItemKey),
		logging.String("status", string(to)),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "stage_complete"))

	m.notifyVerdict(stageCtx, item, logger)
	return false
}

// notifyVerdict pushes the operator notification for terminal verdicts.
func (m *Manager) notifyVerdict(ctx context.Context, item *queue.Item, logger *slog.Logger) {
	switch item.Status {
	case queue.StatusApproved:
		if err := m.notifier.NotifyItemApproved(ctx, item.ItemKey, item.PublicURL); err != nil {
			logger.Debug("approved notification failed", logging.Error(err))
		}
	case queue.StatusRejected:
		var reasons []string
		if item.DecisionJSON != "" {
			if decision, err := moderation.DecodeDecision(item.DecisionJSON); err == nil {
				reasons = decision.RejectionReasons
			}
		}
		if err := m.notifier.NotifyItemRejected(ctx, item.ItemKey, reasons); err != nil {
			logger.Debug("rejected notification failed", logging.Error(err))
		}
	}
}
