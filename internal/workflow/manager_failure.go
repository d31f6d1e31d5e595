package workflow

import (
	"context"
	"errors"
	"log/slog"

	"vidgate/internal/logging"
	"vidgate/internal/queue"
	"vidgate/internal/services"
)

// handleStageFailure moves the item to failed with operator-facing detail.
func (m *Manager) handleStageFailure(ctx context.Context, item *queue.Item, ps pipelineStage, cause error) {
	logger := logging.WithContext(ctx, m.logger)
	details := services.Details(cause)

	logger.Error("stage failed",
		logging.String("item_key", item.ItemKey),
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String(logging.FieldErrorHint, details.Hint),
		logging.Error(cause),
		logging.String(logging.FieldEventType, "stage_failed"))

	message := details.Message
	if errors.Is(cause, context.Canceled) {
		message = queue.DaemonStopReason
	}
	item.Status = ps.start
	item.SetFailed(message)
	// The failure must be durable even when the cause is the shutdown itself.
	persistCtx := context.WithoutCancel(ctx)
	if err := m.store.Transition(persistCtx, item, queue.StatusFailed); err != nil {
		if errors.Is(err, queue.ErrConflict) {
			logger.Warn("item changed while recording the failure",
				logging.String("item_key", item.ItemKey),
				logging.String(logging.FieldEventType, "stage_conflict"))
			return
		}
		logger.Error("failed to persist item failure",
			logging.String("item_key", item.ItemKey),
			logging.Error(err))
		return
	}

	// Failed is terminal, so nothing downstream will ever fetch the staged
	// object again. The janitor backstops this when the removal itself fails.
	m.releaseStagingObject(persistCtx, item, logger)

	if err := m.notifier.NotifyItemFailed(persistCtx, item.ItemKey, cause); err != nil {
		logger.Debug("failure notification failed", logging.Error(err))
	}
}

// releaseStagingObject deletes the staged object of an item that ended
// without running stage-level cleanup and records the cleared reference.
func (m *Manager) releaseStagingObject(ctx context.Context, item *queue.Item, logger *slog.Logger) {
	if item.StagingURI == "" || m.objects == nil {
		return
	}
	if err := m.objects.RemoveURI(ctx, item.StagingURI); err != nil {
		logger.Warn("failed to remove staging object of failed item",
			logging.String("item_key", item.ItemKey),
			logging.String("staging_uri", item.StagingURI),
			logging.Error(err),
			logging.String(logging.FieldEventType, "janitor_sweep_failed"))
		return
	}
	item.StagingURI = ""
	if err := m.store.Update(ctx, item); err != nil {
		logger.Warn("failed to record cleared staging reference",
			logging.String("item_key", item.ItemKey),
			logging.Error(err))
	}
}

// failItem handles items the pipeline cannot route at all.
func (m *Manager) failItem(ctx context.Context, item *queue.Item, cause error) {
	logger := logging.WithContext(ctx, m.logger)
	logger.Error("item cannot be routed",
		logging.String("item_key", item.ItemKey),
		logging.String("status", string(item.Status)),
		logging.Error(cause),
		logging.String(logging.FieldEventType, "item_unroutable"))

	item.SetFailed(cause.Error())
	if err := m.store.Transition(ctx, item, queue.StatusFailed); err != nil {
		logger.Error("failed to persist unroutable item",
			logging.String("item_key", item.ItemKey),
			logging.Error(err))
		return
	}
	m.releaseStagingObject(ctx, item, logger)
}
