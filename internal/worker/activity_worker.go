// Package worker mirrors ledger events from the broker into the activity log.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"rentsplit/internal/amqp"
	"rentsplit/internal/events"
)

// ActivityWorker stores every consumed ledger event in a sink.
type ActivityWorker struct {
	sink   events.Sink
	logger *slog.Logger
}

func NewActivityWorker(sink events.Sink, logger *slog.Logger) *ActivityWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityWorker{sink: sink, logger: logger}
}

// HandleMessage implements amqp.Handler. Malformed events are logged and
// acknowledged so they do not cycle through the queue.
func (w *ActivityWorker) HandleMessage(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	e, err := msg.Event()
	if err != nil {
		w.logger.WarnContext(ctx, "Skipping malformed ledger event", "error", err, "event_id", msg.ID)
		return nil
	}

	if err := w.sink.Save(ctx, e); err != nil {
		return fmt.Errorf("save event %s: %w", e.ID, err)
	}

	w.logger.InfoContext(ctx, "Recorded ledger event",
		"event_id", e.ID.String(),
		"event_type", e.Type,
		"month", e.Month)
	return nil
}
