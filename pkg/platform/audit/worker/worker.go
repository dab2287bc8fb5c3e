package worker

import (
	"context"
	"log/slog"

	audit "barangay/pkg/platform/audit"
)

// Worker consumes activity events from a channel, persists them and forwards
// them to optional sinks. It runs until the inbox is closed or ctx is done.
type Worker struct {
	store  audit.Store
	sinks  []audit.Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger, sinks ...audit.Sink) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger, sinks: sinks}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.Handle(ctx, event)
		}
	}
}

// Handle stores one event and fans it out. Failures are logged; the activity
// log never blocks the request path.
func (w *Worker) Handle(ctx context.Context, event audit.Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.ErrorContext(ctx, "failed to persist activity event",
			"action", event.Action,
			"error", err,
			"request_id", event.RequestID,
		)
		return
	}
	for _, sink := range w.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			w.logger.WarnContext(ctx, "failed to publish activity event",
				"action", event.Action,
				"error", err,
				"request_id", event.RequestID,
			)
		}
	}
}
