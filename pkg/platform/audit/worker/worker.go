// Package worker moves audit events from the in-process inbox channel to the
// store and optional publisher without blocking domain services.
package worker

import (
	"context"
	"log/slog"

	audit "k9hope/pkg/platform/audit"
)

type Worker struct {
	store     audit.Store
	publisher audit.Publisher
	inbox     <-chan audit.Event
	logger    *slog.Logger
}

func New(store audit.Store, publisher audit.Publisher, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, publisher: publisher, inbox: inbox, logger: logger}
}

// Run consumes until the context is cancelled. Store failures are logged and
// skipped rather than stopping the loop: audit must degrade, not take the
// engine down with it.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.log("audit append failed", event, err)
				continue
			}
			if w.publisher != nil {
				if err := w.publisher.Emit(ctx, event); err != nil {
					w.log("audit publish failed", event, err)
				}
			}
		}
	}
}

func (w *Worker) log(msg string, event audit.Event, err error) {
	if w.logger != nil {
		w.logger.Error(msg, "action", string(event.Action), "subject", event.Subject, "error", err.Error())
	}
}
