package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const defaultInboxSize = 256

// Emitter is what domain code emits through. Implementations must never block
// or fail the caller.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

// Recorder is the fire-and-forget entry point domain code emits through. It
// hands events to a buffered channel consumed by a Worker; when the buffer is
// full the event is dropped and logged, never blocking the caller.
type Recorder struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewRecorder(logger *slog.Logger) *Recorder {
	return &Recorder{
		inbox:  make(chan Event, defaultInboxSize),
		logger: logger,
	}
}

// Emit stamps and queues an event. Best-effort: a full inbox drops the event.
func (r *Recorder) Emit(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case r.inbox <- event:
	default:
		r.logger.WarnContext(ctx, "edit log inbox full, dropping event",
			"action", event.Action,
			"user_name", event.UserName,
		)
	}
}

// Inbox exposes the receive side for the Worker.
func (r *Recorder) Inbox() <-chan Event {
	return r.inbox
}

// Worker consumes edit-log events from the recorder and persists them. Sink
// failures are logged and swallowed: the log is observational only.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run drains the inbox until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				w.logger.WarnContext(ctx, "edit log append failed, dropping event",
					"error", err,
					"action", event.Action,
					"user_name", event.UserName,
				)
			}
		}
	}
}
