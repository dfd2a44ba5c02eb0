package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestRecorderStampsIDAndTimestamp(t *testing.T) {
	rec := NewRecorder(discardLogger())

	rec.Emit(context.Background(), Event{UserName: "Li Lei", Action: ActionCreate})

	event := <-rec.Inbox()
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())
}

func TestRecorderPreservesCallerStamps(t *testing.T) {
	rec := NewRecorder(discardLogger())
	stamped := time.Date(2025, time.December, 1, 12, 0, 0, 0, time.UTC)

	rec.Emit(context.Background(), Event{ID: "fixed", Timestamp: stamped, Action: ActionUpdate})

	event := <-rec.Inbox()
	assert.Equal(t, "fixed", event.ID)
	assert.Equal(t, stamped, event.Timestamp)
}

func TestRecorderDropsInsteadOfBlockingWhenFull(t *testing.T) {
	rec := NewRecorder(discardLogger())

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Nothing drains the inbox; well past capacity every Emit must
		// still return immediately.
		for i := 0; i < defaultInboxSize+50; i++ {
			rec.Emit(context.Background(), Event{Action: ActionCreate})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("emit blocked on a full inbox")
	}
}

func TestWorkerDrainsIntoSink(t *testing.T) {
	rec := NewRecorder(discardLogger())
	sink := NewMemoryStore()
	worker := NewWorker(sink, rec.Inbox(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	rec.Emit(ctx, Event{UserName: "Li Lei", Action: ActionCreate})
	rec.Emit(ctx, Event{UserName: "Li Lei", Action: ActionUpdate, Details: "phone \"\" -> \"139\""})

	require.Eventually(t, func() bool {
		events, err := sink.List(ctx)
		return err == nil && len(events) == 2
	}, 2*time.Second, 10*time.Millisecond)

	events, err := sink.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionCreate, events[0].Action)
	assert.Equal(t, ActionUpdate, events[1].Action)
}

func TestWorkerSwallowsSinkFailures(t *testing.T) {
	rec := NewRecorder(discardLogger())
	sink := &flappingSink{failFirst: 1, MemoryStore: NewMemoryStore()}
	worker := NewWorker(sink, rec.Inbox(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	rec.Emit(ctx, Event{Action: ActionCreate})
	rec.Emit(ctx, Event{Action: ActionUpdate})

	// The failed first append is dropped; the second still lands.
	require.Eventually(t, func() bool {
		events, err := sink.List(ctx)
		return err == nil && len(events) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerStopsOnContextCancel(t *testing.T) {
	rec := NewRecorder(discardLogger())
	worker := NewWorker(NewMemoryStore(), rec.Inbox(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestMemoryStoreListReturnsCopy(t *testing.T) {
	sink := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, sink.Append(ctx, Event{ID: "a", Action: ActionCreate}))

	events, err := sink.List(ctx)
	require.NoError(t, err)
	events[0].ID = "mutated"

	again, err := sink.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", again[0].ID)
}

// flappingSink fails the first failFirst appends, then delegates.
type flappingSink struct {
	*MemoryStore
	failFirst int
	seen      int
}

func (s *flappingSink) Append(ctx context.Context, event Event) error {
	s.seen++
	if s.seen <= s.failFirst {
		return errors.New("sink offline")
	}
	return s.MemoryStore.Append(ctx, event)
}
