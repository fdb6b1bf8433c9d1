package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"rentsplit/internal/amqp"
	"rentsplit/internal/events"
)

type memorySink struct {
	saved []events.Event
	err   error
}

func (m *memorySink) Save(_ context.Context, e events.Event) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, e)
	return nil
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleMessage(t *testing.T) {
	sink := &memorySink{}
	w := NewActivityWorker(sink, quiet())
	ctx := context.Background()

	e := events.New(events.WithType(events.TypeExpenseAdded), events.WithMonth("2024-03"), events.WithData("whoPaid", "Alice"))
	if err := w.HandleMessage(ctx, amqp.NewLedgerEventMessage(e)); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(sink.saved) != 1 || sink.saved[0].ID != e.ID || sink.saved[0].Data["whoPaid"] != "Alice" {
		t.Fatalf("saved = %+v", sink.saved)
	}

	// Malformed events are dropped without an error.
	if err := w.HandleMessage(ctx, &amqp.LedgerEventMessage{ID: "bad", Type: "x"}); err != nil {
		t.Fatalf("malformed message returned %v", err)
	}
	if len(sink.saved) != 1 {
		t.Errorf("malformed message was saved")
	}
}

func TestHandleMessageSinkError(t *testing.T) {
	boom := errors.New("database is locked")
	w := NewActivityWorker(&memorySink{err: boom}, quiet())

	err := w.HandleMessage(context.Background(), amqp.NewLedgerEventMessage(events.New(events.WithType(events.TypeLedgerDisabled))))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}
