// Package events records what happened to the ledger: expenses added,
// deleted and restored, and lifecycle transitions.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeExpenseAdded    = "expense.added"
	TypeExpenseDeleted  = "expense.deleted"
	TypeExpenseRestored = "expense.restored"
	TypeLedgerDisabled  = "ledger.disabled"
	TypeLedgerResumed   = "ledger.resumed"
	TypeLedgerRolled    = "ledger.rolled_over"
)

type Event struct {
	ID        uuid.UUID         `json:"id"`
	Type      string            `json:"type"`
	Month     string            `json:"month,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

type Option func(*Event)

func WithType(eventType string) Option {
	return func(e *Event) {
		e.Type = eventType
	}
}

func WithMonth(month string) Option {
	return func(e *Event) {
		e.Month = month
	}
}

// WithData adds a single key/value pair.
func WithData(key, value string) Option {
	return func(e *Event) {
		e.Data[key] = value
	}
}

func New(opts ...Option) Event {
	e := Event{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Data:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Sink persists or forwards an event.
type Sink interface {
	Save(ctx context.Context, e Event) error
}

// Recorder accepts events without blocking the caller.
type Recorder interface {
	Record(e Event)
}

// Discard is a Recorder that drops everything.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(Event) {}
