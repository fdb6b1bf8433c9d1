package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rentsplit/internal/events"
)

// LedgerEventMessage is the wire form of an events.Event.
type LedgerEventMessage struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Month     string            `json:"month,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func NewLedgerEventMessage(e events.Event) *LedgerEventMessage {
	return &LedgerEventMessage{
		ID:        e.ID.String(),
		Type:      e.Type,
		Month:     e.Month,
		Data:      e.Data,
		Timestamp: e.CreatedAt,
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes a message body.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Event converts the message back into an events.Event.
func (m *LedgerEventMessage) Event() (events.Event, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return events.Event{}, fmt.Errorf("parse event id %q: %w", m.ID, err)
	}
	if m.Type == "" {
		return events.Event{}, fmt.Errorf("event %s has no type", m.ID)
	}
	data := make(map[string]string, len(m.Data))
	for k, v := range m.Data {
		data[k] = v
	}
	return events.Event{
		ID:        id,
		Type:      m.Type,
		Month:     m.Month,
		Data:      data,
		CreatedAt: m.Timestamp.UTC(),
	}, nil
}
