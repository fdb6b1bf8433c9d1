// Package backend assembles ledger storage and the event pipeline from
// configuration.
package backend

import (
	"context"

	"rentsplit/internal/core"
	"rentsplit/internal/events"
	"rentsplit/internal/lifecycle"
	"rentsplit/internal/storage"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result holds everything the server needs from the backend.
type Result struct {
	Store    lifecycle.Store
	Recorder events.Recorder
	// Activity is nil when the activity log is disabled.
	Activity *storage.ActivityRepository
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// File backend
	DataDir string

	// Memory backend starts from these housemates.
	Seed []core.Housemate

	// Event sinks; empty values disable them.
	ActivityDBPath    string
	AMQPURL           string
	AMQPExchange      string
	AMQPRoutingPrefix string

	// EventBuffer bounds the queue between the controller and the sinks.
	EventBuffer int
}

// Type is a ledger storage kind.
type Type string

const (
	FileBackend   Type = "file"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case FileBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
