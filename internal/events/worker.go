package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Worker delivers events to its sinks from a single goroutine. Sink errors
// are logged and never reach the code that recorded the event.
type Worker struct {
	eventCh chan Event
	sinks   []Sink
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
}

func NewWorker(logger *slog.Logger, bufferSize int, sinks ...Sink) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if bufferSize <= 0 {
		bufferSize = 100
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		eventCh: make(chan Event, bufferSize),
		sinks:   sinks,
		logger:  logger,
		timeout: 5 * time.Second,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				w.drain()
				return
			case event := <-w.eventCh:
				w.deliver(event)
			}
		}
	}()
}

func (w *Worker) drain() {
	w.logger.Info("Draining events before shutdown", "remaining_events", len(w.eventCh))
	for {
		select {
		case event := <-w.eventCh:
			w.deliver(event)
		default:
			return
		}
	}
}

// Record queues an event. A full buffer drops it with a warning.
func (w *Worker) Record(event Event) {
	select {
	case w.eventCh <- event:
	default:
		w.logger.Warn("Event channel full, dropping event", "event_type", event.Type)
	}
}

// deliver gives every sink its own timeout. It never inherits the worker's
// lifecycle context, which is already cancelled while draining.
func (w *Worker) deliver(event Event) {
	for _, sink := range w.sinks {
		sctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		if err := sink.Save(sctx, event); err != nil {
			w.logger.Error("Failed to deliver event", "error", err, "event_type", event.Type, "event_id", event.ID.String())
		}
		cancel()
	}
}

// Shutdown stops the worker after delivering everything already queued.
func (w *Worker) Shutdown() {
	w.once.Do(func() {
		w.cancel()
		w.wg.Wait()
	})
}
