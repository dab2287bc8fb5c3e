// Package publisher is the entry point services use to record activity.
// In sync mode Emit persists before returning; in async mode events are
// buffered and drained by a worker.
package publisher

import (
	"context"
	"log/slog"
	"sync"

	audit "barangay/pkg/platform/audit"
	"barangay/pkg/platform/audit/worker"
)

type Publisher struct {
	store  audit.Store
	sinks  []audit.Sink
	logger *slog.Logger

	bufferSize int
	inbox      chan audit.Event
	worker     *worker.Worker
	done       chan struct{}
	closeOnce  sync.Once
	mu         sync.RWMutex
	closed     bool
}

type Option func(*Publisher)

// WithAsyncBuffer switches to async mode with the given buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.bufferSize = size
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithSink forwards every stored event to sink.
func WithSink(sink audit.Sink) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		p.worker = worker.NewWorker(store, p.inbox, p.logger, p.sinks...)
		go func() {
			defer close(p.done)
			_ = p.worker.Run(context.Background())
		}()
	} else {
		p.worker = worker.NewWorker(store, nil, p.logger, p.sinks...)
	}
	return p
}

// Emit records event. In async mode a full buffer drops the event with a
// warning instead of blocking the caller.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if p.inbox == nil {
		p.worker.Handle(ctx, event)
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.WarnContext(ctx, "activity publisher closed, dropping event", "action", event.Action)
		return nil
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "activity buffer full, dropping event",
			"action", event.Action,
			"request_id", event.RequestID,
		)
	}
	return nil
}

// List reads back stored events.
func (p *Publisher) List(ctx context.Context, filter audit.Filter) ([]audit.Event, int, error) {
	return p.store.List(ctx, filter)
}

// Close drains buffered events and stops the worker.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox == nil {
			return
		}
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()
		<-p.done
	})
}
