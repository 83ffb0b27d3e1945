// Package publisher fans audit events out to the configured store and sinks,
// synchronously by default or through a buffered channel when the caller
// opts in.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "didreg/pkg/platform/audit"
)

// Publisher is the single entry point services use to emit audit events.
type Publisher struct {
	store  audit.Store
	sinks  []audit.Sink
	logger *slog.Logger

	inbox  chan audit.Event
	done   chan struct{}
	closed sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer makes Emit enqueue into a buffer of the given size instead
// of writing synchronously. A full buffer drops the event rather than block
// the request path; drops are logged.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithSink adds an out-of-process sink alongside the store.
func WithSink(sink audit.Sink) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

// WithLogger sets the logger used for drop and sink failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPublisher builds a publisher writing to the given store. In async mode a
// background worker drains the buffer until Close is called.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.run()
	}
	return p
}

// Emit records an event. Synchronous mode returns the store error; async mode
// always returns nil and reports failures through the logger.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.inbox == nil {
		return p.deliver(ctx, event)
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event",
			"action", event.Action,
			"job_id", event.JobID,
		)
	}
	return nil
}

// List returns the stored events for an identifier.
func (p *Publisher) List(ctx context.Context, did string) ([]audit.Event, error) {
	return p.store.ListByDID(ctx, did)
}

// Close drains the async buffer, stops the worker, and closes all sinks.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			<-p.done
		}
		for _, sink := range p.sinks {
			if err := sink.Close(); err != nil {
				p.logger.Warn("audit sink close failed", "error", err)
			}
		}
	})
}

func (p *Publisher) run() {
	defer close(p.done)
	for event := range p.inbox {
		if err := p.deliver(context.Background(), event); err != nil {
			p.logger.Warn("audit event delivery failed",
				"action", event.Action,
				"error", err,
			)
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, event audit.Event) error {
	err := p.store.Append(ctx, event)
	for _, sink := range p.sinks {
		if sinkErr := sink.Publish(ctx, event); sinkErr != nil {
			// Sink failures never fail the emit; the store is the source of
			// truth and sinks are best-effort fan-out.
			p.logger.Warn("audit sink publish failed", "error", sinkErr)
		}
	}
	return err
}
