package report

import (
	"context"
	"log/slog"
	"sync"
)

// Router fans events out to every sink. One failing sink does not stop
// the others; errors are logged and the first is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

func (r *Router) Send(ctx context.Context, ev Event) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Send(ctx, ev); err != nil {
			r.logger.Warn("report: send failed", "kind", ev.Kind, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Async decouples a slow sink from the caller. Events go through a
// bounded buffer; when it is full the event is dropped.
type Async struct {
	next   Sink
	ch     chan Event
	logger *slog.Logger
	wg     sync.WaitGroup
	once   sync.Once
}

// NewAsync starts a delivery goroutine for next.
func NewAsync(next Sink, buffer int, logger *slog.Logger) *Async {
	if buffer <= 0 {
		buffer = 128
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Async{next: next, ch: make(chan Event, buffer), logger: logger}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *Async) run() {
	defer a.wg.Done()
	for ev := range a.ch {
		if err := a.next.Send(context.Background(), ev); err != nil {
			a.logger.Warn("report: async send failed", "kind", ev.Kind, "error", err)
		}
	}
}

// Send enqueues ev without blocking.
func (a *Async) Send(_ context.Context, ev Event) error {
	select {
	case a.ch <- ev:
	default:
		a.logger.Warn("report: buffer full, event dropped", "kind", ev.Kind)
	}
	return nil
}

// Close drains queued events and closes the wrapped sink. Send must not
// be called after Close.
func (a *Async) Close() error {
	a.once.Do(func() { close(a.ch) })
	a.wg.Wait()
	return a.next.Close()
}
