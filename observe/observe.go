// Package observe drives an agent from DOM mutations. A Driver is idle
// until Start finds its container, then watching for the rest of the
// page's life; every batch of added elements is handed to the agent on
// its executor.
package observe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/domclick/dom"
	"github.com/hazyhaar/domclick/eventloop"
)

// State is the driver state.
type State string

const (
	Idle     State = "idle"
	Watching State = "watching"
)

// Handler processes one batch of added elements on the executor. The
// batch is empty when only text nodes were added.
type Handler func(ctx context.Context, added []dom.Element)

// Config for a Driver.
type Config struct {
	Doc  dom.Document
	Exec eventloop.Executor
	// Container selects the observed subtree. Empty means body.
	Container string
	Handler   Handler
	// Debounce coalesces batches arriving within the window into one,
	// preserving order. Zero delivers every batch as it comes.
	Debounce time.Duration
	// MaxBuffer flushes immediately once this many elements are pending.
	// Default: 1000.
	MaxBuffer int
	// OnState is called after a state transition.
	OnState func(State)
	Logger  *slog.Logger
}

// Driver is the mutation observer driver.
type Driver struct {
	cfg Config

	mu      sync.Mutex
	state   State
	pending []dom.Element
	// dirty is set while a batch is held back, even one with no elements.
	dirty bool
	timer *time.Timer
}

// New creates an idle Driver.
func New(cfg Config) *Driver {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxBuffer <= 0 {
		cfg.MaxBuffer = 1000
	}
	return &Driver{cfg: cfg, state: Idle}
}

// State returns the current state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Start subscribes to the container's subtree. A missing container is
// not an error: the driver stays idle. Calling Start while watching is
// a no-op.
func (d *Driver) Start(ctx context.Context) (State, error) {
	if s := d.State(); s == Watching {
		return s, nil
	}

	var found bool
	err := d.cfg.Exec.Do(ctx, func(ctx context.Context) error {
		container, err := d.container()
		if err != nil {
			return err
		}
		if container == nil {
			return nil
		}
		if err := d.cfg.Doc.Observe(container, d.onBatch); err != nil {
			return fmt.Errorf("observe: subscribe: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return Idle, err
	}
	if !found {
		d.cfg.Logger.Info("observe: container not found, skipping observation",
			"container", d.cfg.Container)
		return Idle, nil
	}

	d.mu.Lock()
	d.state = Watching
	d.mu.Unlock()
	d.cfg.Logger.Info("observe: watching", "container", d.cfg.Container)
	if d.cfg.OnState != nil {
		d.cfg.OnState(Watching)
	}
	return Watching, nil
}

func (d *Driver) container() (dom.Element, error) {
	if d.cfg.Container == "" {
		return d.cfg.Doc.Body()
	}
	return d.cfg.Doc.Query(d.cfg.Container)
}

// onBatch receives added elements from the document backend.
func (d *Driver) onBatch(added []dom.Element) {
	if d.cfg.Debounce <= 0 {
		d.deliver(added)
		return
	}

	d.mu.Lock()
	d.pending = append(d.pending, added...)
	d.dirty = true
	if len(d.pending) >= d.cfg.MaxBuffer {
		batch, _ := d.takeLocked()
		d.mu.Unlock()
		d.deliver(batch)
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.cfg.Debounce, d.flush)
	d.mu.Unlock()
}

// flush delivers whatever is pending.
func (d *Driver) flush() {
	d.mu.Lock()
	batch, dirty := d.takeLocked()
	d.mu.Unlock()
	if dirty {
		d.deliver(batch)
	}
}

func (d *Driver) takeLocked() ([]dom.Element, bool) {
	batch, dirty := d.pending, d.dirty
	d.pending = nil
	d.dirty = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return batch, dirty
}

func (d *Driver) deliver(batch []dom.Element) {
	d.cfg.Exec.Post(func(ctx context.Context) {
		d.cfg.Handler(ctx, batch)
	})
}
