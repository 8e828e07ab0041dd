// Package report delivers structured agent events (scan results,
// injections, observer state, sequencer steps) to output backends.
// Reporting never blocks or fails an agent: sink errors are logged.
package report

import (
	"context"
	"time"

	"github.com/hazyhaar/domclick/idgen"
)

// Kind classifies an Event.
type Kind string

const (
	KindScan     Kind = "scan"     // bulk scan finished, Count = actions taken
	KindInject   Kind = "inject"   // control injected into the host page
	KindObserver Kind = "observer" // observer driver changed state
	KindStep     Kind = "step"     // sequencer entered a state
	KindOutcome  Kind = "outcome"  // sequencer run ended
)

// Event is one agent observation.
type Event struct {
	ID        string `json:"id"`
	Agent     string `json:"agent"`
	Kind      Kind   `json:"kind"`
	RunID     string `json:"run_id,omitempty"`
	State     string `json:"state,omitempty"`
	Count     int    `json:"count,omitempty"`
	Detail    string `json:"detail,omitempty"`
	PageURL   string `json:"page_url,omitempty"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// Sink is an output backend.
type Sink interface {
	Send(ctx context.Context, ev Event) error
	Close() error
}

// Stamp fills the ID and timestamp when they are unset.
func Stamp(ev Event) Event {
	if ev.ID == "" {
		ev.ID = idgen.Event()
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = time.Now().UnixMilli()
	}
	return ev
}

// Discard drops every event.
type Discard struct{}

func (Discard) Send(context.Context, Event) error { return nil }
func (Discard) Close() error                      { return nil }
