package senderpurge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/domclick/dom"
	"github.com/hazyhaar/domclick/eventloop"
	"github.com/hazyhaar/domclick/pending"
	"github.com/hazyhaar/domclick/poll"
)

// State is a sequencer step.
type State string

const (
	StateConfirm         State = "confirm"
	StateNavigate        State = "navigate"
	StateAwaitResults    State = "await_results"
	StateSelectAll       State = "select_all"
	StateExpandSelection State = "expand_selection"
	StateDelete          State = "delete"
	StateConfirmBulk     State = "confirm_bulk"
)

// Result is how a run ended.
type Result string

const (
	// Navigated: the flag is set and the search is loading. The run
	// continues in Resume on the results view.
	Navigated Result = "navigated"
	// Interrupted: the page went away while waiting for results. The
	// flag stays set for the agent of the next page.
	Interrupted Result = "interrupted"
	Completed   Result = "completed"
	Cancelled   Result = "cancelled"
	TimedOut    Result = "timed_out"
	Aborted     Result = "aborted"
	Failed      Result = "failed"
)

// Outcome summarises a Begin or Resume call.
type Outcome struct {
	Result Result
	// Last is the last state entered.
	Last   State
	Detail string
}

// Sender identifies whose mail is deleted.
type Sender struct {
	// Email is taken from the right-clicked row, when available.
	Email string
	// Name is the display name shown in the host's menu.
	Name string
}

// Query is the search term: the address when known, else the name.
func (s Sender) Query() string {
	if s.Email != "" {
		return s.Email
	}
	return s.Name
}

// ConfirmMessage is the text of the confirmation dialog.
func ConfirmMessage(s Sender) string {
	return fmt.Sprintf("Delete ALL emails from \"%s\"?\n\n"+
		"This will find every email from this sender, select them all, "+
		"and move them to trash.\n\n"+
		"Emails in trash are permanently deleted after 30 days.", s.Query())
}

const (
	alertNoSelectAll = "[domclick] Could not find the select-all checkbox. " +
		"Please select and delete manually."
	alertNoDelete = "[domclick] Could not find the delete button. " +
		"Emails are selected, please click delete manually."
)

// Sequencer runs the delete flow. Every DOM step runs on Exec; waits
// happen on the caller's goroutine, so Begin and Resume must not be
// called from inside an executor task.
type Sequencer struct {
	Doc      dom.Document
	Exec     eventloop.Executor
	Locator  Locator
	Prompter dom.Prompter
	Flag     pending.Store
	Timing   Timing
	// Sleep overrides the real-time sleeper.
	Sleep  poll.Sleeper
	Logger *slog.Logger
	// OnStep is called as each state is entered.
	OnStep func(ctx context.Context, s State)
}

func (q *Sequencer) logger() *slog.Logger {
	if q.Logger == nil {
		return slog.Default()
	}
	return q.Logger
}

func (q *Sequencer) sleep(ctx context.Context, d time.Duration) error {
	if q.Sleep != nil {
		return q.Sleep(ctx, d)
	}
	return poll.Sleep(ctx, d)
}

func (q *Sequencer) enter(ctx context.Context, s State) {
	q.logger().DebugContext(ctx, "senderpurge: step", "state", s)
	if q.OnStep != nil {
		q.OnStep(ctx, s)
	}
}

func (q *Sequencer) fail(ctx context.Context, s State, err error) Outcome {
	q.logger().ErrorContext(ctx, "senderpurge: step failed", "state", s, "error", err)
	return Outcome{Result: Failed, Last: s, Detail: err.Error()}
}

// Begin asks for confirmation, sets the pending flag and navigates to
// the sender's search results.
func (q *Sequencer) Begin(ctx context.Context, sender Sender) Outcome {
	q.enter(ctx, StateConfirm)
	var ok bool
	err := q.Exec.Do(ctx, func(context.Context) error {
		var err error
		ok, err = q.Prompter.Confirm(ConfirmMessage(sender))
		return err
	})
	if err != nil {
		return q.fail(ctx, StateConfirm, fmt.Errorf("senderpurge: confirm: %w", err))
	}
	if !ok {
		q.logger().InfoContext(ctx, "senderpurge: user cancelled deletion", "sender", sender.Query())
		return Outcome{Result: Cancelled, Last: StateConfirm}
	}

	q.enter(ctx, StateNavigate)
	if err := q.Flag.Set(ctx); err != nil {
		return q.fail(ctx, StateNavigate, fmt.Errorf("senderpurge: set flag: %w", err))
	}
	fragment := "search/from:" + sender.Query()
	q.logger().InfoContext(ctx, "senderpurge: navigating to search", "fragment", fragment)
	err = q.Exec.Do(ctx, func(context.Context) error {
		return q.Doc.SetFragment(fragment)
	})
	if err != nil {
		q.clearFlag(ctx)
		return q.fail(ctx, StateNavigate, fmt.Errorf("senderpurge: navigate: %w", err))
	}
	return Outcome{Result: Navigated, Last: StateNavigate, Detail: fragment}
}

// Resume waits for the search results, then selects and deletes them.
// The pending flag is cleared on every path out of the wait except a
// cancelled ctx, which hands it to whoever resumes next.
func (q *Sequencer) Resume(ctx context.Context) Outcome {
	q.enter(ctx, StateAwaitResults)
	var rows int
	_, err := poll.Until(ctx, poll.Options{
		Attempts: q.Timing.PollAttempts,
		Initial:  q.Timing.InitialWait,
		Interval: q.Timing.PollInterval,
		Sleep:    q.Sleep,
	}, func(ctx context.Context) (bool, error) {
		var ready bool
		err := q.Exec.Do(ctx, func(context.Context) error {
			var err error
			rows, ready, err = q.Locator.ResultsReady(q.Doc)
			return err
		})
		return ready, err
	})
	if err != nil && ctx.Err() != nil {
		q.logger().InfoContext(ctx, "senderpurge: left page while waiting for results, flag kept")
		return Outcome{Result: Interrupted, Last: StateAwaitResults, Detail: ctx.Err().Error()}
	}
	q.clearFlag(ctx)
	switch {
	case errors.Is(err, poll.ErrTimeout):
		q.logger().InfoContext(ctx, "senderpurge: timed out waiting for search results")
		return Outcome{Result: TimedOut, Last: StateAwaitResults}
	case err != nil:
		return q.fail(ctx, StateAwaitResults, err)
	}
	q.logger().InfoContext(ctx, "senderpurge: search loaded", "rows", rows)

	q.enter(ctx, StateSelectAll)
	found, err := q.click(ctx, ControlSelectAll)
	if err != nil {
		return q.fail(ctx, StateSelectAll, err)
	}
	if !found {
		return q.abort(ctx, StateSelectAll, alertNoSelectAll)
	}

	if err := q.sleep(ctx, q.Timing.SelectDelay); err != nil {
		return q.fail(ctx, StateSelectAll, err)
	}
	q.enter(ctx, StateExpandSelection)
	found, err = q.click(ctx, ControlExpand)
	if err != nil {
		return q.fail(ctx, StateExpandSelection, err)
	}
	if found {
		q.logger().InfoContext(ctx, "senderpurge: expanded selection to all matching conversations")
		if err := q.sleep(ctx, q.Timing.ExpandDelay); err != nil {
			return q.fail(ctx, StateExpandSelection, err)
		}
	} else {
		q.logger().DebugContext(ctx, "senderpurge: no expand link, single page of results")
	}

	q.enter(ctx, StateDelete)
	found, err = q.click(ctx, ControlDelete)
	if err != nil {
		return q.fail(ctx, StateDelete, err)
	}
	if !found {
		return q.abort(ctx, StateDelete, alertNoDelete)
	}

	if err := q.sleep(ctx, q.Timing.ConfirmDelay); err != nil {
		return q.fail(ctx, StateDelete, err)
	}
	q.enter(ctx, StateConfirmBulk)
	found, err = q.click(ctx, ControlConfirm)
	if err != nil {
		return q.fail(ctx, StateConfirmBulk, err)
	}
	if found {
		q.logger().InfoContext(ctx, "senderpurge: confirmed bulk delete dialog")
	} else {
		q.logger().DebugContext(ctx, "senderpurge: no confirmation dialog")
	}
	return Outcome{Result: Completed, Last: StateConfirmBulk, Detail: fmt.Sprintf("%d rows", rows)}
}

// click finds and clicks a control on the executor. It reports whether
// the control was present.
func (q *Sequencer) click(ctx context.Context, c Control) (bool, error) {
	var found bool
	err := q.Exec.Do(ctx, func(context.Context) error {
		el, err := q.Locator.FindActionControl(q.Doc, c)
		if err != nil {
			return err
		}
		if el == nil {
			return nil
		}
		found = true
		if err := el.Click(); err != nil {
			return fmt.Errorf("senderpurge: click %s: %w", c, err)
		}
		return nil
	})
	if found {
		q.logger().DebugContext(ctx, "senderpurge: clicked", "control", c)
	}
	return found, err
}

func (q *Sequencer) abort(ctx context.Context, s State, msg string) Outcome {
	q.logger().WarnContext(ctx, "senderpurge: control not found, aborting", "state", s)
	err := q.Exec.Do(ctx, func(context.Context) error {
		return q.Prompter.Alert(msg)
	})
	if err != nil {
		q.logger().WarnContext(ctx, "senderpurge: alert failed", "error", err)
	}
	return Outcome{Result: Aborted, Last: s, Detail: msg}
}

func (q *Sequencer) clearFlag(ctx context.Context) {
	// The flag must not outlive a run, even when ctx is already done.
	if err := q.Flag.Clear(context.WithoutCancel(ctx)); err != nil {
		q.logger().ErrorContext(ctx, "senderpurge: clear flag failed", "error", err)
	}
}
