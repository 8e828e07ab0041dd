// Package senderpurge adds a "Delete all from <sender>" entry to the
// webmail context menu. Choosing it searches for the sender's mail,
// selects every result and deletes it. The search is a navigation, so
// a pending-action flag carries the request over to the results view.
package senderpurge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/domclick/dom"
	"github.com/hazyhaar/domclick/eventloop"
	"github.com/hazyhaar/domclick/idgen"
	"github.com/hazyhaar/domclick/inject"
	"github.com/hazyhaar/domclick/internal/status"
	"github.com/hazyhaar/domclick/locate"
	"github.com/hazyhaar/domclick/observe"
	"github.com/hazyhaar/domclick/pending"
	"github.com/hazyhaar/domclick/poll"
	"github.com/hazyhaar/domclick/report"
)

// Name identifies the agent in reports.
const Name = "senderpurge"

// Options wires an Agent.
type Options struct {
	Doc    dom.Document
	Exec   eventloop.Executor
	Config Config
	// Locator overrides the selector-based locator.
	Locator  Locator
	Prompter dom.Prompter
	// Flag defaults to an in-process store with Config.PendingTTL.
	Flag     pending.Store
	Sink     report.Sink
	Sleep    poll.Sleeper
	Debounce time.Duration
	// MaxBuffer caps a debounced batch.
	MaxBuffer int
	PageURL   string
	Logger    *slog.Logger
}

// Agent injects the menu entry and drives the sequencer.
type Agent struct {
	opts   Options
	seq    Sequencer
	driver *observe.Driver
	logger *slog.Logger

	ctx context.Context
	wg  sync.WaitGroup
	// resuming guards against a hashchange and a page load both
	// resuming the same flag.
	resuming atomic.Bool

	// target is the sender address of the last right-clicked row. Only
	// touched on the executor.
	target string

	mu   sync.Mutex
	snap status.Snapshot
}

// New creates an Agent. Call Start once the page has loaded.
func New(opts Options) *Agent {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Sink == nil {
		opts.Sink = report.Discard{}
	}
	opts.Config.ApplyDefaults()
	if opts.Locator == nil {
		opts.Locator = NewSelectorLocator(opts.Config)
	}
	if opts.Flag == nil {
		opts.Flag = &pending.Memory{TTL: opts.Config.PendingTTL}
	}

	a := &Agent{
		opts:   opts,
		logger: opts.Logger,
		ctx:    context.Background(),
		seq: Sequencer{
			Doc:      opts.Doc,
			Exec:     opts.Exec,
			Locator:  opts.Locator,
			Prompter: opts.Prompter,
			Flag:     opts.Flag,
			Timing:   opts.Config.Timing,
			Sleep:    opts.Sleep,
			Logger:   opts.Logger,
		},
		snap: status.Snapshot{
			Agent:    Name,
			PageURL:  opts.PageURL,
			Observer: string(observe.Idle),
		},
	}
	a.driver = observe.New(observe.Config{
		Doc:       opts.Doc,
		Exec:      opts.Exec,
		Handler:   a.onMutations,
		Debounce:  opts.Debounce,
		MaxBuffer: opts.MaxBuffer,
		OnState:   a.onState,
		Logger:    opts.Logger,
	})
	return a
}

// Start subscribes to right-clicks, fragment changes and body
// mutations, then resumes a run left pending by a previous page.
func (a *Agent) Start(ctx context.Context) error {
	if a.opts.Prompter == nil {
		return errors.New("senderpurge: no prompter")
	}
	a.ctx = ctx
	a.logger.InfoContext(ctx, "senderpurge: agent loaded", "url", a.opts.PageURL)

	err := a.opts.Exec.Do(ctx, func(context.Context) error {
		if err := a.opts.Doc.OnContextMenu(a.onContextMenu); err != nil {
			return err
		}
		return a.opts.Doc.OnFragmentChange(a.onFragment)
	})
	if err != nil {
		return err
	}
	if _, err := a.driver.Start(ctx); err != nil {
		return err
	}

	if a.resume(ctx) {
		a.logger.InfoContext(ctx, "senderpurge: pending delete found on page load")
	}
	return nil
}

// Wait blocks until every started run has finished.
func (a *Agent) Wait() { a.wg.Wait() }

// onContextMenu records the right-clicked sender before the host renders
// its menu.
func (a *Agent) onContextMenu(target dom.Element) {
	a.opts.Exec.Post(func(ctx context.Context) {
		row, err := a.opts.Locator.FindRow(target)
		if err != nil {
			a.logger.WarnContext(ctx, "senderpurge: find row failed", "error", err)
			return
		}
		email, err := a.opts.Locator.SenderEmail(row)
		if err != nil {
			a.logger.WarnContext(ctx, "senderpurge: sender email failed", "error", err)
			return
		}
		a.target = email
		a.logger.DebugContext(ctx, "senderpurge: right-click", "row", row != nil, "email", email)
	})
}

func (a *Agent) onMutations(ctx context.Context, added []dom.Element) {
	for _, el := range added {
		m, err := a.opts.Locator.FindMenuItem(el)
		if err != nil {
			a.logger.WarnContext(ctx, "senderpurge: menu lookup failed", "error", err)
			continue
		}
		if m == nil {
			continue
		}
		a.injectMenu(ctx, m, Sender{Email: a.target, Name: m.Payload})
	}
}

func (a *Agent) injectMenu(ctx context.Context, m *locate.TextMatch, sender Sender) {
	cfg := a.opts.Config
	_, injected, err := inject.CloneAfter(m.Element, inject.Options{
		Marker: cfg.InjectedMarker,
		Match:  cfg.MenuMarker,
		Label:  cfg.LabelPrefix + " " + sender.Name,
		Style:  map[string]string{"color": cfg.Color},
		IconStyle: map[string]map[string]string{
			"img": {"filter": cfg.IconFilter},
			"svg": {"color": cfg.Color, "fill": cfg.Color},
		},
		OnClick: func() { a.begin(sender) },
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "senderpurge: inject failed", "error", err)
		return
	}
	if !injected {
		return
	}
	a.logger.InfoContext(ctx, "senderpurge: delete menu item injected",
		"sender", sender.Name, "email", sender.Email)

	a.mu.Lock()
	a.snap.Injections++
	a.snap.UpdatedAt = time.Now()
	a.mu.Unlock()
	a.emit(ctx, report.Event{Kind: report.KindInject, Detail: sender.Query()})
}

// begin starts a run off the executor; the click handler may itself be
// running on it.
func (a *Agent) begin(sender Sender) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		run := idgen.Run()
		out := a.sequencer(run).Begin(a.ctx, sender)
		a.finish(a.ctx, run, out)
	}()
}

func (a *Agent) onFragment(fragment string) {
	if a.resume(a.ctx) {
		a.logger.InfoContext(a.ctx, "senderpurge: hash changed with pending delete", "fragment", fragment)
	}
}

// resume starts the results half of a run when the flag is set. It
// reports whether a run was started.
func (a *Agent) resume(ctx context.Context) bool {
	set, err := a.opts.Flag.IsSet(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "senderpurge: read flag failed", "error", err)
		return false
	}
	if !set {
		return false
	}
	if !a.resuming.CompareAndSwap(false, true) {
		a.logger.DebugContext(ctx, "senderpurge: resume already running")
		return false
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.resuming.Store(false)
		run := idgen.Run()
		out := a.sequencer(run).Resume(ctx)
		a.finish(ctx, run, out)
	}()
	return true
}

func (a *Agent) sequencer(run string) *Sequencer {
	seq := a.seq
	seq.Logger = a.logger.With("run", run)
	seq.OnStep = func(ctx context.Context, s State) {
		a.emit(ctx, report.Event{Kind: report.KindStep, RunID: run, State: string(s)})
	}
	return &seq
}

func (a *Agent) finish(ctx context.Context, run string, out Outcome) {
	a.logger.InfoContext(ctx, "senderpurge: run finished",
		"run", run, "result", out.Result, "state", out.Last)

	// Navigated and Interrupted hand the run to another page, not end
	// it; the resumed half may already have finished.
	if out.Result != Navigated && out.Result != Interrupted {
		a.mu.Lock()
		a.snap.LastRun = run
		a.snap.LastOutcome = string(out.Result)
		a.snap.UpdatedAt = time.Now()
		a.mu.Unlock()
	}
	a.emit(ctx, report.Event{
		Kind:   report.KindOutcome,
		RunID:  run,
		State:  string(out.Result),
		Detail: out.Detail,
	})
}

func (a *Agent) onState(s observe.State) {
	a.mu.Lock()
	a.snap.Observer = string(s)
	a.snap.UpdatedAt = time.Now()
	a.mu.Unlock()
	a.emit(context.Background(), report.Event{Kind: report.KindObserver, State: string(s)})
}

func (a *Agent) emit(ctx context.Context, ev report.Event) {
	ev.Agent = Name
	ev.PageURL = a.opts.PageURL
	if err := a.opts.Sink.Send(ctx, report.Stamp(ev)); err != nil {
		a.logger.WarnContext(ctx, "senderpurge: report failed", "error", err)
	}
}

// Snapshot implements status.Provider.
func (a *Agent) Snapshot() status.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap
}
