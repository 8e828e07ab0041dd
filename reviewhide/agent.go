package reviewhide

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/domclick/dom"
	"github.com/hazyhaar/domclick/eventloop"
	"github.com/hazyhaar/domclick/internal/status"
	"github.com/hazyhaar/domclick/observe"
	"github.com/hazyhaar/domclick/report"
)

// Name identifies the agent in reports.
const Name = "reviewhide"

// Options wires an Agent.
type Options struct {
	Doc    dom.Document
	Exec   eventloop.Executor
	Config Config
	// Locator overrides the selector-based locator.
	Locator  Locator
	Sink     report.Sink
	Debounce time.Duration
	// MaxBuffer caps a debounced batch.
	MaxBuffer int
	PageURL   string
	Logger    *slog.Logger
}

// Agent scans once on start, then rescans whenever files are added to
// the file list.
type Agent struct {
	opts    Options
	scanner *Scanner
	driver  *observe.Driver
	logger  *slog.Logger

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
		opts.Locator = SelectorLocator{
			HeaderSelector: opts.Config.HeaderSelector,
			ButtonSelector: opts.Config.NotViewedSelector,
			Logger:         opts.Logger,
		}
	}

	a := &Agent{
		opts:   opts,
		logger: opts.Logger,
		scanner: &Scanner{
			Doc:      opts.Doc,
			Locator:  opts.Locator,
			Patterns: opts.Config.Patterns,
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
		Container: opts.Config.ContainerSelector,
		Handler:   a.onMutations,
		Debounce:  opts.Debounce,
		MaxBuffer: opts.MaxBuffer,
		OnState:   a.onState,
		Logger:    opts.Logger,
	})
	return a
}

// Start runs the initial scan and starts watching the file list.
func (a *Agent) Start(ctx context.Context) error {
	a.logger.InfoContext(ctx, "reviewhide: agent loaded", "url", a.opts.PageURL)
	if err := a.opts.Exec.Do(ctx, func(ctx context.Context) error {
		a.scan(ctx)
		return nil
	}); err != nil {
		return err
	}
	_, err := a.driver.Start(ctx)
	return err
}

// Scan runs one bulk scan on the executor and returns its count.
func (a *Agent) Scan(ctx context.Context) (int, error) {
	var n int
	err := a.opts.Exec.Do(ctx, func(ctx context.Context) error {
		n = a.scan(ctx)
		return nil
	})
	return n, err
}

func (a *Agent) onMutations(ctx context.Context, added []dom.Element) {
	a.logger.DebugContext(ctx, "reviewhide: DOM changed, rescanning", "added", len(added))
	a.scan(ctx)
}

func (a *Agent) scan(ctx context.Context) int {
	n := a.scanner.Scan(ctx)

	a.mu.Lock()
	a.snap.LastScan = n
	a.snap.Scans++
	a.snap.UpdatedAt = time.Now()
	a.mu.Unlock()

	a.emit(ctx, report.Event{Kind: report.KindScan, Count: n})
	return n
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
		a.logger.WarnContext(ctx, "reviewhide: report failed", "error", err)
	}
}

// Snapshot implements status.Provider.
func (a *Agent) Snapshot() status.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap
}
