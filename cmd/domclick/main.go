// Command domclick drives a DOM-automation agent in a Chrome tab.
//
// Usage:
//
//	domclick -agent reviewhide -url https://github.com/o/r/pull/1/files
//	domclick -agent senderpurge -config domclick.yaml -listen :8080
//	domclick -config domclick.yaml -remote ws://127.0.0.1:9222/devtools/browser/...
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-rod/rod/lib/proto"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domclick/dom"
	"github.com/hazyhaar/domclick/eventloop"
	"github.com/hazyhaar/domclick/internal/browser"
	"github.com/hazyhaar/domclick/internal/config"
	"github.com/hazyhaar/domclick/internal/rodom"
	"github.com/hazyhaar/domclick/internal/status"
	"github.com/hazyhaar/domclick/pending"
	"github.com/hazyhaar/domclick/report"
	"github.com/hazyhaar/domclick/reviewhide"
	"github.com/hazyhaar/domclick/senderpurge"
)

type options struct {
	configPath string
	agent      string
	url        string
	logLevel   string
	yes        bool
	listen     string
	remote     string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to domclick.yaml")
	flag.StringVar(&o.agent, "agent", "", "agent to run: reviewhide | senderpurge")
	flag.StringVar(&o.url, "url", "", "page to open (overrides the config)")
	flag.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flag.BoolVar(&o.yes, "yes", false, "answer yes to confirmations (senderpurge)")
	flag.StringVar(&o.listen, "listen", "", "status endpoint address, e.g. :8080")
	flag.StringVar(&o.remote, "remote", "", "DevTools URL of a running Chrome")
	flag.Parse()

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "usage: domclick -agent reviewhide|senderpurge [-config file] [-url U] [-yes] [-listen :8080]")
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(o.logLevel, cfg.Debug)}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg, o.yes); err != nil {
		logger.Error("domclick: fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig(o options) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(o.configPath); err != nil {
			return nil, err
		}
	}
	if o.agent != "" {
		cfg.Agent = o.agent
	}
	if o.url != "" {
		switch cfg.Agent {
		case config.AgentReviewHide:
			cfg.ReviewHide.URL = o.url
		case config.AgentSenderPurge:
			cfg.SenderPurge.URL = o.url
		}
	}
	if o.listen != "" {
		cfg.Status.Listen = o.listen
	}
	if o.remote != "" {
		cfg.Browser.RemoteURL = o.remote
	}
	return cfg, cfg.Validate()
}

func logLevel(flagValue string, debug bool) slog.Level {
	switch flagValue {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		return slog.LevelInfo
	}
	if debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// agent is what both agents offer the command.
type agent interface {
	Start(ctx context.Context) error
	Snapshot() status.Snapshot
}

// current tracks the agent of the current page load for /status.
type current struct {
	mu sync.Mutex
	a  agent
}

func (c *current) set(a agent) {
	c.mu.Lock()
	c.a = a
	c.mu.Unlock()
}

func (c *current) Snapshot() status.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.a == nil {
		return status.Snapshot{}
	}
	return c.a.Snapshot()
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config, yes bool) error {
	sink, err := buildSinks(cfg, logger)
	if err != nil {
		return err
	}
	defer sink.Close()

	bcfg := cfg.Browser
	bcfg.Logger = logger
	mgr := browser.NewManager(bcfg)
	if _, err := mgr.Start(ctx); err != nil {
		return err
	}
	defer mgr.Close()

	tab, err := browser.OpenTab(ctx, mgr, cfg.URL())
	if err != nil {
		return err
	}
	defer tab.Close()

	loop := eventloop.New(0, logger)
	go loop.Run(ctx)

	doc, err := rodom.New(ctx, tab.Page, logger)
	if err != nil {
		return err
	}

	flagStore, closeFlag, err := buildFlag(cfg, tab)
	if err != nil {
		return err
	}
	defer closeFlag()

	var prompter dom.Prompter = rodom.Prompter{Page: tab.Page}
	if yes {
		prompter = senderpurge.AutoConfirm{Logger: logger}
	}

	var cur current
	if cfg.Status.Listen != "" {
		go func() {
			if err := status.Serve(ctx, cfg.Status.Listen, status.NewRouter(&cur, logger), logger); err != nil {
				logger.Error("domclick: status server", "error", err)
			}
		}()
	}

	// A full reload replaces the document and every listener in it, so
	// each load gets a fresh agent.
	loads := make(chan struct{}, 1)
	go tab.Page.Context(ctx).EachEvent(func(*proto.PageLoadEventFired) {
		select {
		case loads <- struct{}{}:
		default:
		}
	})()

	newAgent := func() agent {
		switch cfg.Agent {
		case config.AgentSenderPurge:
			return senderpurge.New(senderpurge.Options{
				Doc:       doc,
				Exec:      loop,
				Config:    cfg.SenderPurge,
				Prompter:  prompter,
				Flag:      flagStore,
				Sink:      sink,
				Debounce:  cfg.Observer.Debounce,
				MaxBuffer: cfg.Observer.MaxBuffer,
				PageURL:   cfg.URL(),
				Logger:    logger,
			})
		default:
			return reviewhide.New(reviewhide.Options{
				Doc:       doc,
				Exec:      loop,
				Config:    cfg.ReviewHide,
				Sink:      sink,
				Debounce:  cfg.Observer.Debounce,
				MaxBuffer: cfg.Observer.MaxBuffer,
				PageURL:   cfg.URL(),
				Logger:    logger,
			})
		}
	}

	return supervise(ctx, loads, newAgent, doc.Reset, &cur, logger)
}

// supervise runs one agent per page load. The previous agent is
// cancelled and drained before the document is reset, so a run left
// over from the old page never overlaps the next page's agent.
func supervise(ctx context.Context, loads <-chan struct{}, newAgent func() agent, reset func(), cur *current, logger *slog.Logger) error {
	for {
		actx, cancel := context.WithCancel(ctx)
		a := newAgent()
		cur.set(a)
		if err := a.Start(actx); err != nil && !errors.Is(err, context.Canceled) {
			cancel()
			drain(a)
			return fmt.Errorf("domclick: start agent: %w", err)
		}

		select {
		case <-ctx.Done():
			logger.Info("domclick: shutting down")
			cancel()
			drain(a)
			return nil
		case <-loads:
			logger.Info("domclick: page reloaded, restarting agent")
			cancel()
			drain(a)
			reset()
		}
	}
}

// drain waits for the runs an agent started, if it starts any.
func drain(a agent) {
	if w, ok := a.(interface{ Wait() }); ok {
		w.Wait()
	}
}

func buildSinks(cfg *config.Config, logger *slog.Logger) (report.Sink, error) {
	var sinks []report.Sink
	for _, sc := range cfg.Sinks {
		switch sc.Type {
		case "stdout":
			sinks = append(sinks, report.NewStdout(os.Stdout))
		case "webhook":
			wh := report.NewWebhook(sc.URL,
				report.WithWebhookRetries(sc.Retries),
				report.WithWebhookBackoff(sc.Backoff),
				report.WithWebhookLogger(logger))
			// Retries must not stall the event loop.
			sinks = append(sinks, report.NewAsync(wh, sc.Buffer, logger))
		default:
			return nil, fmt.Errorf("domclick: unknown sink %q", sc.Type)
		}
	}
	return report.NewRouter(logger, sinks...), nil
}

func buildFlag(cfg *config.Config, tab *browser.Tab) (pending.Store, func(), error) {
	key := cfg.SenderPurge.PendingKey
	switch cfg.FlagStore.Type {
	case "sqlite":
		s, err := pending.OpenSQLite(cfg.FlagStore.Path, key, cfg.FlagStore.TTL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "memory":
		return &pending.Memory{TTL: cfg.FlagStore.TTL}, func() {}, nil
	default:
		return rodom.SessionStore{Page: tab.Page, Key: key}, func() {}, nil
	}
}
