package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hazyhaar/domclick/internal/config"
	"github.com/hazyhaar/domclick/internal/status"
)

func TestLoadConfigFlagsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domclick.yaml")
	os.WriteFile(path, []byte("agent: reviewhide\nreviewhide:\n  url: https://a.example/pull/1/files\n"), 0o644)

	cfg, err := loadConfig(options{
		configPath: path,
		agent:      config.AgentSenderPurge,
		url:        "https://mail.example/",
		listen:     ":9090",
		remote:     "ws://127.0.0.1:9222/devtools/browser/x",
	})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Agent != config.AgentSenderPurge || cfg.URL() != "https://mail.example/" {
		t.Errorf("agent/url: %q %q", cfg.Agent, cfg.URL())
	}
	if cfg.Status.Listen != ":9090" || cfg.Browser.RemoteURL == "" {
		t.Errorf("overrides: %+v %+v", cfg.Status, cfg.Browser)
	}
}

func TestLoadConfigNeedsAgent(t *testing.T) {
	if _, err := loadConfig(options{}); err == nil {
		t.Error("no agent: want error")
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		flag  string
		debug bool
		want  slog.Level
	}{
		{"", false, slog.LevelInfo},
		{"", true, slog.LevelDebug},
		{"warn", true, slog.LevelWarn},
		{"info", true, slog.LevelInfo},
		{"error", false, slog.LevelError},
	}
	for _, tt := range tests {
		if got := logLevel(tt.flag, tt.debug); got != tt.want {
			t.Errorf("logLevel(%q, %v): got %v, want %v", tt.flag, tt.debug, got, tt.want)
		}
	}
}

func TestBuildSinks(t *testing.T) {
	cfg := config.Default()
	cfg.Sinks = []config.SinkConfig{{Type: "stdout"}, {Type: "webhook", URL: "http://127.0.0.1:1/x", Buffer: 4}}
	sink, err := buildSinks(cfg, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	cfg.Sinks = []config.SinkConfig{{Type: "nats"}}
	if _, err := buildSinks(cfg, slog.Default()); err == nil {
		t.Error("unknown sink: want error")
	}
}

// stubAgent records its lifecycle into a shared log.
type stubAgent struct {
	id      int
	log     *[]string
	started chan<- int
	ctx     context.Context
}

func (s *stubAgent) Start(ctx context.Context) error {
	s.ctx = ctx
	*s.log = append(*s.log, fmt.Sprintf("start %d", s.id))
	s.started <- s.id
	return nil
}

func (s *stubAgent) Wait() {
	state := "live"
	if s.ctx.Err() != nil {
		state = "cancelled"
	}
	*s.log = append(*s.log, fmt.Sprintf("wait %d %s", s.id, state))
}

func (s *stubAgent) Snapshot() status.Snapshot { return status.Snapshot{} }

func TestSuperviseStopsAgentBeforeReload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var log []string
	started := make(chan int, 2)
	loads := make(chan struct{}, 1)
	n := 0
	newAgent := func() agent {
		n++
		return &stubAgent{id: n, log: &log, started: started}
	}
	reset := func() { log = append(log, "reset") }

	done := make(chan error, 1)
	go func() {
		done <- supervise(ctx, loads, newAgent, reset, &current{}, slog.Default())
	}()

	<-started
	loads <- struct{}{}
	<-started
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("supervise: %v", err)
	}

	want := []string{"start 1", "wait 1 cancelled", "reset", "start 2", "wait 2 cancelled"}
	if strings.Join(log, "|") != strings.Join(want, "|") {
		t.Errorf("lifecycle:\n got %q\nwant %q", log, want)
	}
}
