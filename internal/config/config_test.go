package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/domclick/internal/browser"
)

const sample = `
agent: senderpurge
browser:
  mode: headless
  user_data_dir: /tmp/profile
  resource_blocking: [images, fonts]
observer:
  debounce: 100ms
sinks:
  - type: stdout
  - type: webhook
    url: http://localhost:9000/events
status:
  listen: ":8080"
flag_store:
  type: sqlite
  path: /tmp/flag.db
senderpurge:
  url: https://mail.example.com/mail/u/0/
  timing:
    poll_attempts: 10
    select_delay: 1s
reviewhide:
  url: https://code.example.com/o/r/pull/1/files
  patterns: ["_test.go"]
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domclick.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Browser.Mode != browser.ModeHeadless || cfg.Browser.UserDataDir != "/tmp/profile" {
		t.Errorf("browser: %+v", cfg.Browser)
	}
	if cfg.Observer.Debounce != 100*time.Millisecond || cfg.Observer.MaxBuffer != 1000 {
		t.Errorf("observer: %+v", cfg.Observer)
	}
	if len(cfg.Sinks) != 2 || cfg.Sinks[1].Retries != 3 || cfg.Sinks[1].Backoff != time.Second {
		t.Errorf("sinks: %+v", cfg.Sinks)
	}

	sp := cfg.SenderPurge
	if sp.Timing.PollAttempts != 10 || sp.Timing.SelectDelay != time.Second {
		t.Errorf("timing overrides lost: %+v", sp.Timing)
	}
	if sp.Timing.PollInterval != 500*time.Millisecond || sp.Timing.InitialWait != time.Second {
		t.Errorf("timing defaults not applied: %+v", sp.Timing)
	}
	if sp.MenuMarker != "Find emails from" || sp.Selectors.ConfirmOK == "" {
		t.Errorf("senderpurge defaults: %+v", sp)
	}
	if cfg.FlagStore.TTL != sp.PendingTTL {
		t.Errorf("flag ttl: got %v, want %v", cfg.FlagStore.TTL, sp.PendingTTL)
	}

	rh := cfg.ReviewHide
	if len(rh.Patterns) != 1 || rh.Patterns[0] != "_test.go" || rh.HeaderSelector != "h3" {
		t.Errorf("reviewhide: %+v", rh)
	}
	if cfg.URL() != sp.URL {
		t.Errorf("URL: got %q", cfg.URL())
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Browser.Mode != browser.ModeHeadful {
		t.Errorf("mode: got %q", cfg.Browser.Mode)
	}
	if len(cfg.Sinks) != 1 || cfg.Sinks[0].Type != "stdout" {
		t.Errorf("sinks: %+v", cfg.Sinks)
	}
	if cfg.FlagStore.Type != "session" {
		t.Errorf("flag store: got %q", cfg.FlagStore.Type)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"unknown agent", func(c *Config) { c.Agent = "nope" }, "unknown agent"},
		{"missing url", func(c *Config) { c.ReviewHide.URL = "" }, "reviewhide.url"},
		{"sqlite without path", func(c *Config) { c.FlagStore = FlagStoreConfig{Type: "sqlite"} }, "flag_store.path"},
		{"webhook without url", func(c *Config) { c.Sinks = []SinkConfig{{Type: "webhook"}} }, "needs a url"},
		{"webhook bad scheme", func(c *Config) { c.Sinks = []SinkConfig{{Type: "webhook", URL: "ftp://x/y"}} }, "unsupported scheme"},
		{"page without host", func(c *Config) { c.ReviewHide.URL = "https:///pull/1" }, "no host"},
		{"bad sink", func(c *Config) { c.Sinks = []SinkConfig{{Type: "nats"}} }, "unknown sink"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Agent = AgentReviewHide
			cfg.ReviewHide.URL = "https://code.example.com/pull/1/files"
			tt.mut(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestParseError(t *testing.T) {
	if _, err := Parse([]byte("agent: [")); err == nil {
		t.Error("want parse error")
	}
}
