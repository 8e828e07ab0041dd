// Package config loads the domclick YAML configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/domclick/internal/browser"
	"github.com/hazyhaar/domclick/reviewhide"
	"github.com/hazyhaar/domclick/senderpurge"
)

// Config is the top-level configuration.
type Config struct {
	// Agent selects reviewhide or senderpurge.
	Agent string `yaml:"agent"`
	// Debug logs every not-found condition, unless -log-level is given.
	Debug       bool               `yaml:"debug"`
	Browser     browser.Config     `yaml:"browser"`
	Observer    ObserverConfig     `yaml:"observer"`
	Sinks       []SinkConfig       `yaml:"sinks"`
	Status      StatusConfig       `yaml:"status"`
	FlagStore   FlagStoreConfig    `yaml:"flag_store"`
	ReviewHide  reviewhide.Config  `yaml:"reviewhide"`
	SenderPurge senderpurge.Config `yaml:"senderpurge"`
}

// ObserverConfig controls mutation batching.
type ObserverConfig struct {
	Debounce  time.Duration `yaml:"debounce"`
	MaxBuffer int           `yaml:"max_buffer"`
}

// SinkConfig defines a report backend.
type SinkConfig struct {
	Type    string        `yaml:"type"` // stdout | webhook
	URL     string        `yaml:"url"`  // webhook
	Retries int           `yaml:"retries"`
	Backoff time.Duration `yaml:"backoff"`
	// Buffer is the async queue size in front of slow sinks.
	Buffer int `yaml:"buffer"`
}

// StatusConfig controls the status HTTP endpoint. Empty Listen disables it.
type StatusConfig struct {
	Listen string `yaml:"listen"`
}

// FlagStoreConfig selects where the pending-action flag lives.
type FlagStoreConfig struct {
	Type string        `yaml:"type"` // session | sqlite | memory
	Path string        `yaml:"path"` // sqlite
	TTL  time.Duration `yaml:"ttl"`
}

// Agent names.
const (
	AgentReviewHide  = "reviewhide"
	AgentSenderPurge = "senderpurge"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Browser.Mode == "" {
		c.Browser.Mode = browser.ModeHeadful
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Observer.MaxBuffer <= 0 {
		c.Observer.MaxBuffer = 1000
	}
	if len(c.Sinks) == 0 {
		c.Sinks = []SinkConfig{{Type: "stdout"}}
	}
	for i := range c.Sinks {
		s := &c.Sinks[i]
		if s.Type == "webhook" {
			if s.Retries <= 0 {
				s.Retries = 3
			}
			if s.Backoff <= 0 {
				s.Backoff = time.Second
			}
			if s.Buffer <= 0 {
				s.Buffer = 256
			}
		}
	}
	if c.FlagStore.Type == "" {
		c.FlagStore.Type = "session"
	}
	c.ReviewHide.ApplyDefaults()
	c.SenderPurge.ApplyDefaults()
	if c.FlagStore.TTL <= 0 {
		c.FlagStore.TTL = c.SenderPurge.PendingTTL
	}
}

// Validate checks the settings the selected agent depends on.
func (c *Config) Validate() error {
	switch c.Agent {
	case AgentReviewHide:
		if c.ReviewHide.URL == "" {
			return fmt.Errorf("config: reviewhide.url is required")
		}
		if err := checkURL(c.ReviewHide.URL); err != nil {
			return fmt.Errorf("config: reviewhide.url: %w", err)
		}
	case AgentSenderPurge:
		if c.SenderPurge.URL == "" {
			return fmt.Errorf("config: senderpurge.url is required")
		}
		if err := checkURL(c.SenderPurge.URL); err != nil {
			return fmt.Errorf("config: senderpurge.url: %w", err)
		}
	default:
		return fmt.Errorf("config: unknown agent %q", c.Agent)
	}
	switch c.FlagStore.Type {
	case "session", "memory":
	case "sqlite":
		if c.FlagStore.Path == "" {
			return fmt.Errorf("config: flag_store.path is required for sqlite")
		}
	default:
		return fmt.Errorf("config: unknown flag_store type %q", c.FlagStore.Type)
	}
	for _, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("config: webhook sink needs a url")
			}
			if err := checkURL(s.URL); err != nil {
				return fmt.Errorf("config: webhook sink: %w", err)
			}
		default:
			return fmt.Errorf("config: unknown sink type %q", s.Type)
		}
	}
	return nil
}

// checkURL accepts absolute http and https URLs with a host. Loopback and
// private hosts are allowed: webhooks commonly point at a local collector.
func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("no host in %q", raw)
	}
	return nil
}

// URL returns the page the selected agent opens.
func (c *Config) URL() string {
	if c.Agent == AgentSenderPurge {
		return c.SenderPurge.URL
	}
	return c.ReviewHide.URL
}
