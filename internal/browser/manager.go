// Package browser owns the Chrome instance the agents drive: launch or
// attach, optional virtual display, teardown. Agents act inside the
// operator's logged-in session, so unlike a crawler the process is never
// recycled behind their back.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Mode selects how a local Chrome is shown.
type Mode string

const (
	ModeHeadless Mode = "headless"
	ModeHeadful  Mode = "headful" // on the operator's display
	ModeXvfb     Mode = "xvfb"    // headful on a virtual display
)

// Config configures the Manager.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome.
	// Empty launches a local one.
	RemoteURL string `yaml:"remote"`
	// Bin overrides the Chrome binary. Empty lets the launcher find or
	// download one.
	Bin string `yaml:"bin"`
	// Mode defaults to ModeHeadful: the host sessions and dialogs are
	// the operator's.
	Mode Mode `yaml:"mode"`
	// UserDataDir holds the profile with the operator's cookies.
	UserDataDir string `yaml:"user_data_dir"`
	// Stealth opens tabs through go-rod/stealth.
	Stealth bool `yaml:"stealth"`
	// ResourceBlocking lists resource types to fail (images, fonts,
	// media, stylesheets).
	ResourceBlocking []string `yaml:"resource_blocking"`
	// XvfbDisplay for ModeXvfb. Default: ":99".
	XvfbDisplay string `yaml:"xvfb_display"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.Mode == "" {
		c.Mode = ModeHeadful
	}
	if c.XvfbDisplay == "" {
		c.XvfbDisplay = ":99"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns one Chrome connection.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	xvfb    *exec.Cmd
	closed  bool
}

// NewManager creates a Manager. Call Start to get a browser.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches or attaches to Chrome and returns the rod handle.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}
	if m.browser != nil {
		return m.browser, nil
	}

	b, err := m.launch(ctx)
	if err != nil {
		m.cleanup()
		return nil, err
	}
	m.browser = b
	return b, nil
}

// Browser returns the current handle, or nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// Close disconnects and, for a local Chrome, kills it.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanup()
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	log := m.cfg.Logger

	wsURL := m.cfg.RemoteURL
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		if m.cfg.Mode == ModeXvfb {
			if err := m.startXvfb(ctx); err != nil {
				return nil, fmt.Errorf("browser: xvfb: %w", err)
			}
		}
		l := m.launcher()
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "mode", m.cfg.Mode,
			"profile", m.cfg.UserDataDir)
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	return b, nil
}

func (m *Manager) launcher() *launcher.Launcher {
	l := launcher.New().Leakless(true)
	if m.cfg.Bin != "" {
		l = l.Bin(m.cfg.Bin)
	}
	if m.cfg.UserDataDir != "" {
		// Never Cleanup a launcher with this set: it removes the profile.
		l = l.UserDataDir(m.cfg.UserDataDir)
	}
	switch m.cfg.Mode {
	case ModeHeadless:
		l = l.Headless(true)
	case ModeXvfb:
		l = l.Headless(false).Env("DISPLAY=" + m.cfg.XvfbDisplay)
	default:
		l = l.Headless(false)
	}
	return l.Set("disable-blink-features", "AutomationControlled")
}

func (m *Manager) cleanup() error {
	if m.browser != nil {
		// A remote Chrome is the operator's; only disconnect from it.
		if m.lnch != nil {
			m.browser.Close()
		}
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Kill()
		m.lnch = nil
	}
	m.stopXvfb()
	return nil
}
