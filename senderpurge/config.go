package senderpurge

import "time"

// Selectors are the host-specific CSS selectors.
type Selectors struct {
	// RowSender and RowHovercard mark a message row and carry the
	// sender's address.
	RowSender    string `yaml:"row_sender"`
	RowHovercard string `yaml:"row_hovercard"`
	// ResultRows and Toolbar must both be present for results to count
	// as loaded.
	ResultRows string `yaml:"result_rows"`
	Toolbar    string `yaml:"toolbar"`
	SelectAll  string `yaml:"select_all"`
	// ExpandLinks are candidate "select all matching" links; ExpandTexts
	// picks the one to click.
	ExpandLinks string `yaml:"expand_links"`
	Delete      string `yaml:"delete"`
	ConfirmOK   string `yaml:"confirm_ok"`
}

// Timing holds the fixed waits between sequencer steps.
type Timing struct {
	InitialWait  time.Duration `yaml:"initial_wait"`
	PollInterval time.Duration `yaml:"poll_interval"`
	PollAttempts int           `yaml:"poll_attempts"`
	SelectDelay  time.Duration `yaml:"select_delay"`
	ExpandDelay  time.Duration `yaml:"expand_delay"`
	ConfirmDelay time.Duration `yaml:"confirm_delay"`
}

// Config is the static senderpurge configuration.
type Config struct {
	URL string `yaml:"url"`
	// MenuMarker starts the host menu entry that is cloned.
	MenuMarker string `yaml:"menu_marker"`
	// LabelPrefix starts the injected entry's label.
	LabelPrefix string `yaml:"label_prefix"`
	// InjectedMarker is the idempotency attribute on injected entries.
	InjectedMarker string `yaml:"injected_marker"`
	// PendingKey names the pending-action flag.
	PendingKey string `yaml:"pending_key"`
	// PendingTTL bounds how long a pending flag stays valid.
	PendingTTL time.Duration `yaml:"pending_ttl"`
	// Color tints the injected entry to signal a destructive action.
	Color       string    `yaml:"color"`
	IconFilter  string    `yaml:"icon_filter"`
	ExpandTexts []string  `yaml:"expand_texts"`
	Selectors   Selectors `yaml:"selectors"`
	Timing      Timing    `yaml:"timing"`
}

// DefaultConfig matches the webmail host's current markup.
func DefaultConfig() Config {
	return Config{
		MenuMarker:     "Find emails from",
		LabelPrefix:    "Delete all from",
		InjectedMarker: "data-delete-sender-injected",
		PendingKey:     "gmail-delete-sender-pending",
		PendingTTL:     5 * time.Minute,
		Color:          "#d93025",
		IconFilter:     "grayscale(1) brightness(0.5) sepia(1) saturate(5) hue-rotate(-10deg)",
		ExpandTexts:    []string{"Select all", "all conversations", "All"},
		Selectors: Selectors{
			RowSender:    "[email]",
			RowHovercard: "[data-hovercard-id]",
			ResultRows:   "tr.zA, table.F.cf.zt tbody tr",
			Toolbar:      `[gh="mtb"], [gh="tl"]`,
			SelectAll:    `[gh="mtb"] [role="checkbox"], [gh="tl"] [role="checkbox"], [act="10"], .aeH [role="checkbox"]`,
			ExpandLinks:  `.ya span a, .Dj span a, [role="alert"] a, .ya a`,
			Delete:       `[act="7"], [gh="mtb"] [aria-label="Delete"], [aria-label="Delete"], button[title="Delete"]`,
			ConfirmOK:    `[name="ok"], button[name="ok"]`,
		},
		Timing: Timing{
			InitialWait:  time.Second,
			PollInterval: 500 * time.Millisecond,
			PollAttempts: 30,
			SelectDelay:  800 * time.Millisecond,
			ExpandDelay:  500 * time.Millisecond,
			ConfirmDelay: 500 * time.Millisecond,
		},
	}
}

// ApplyDefaults fills unset fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	setString(&c.MenuMarker, def.MenuMarker)
	setString(&c.LabelPrefix, def.LabelPrefix)
	setString(&c.InjectedMarker, def.InjectedMarker)
	setString(&c.PendingKey, def.PendingKey)
	setString(&c.Color, def.Color)
	setString(&c.IconFilter, def.IconFilter)
	if c.PendingTTL <= 0 {
		c.PendingTTL = def.PendingTTL
	}
	if len(c.ExpandTexts) == 0 {
		c.ExpandTexts = def.ExpandTexts
	}

	s, ds := &c.Selectors, def.Selectors
	setString(&s.RowSender, ds.RowSender)
	setString(&s.RowHovercard, ds.RowHovercard)
	setString(&s.ResultRows, ds.ResultRows)
	setString(&s.Toolbar, ds.Toolbar)
	setString(&s.SelectAll, ds.SelectAll)
	setString(&s.ExpandLinks, ds.ExpandLinks)
	setString(&s.Delete, ds.Delete)
	setString(&s.ConfirmOK, ds.ConfirmOK)

	t, dt := &c.Timing, def.Timing
	setDuration(&t.InitialWait, dt.InitialWait)
	setDuration(&t.PollInterval, dt.PollInterval)
	setDuration(&t.SelectDelay, dt.SelectDelay)
	setDuration(&t.ExpandDelay, dt.ExpandDelay)
	setDuration(&t.ConfirmDelay, dt.ConfirmDelay)
	if t.PollAttempts <= 0 {
		t.PollAttempts = dt.PollAttempts
	}
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setDuration(dst *time.Duration, def time.Duration) {
	if *dst <= 0 {
		*dst = def
	}
}
