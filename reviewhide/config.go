package reviewhide

// Config is the static reviewhide configuration.
type Config struct {
	// URL of the pull request files page to open.
	URL string `yaml:"url"`
	// Patterns are substrings identifying test files.
	Patterns []string `yaml:"patterns"`
	// HeaderSelector selects the file header elements.
	HeaderSelector string `yaml:"header_selector"`
	// NotViewedSelector selects the "mark as viewed" toggle next to a header.
	NotViewedSelector string `yaml:"not_viewed_selector"`
	// ContainerSelector selects the file list watched for new files.
	ContainerSelector string `yaml:"container_selector"`
}

// DefaultConfig matches the code-review host's current markup.
func DefaultConfig() Config {
	return Config{
		Patterns:          []string{"test.ts", "test.tsx", "test.js", "test.jsx", ".spec.", ".test."},
		HeaderSelector:    "h3",
		NotViewedSelector: `button[aria-label="Not Viewed"]`,
		ContainerSelector: "#files",
	}
}

// ApplyDefaults fills unset fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if len(c.Patterns) == 0 {
		c.Patterns = def.Patterns
	}
	if c.HeaderSelector == "" {
		c.HeaderSelector = def.HeaderSelector
	}
	if c.NotViewedSelector == "" {
		c.NotViewedSelector = def.NotViewedSelector
	}
	if c.ContainerSelector == "" {
		c.ContainerSelector = def.ContainerSelector
	}
}
