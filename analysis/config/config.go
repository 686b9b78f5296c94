package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/cs-au-dk/absum/analysis/absint"
	L "github.com/cs-au-dk/absum/analysis/lattice"
	loc "github.com/cs-au-dk/absum/analysis/location"
	"github.com/cs-au-dk/absum/utils"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned for configurations that fail validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the contents of a configuration file. Command-line flags that
// are set explicitly take precedence over it.
type Config struct {
	// MaxDepth bounds the call stack of the interprocedural analysis.
	MaxDepth int `yaml:"max-depth"`

	// ContextDepth is the length of the call strings distinguishing summaries.
	ContextDepth int `yaml:"context-depth"`

	// WideningDelay is the number of visits to a loop head before widening.
	WideningDelay int `yaml:"widening-delay"`

	// CrossContextReuse allows summaries of other calling contexts to be
	// reused when they subsume the request.
	CrossContextReuse bool `yaml:"cross-context-reuse"`

	// Workers is the number of roots analyzed concurrently.
	Workers int `yaml:"workers"`

	// Intraprocedural disables the analysis of callees.
	Intraprocedural bool `yaml:"intraprocedural"`

	// Skip lists regular expressions of methods that are never analyzed
	// interprocedurally.
	Skip []string `yaml:"skip"`

	// SkipBodiless also skips methods without a body, e.g. assembly
	// functions, instead of reporting failed analyses.
	SkipBodiless bool `yaml:"skip-bodiless"`

	// Roots lists the methods analyzed as roots. Every method without
	// callers is a root when empty.
	Roots []string `yaml:"roots"`

	// Entry maps roots to the intervals of access paths on entry.
	Entry map[string]map[string][2]int64 `yaml:"entry"`

	// LogLevel is the logrus level name.
	LogLevel string `yaml:"log-level"`

	skipRegexes []*regexp.Regexp
}

// NewDefault returns the default configuration.
func NewDefault() *Config {
	return &Config{
		MaxDepth:          utils.DefaultMaxCallStackDepth,
		ContextDepth:      utils.DefaultContextDepth,
		WideningDelay:     utils.DefaultWideningDelay,
		CrossContextReuse: true,
		Workers:           1,
		LogLevel:          "info",
	}
}

// Load reads a configuration from a YAML file. Absent keys keep their
// default values.
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return Parse(b)
}

// Parse reads a configuration from YAML source.
func Parse(b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the bounds of the configuration and compiles the skip
// patterns.
func (c *Config) Validate() error {
	switch {
	case c.MaxDepth <= 0:
		return fmt.Errorf("%w: max-depth must be positive, got %d", ErrInvalidConfig, c.MaxDepth)
	case c.ContextDepth <= 0:
		return fmt.Errorf("%w: context-depth must be positive, got %d", ErrInvalidConfig, c.ContextDepth)
	case c.WideningDelay < 0:
		return fmt.Errorf("%w: widening-delay must not be negative, got %d", ErrInvalidConfig, c.WideningDelay)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}

	c.skipRegexes = c.skipRegexes[:0]
	for _, s := range c.Skip {
		r, err := regexp.Compile(s)
		if err != nil {
			return fmt.Errorf("%w: skip pattern %q: %v", ErrInvalidConfig, s, err)
		}
		c.skipRegexes = append(c.skipRegexes, r)
	}

	for root, bindings := range c.Entry {
		for p, iv := range bindings {
			if _, err := loc.Parse(p); err != nil {
				return fmt.Errorf("%w: entry of %s: %v", ErrInvalidConfig, root, err)
			}
			if iv[0] > iv[1] {
				return fmt.Errorf("%w: entry of %s: empty interval [%d, %d] for %s",
					ErrInvalidConfig, root, iv[0], iv[1], p)
			}
		}
	}
	return nil
}

// SkipPatterns returns the compiled skip patterns.
func (c *Config) SkipPatterns() []*regexp.Regexp {
	return c.skipRegexes
}

// EntryState builds the initial state of a root from the entry bindings.
func (c *Config) EntryState(root string) L.AccessPathMap {
	m := L.NewAccessPathMap()
	for p, iv := range c.Entry[root] {
		m = m.Set(loc.MustParse(p), L.NewInterval(iv[0], iv[1]))
	}
	return m
}

// MergeFlags overrides the configuration with explicitly set command-line
// flags.
func (c *Config) MergeFlags() error {
	opts := utils.Opts()
	if opts.IsSet("max-depth") {
		c.MaxDepth = opts.MaxCallStackDepth()
	}
	if opts.IsSet("k") {
		c.ContextDepth = opts.ContextDepth()
	}
	if opts.IsSet("widening-delay") {
		c.WideningDelay = opts.WideningDelay()
	}
	if opts.IsSet("no-cross-context") {
		c.CrossContextReuse = opts.CrossContextReuse()
	}
	if opts.IsSet("workers") {
		c.Workers = opts.Workers()
	}
	if opts.IsSet("intra") {
		c.Intraprocedural = opts.Intraprocedural()
	}
	if opts.IsSet("skip") && opts.SkipPattern() != "" {
		c.Skip = append(c.Skip, opts.SkipPattern())
	}
	if opts.IsSet("log-level") {
		c.LogLevel = opts.LogLevel()
	}
	return c.Validate()
}

// FromFlags builds the configuration from the command line, reading the
// configuration file first if one is given.
func FromFlags() (*Config, error) {
	cfg := NewDefault()
	if file := utils.Opts().ConfigFile(); file != "" {
		var err error
		if cfg, err = Load(file); err != nil {
			return nil, err
		}
	} else {
		opts := utils.Opts()
		cfg.MaxDepth = opts.MaxCallStackDepth()
		cfg.ContextDepth = opts.ContextDepth()
		cfg.WideningDelay = opts.WideningDelay()
		cfg.CrossContextReuse = opts.CrossContextReuse()
		cfg.Workers = opts.Workers()
		cfg.Intraprocedural = opts.Intraprocedural()
		cfg.LogLevel = opts.LogLevel()
		if s := opts.SkipPattern(); s != "" {
			cfg.Skip = []string{s}
		}
		return cfg, cfg.Validate()
	}
	return cfg, cfg.MergeFlags()
}

// AnalysisConfig returns the bounds of the analysis engine.
func (c *Config) AnalysisConfig() absint.Config {
	return absint.Config{
		MaxCallStackDepth: c.MaxDepth,
		ContextDepth:      c.ContextDepth,
		WideningDelay:     c.WideningDelay,
		CrossContextReuse: c.CrossContextReuse,
		Workers:           c.Workers,
		Shards:            16,
	}
}
