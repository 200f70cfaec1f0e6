package logrepo

import (
	"fmt"
	"maps"
)

type SanitizationConfig struct {
	Enabled          bool
	DefaultSanitizer Sanitizer
}

type FormattersConfig struct {
	// Default renders every event once, before fan-out. Nil disables formatting.
	Default Formatter
}

// Config configures a Repository.
type Config struct {
	// Enabled opens the gate at construction. Repositories start disabled otherwise.
	Enabled bool

	Sanitization SanitizationConfig
	Formatters   FormattersConfig

	// Severity is informational. The repository never filters by level;
	// adapters filter with their own minimum level.
	Severity Level

	Environment string

	// Adapters is accepted for compatibility only.
	//
	// Deprecated: register adapters with RegisterAdapter. A non-empty map
	// produces a warning and is otherwise ignored.
	Adapters map[string]any

	// Registry resolves tag-scoped sanitizers. Nil means Sanitizers().
	Registry *SanitizerRegistry

	Hooks          *HookRegistry
	WarningHandler WarningHandler
}

func DefaultConfig() *Config {
	return &Config{
		Sanitization: SanitizationConfig{
			Enabled:          true,
			DefaultSanitizer: NewDefaultSanitizer(),
		},
		Severity:       LevelDebug,
		Environment:    DefaultEnvironment,
		WarningHandler: DefaultWarningHandler,
	}
}

// ProductionConfig enables the gate and renders combined output.
func ProductionConfig() *Config {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Severity = LevelInfo
	cfg.Environment = "production"
	cfg.Formatters.Default = NewCombinedFormatter()
	return cfg
}

// Clone creates a shallow copy. The Adapters map is copied; sanitizers,
// formatters, registries and hooks are shared.
func (c *Config) Clone() *Config {
	if c == nil {
		return DefaultConfig()
	}
	clone := *c
	if c.Adapters != nil {
		clone.Adapters = maps.Clone(c.Adapters)
	}
	return &clone
}

func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Severity.IsValid() {
		return fmt.Errorf("%w: %d (valid range: %d-%d)", ErrInvalidLevel, c.Severity, LevelDebug, LevelError)
	}
	return nil
}

// applyDefaults fills fields a zero Config leaves unusable.
func (c *Config) applyDefaults() {
	if c.Sanitization.Enabled && c.Sanitization.DefaultSanitizer == nil {
		c.Sanitization.DefaultSanitizer = NewDefaultSanitizer()
	}
	if c.Environment == "" {
		c.Environment = DefaultEnvironment
	}
	if c.Registry == nil {
		c.Registry = Sanitizers()
	}
	if c.WarningHandler == nil {
		c.WarningHandler = DefaultWarningHandler
	}
}

// ConfigPatch is a partial update for Repository.UpdateConfig. Nil fields
// leave the live value alone.
type ConfigPatch struct {
	SanitizationEnabled *bool

	// DefaultSanitizer replaces the active default sanitizer.
	DefaultSanitizer Sanitizer

	// Formatter replaces the default formatter. Set ClearFormatter to remove it.
	Formatter      Formatter
	ClearFormatter bool

	Severity    *Level
	Environment *string

	// Deprecated: see Config.Adapters.
	Adapters map[string]any

	Hooks          *HookRegistry
	WarningHandler WarningHandler
}

func (p ConfigPatch) validate() error {
	if p.Severity != nil && !p.Severity.IsValid() {
		return fmt.Errorf("%w: %d (valid range: %d-%d)", ErrInvalidLevel, *p.Severity, LevelDebug, LevelError)
	}
	return nil
}

// apply merges p into a copy of c.
func (p ConfigPatch) apply(c *Config) *Config {
	next := c.Clone()
	if p.SanitizationEnabled != nil {
		next.Sanitization.Enabled = *p.SanitizationEnabled
	}
	if p.DefaultSanitizer != nil {
		next.Sanitization.DefaultSanitizer = p.DefaultSanitizer
	}
	if p.ClearFormatter {
		next.Formatters.Default = nil
	} else if p.Formatter != nil {
		next.Formatters.Default = p.Formatter
	}
	if p.Severity != nil {
		next.Severity = *p.Severity
	}
	if p.Environment != nil {
		next.Environment = *p.Environment
	}
	if p.Hooks != nil {
		next.Hooks = p.Hooks
	}
	if p.WarningHandler != nil {
		next.WarningHandler = p.WarningHandler
	}
	next.applyDefaults()
	return next
}
