package logrepo

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the file LoadConfig reads when called with an empty path.
const ConfigPathEnvVar = EnvPrefix + "CONFIG"

// FileConfig is the serializable subset of Config. Values that are code
// (sanitizers, formatters, hooks) are named rather than embedded.
type FileConfig struct {
	Enabled      bool                   `koanf:"enabled"`
	Severity     string                 `koanf:"severity"`
	Environment  string                 `koanf:"environment"`
	Formatter    string                 `koanf:"formatter"`
	Sanitization FileSanitizationConfig `koanf:"sanitization"`
}

type FileSanitizationConfig struct {
	Enabled bool `koanf:"enabled"`

	// RedactKeys and MaskKeys are added to the built-in key lists.
	RedactKeys []string `koanf:"redact_keys"`
	MaskKeys   []string `koanf:"mask_keys"`
	MaxDepth   int      `koanf:"max_depth"`
}

func defaultFileConfig() *FileConfig {
	return &FileConfig{
		Enabled:     false,
		Severity:    LevelDebug.String(),
		Environment: DefaultEnvironment,
		Formatter:   FormatterNone,
		Sanitization: FileSanitizationConfig{
			Enabled:  true,
			MaxDepth: MaxSanitizeDepth,
		},
	}
}

// LoadConfig builds a Config from three layers, later ones winning:
// built-in defaults, the YAML file at path, then LOGREPO_* environment
// variables. An empty path falls back to $LOGREPO_CONFIG; no file at all is
// not an error.
func LoadConfig(path string) (*Config, error) {
	fc, err := LoadFileConfig(path)
	if err != nil {
		return nil, err
	}
	return fc.Config()
}

// LoadFileConfig loads the layered FileConfig without converting it.
func LoadFileConfig(path string) (*FileConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultFileConfig(), "koanf"), nil); err != nil {
		return nil, WrapError(ErrCodeConfigLoad, "failed to load defaults", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, WrapError(ErrCodeConfigLoad, "failed to load config file", err).WithContext("path", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, WrapError(ErrCodeConfigLoad, "failed to load environment variables", err)
	}

	if err := splitListFields(k); err != nil {
		return nil, WrapError(ErrCodeConfigLoad, "failed to process list fields", err)
	}

	fc := &FileConfig{}
	if err := k.Unmarshal("", fc); err != nil {
		return nil, WrapError(ErrCodeConfigLoad, "failed to unmarshal configuration", err)
	}
	return fc, nil
}

// Config converts fc into a validated Config.
func (fc *FileConfig) Config() (*Config, error) {
	if fc == nil {
		return nil, ErrNilConfig
	}

	cfg := DefaultConfig()
	cfg.Enabled = fc.Enabled

	if fc.Severity != "" {
		level, err := ParseLevel(fc.Severity)
		if err != nil {
			return nil, WrapError(ErrCodeConfigValidation, "invalid severity", err)
		}
		cfg.Severity = level
	}
	if fc.Environment != "" {
		cfg.Environment = fc.Environment
	}

	formatter, err := NewFormatter(fc.Formatter)
	if err != nil {
		return nil, WrapError(ErrCodeConfigValidation, "invalid formatter", err)
	}
	cfg.Formatters.Default = formatter

	cfg.Sanitization.Enabled = fc.Sanitization.Enabled
	if len(fc.Sanitization.RedactKeys) > 0 || len(fc.Sanitization.MaskKeys) > 0 || fc.Sanitization.MaxDepth > 0 {
		rules := DefaultRuleSet()
		rules.RedactKeys = append(rules.RedactKeys, fc.Sanitization.RedactKeys...)
		rules.MaskKeys = append(rules.MaskKeys, fc.Sanitization.MaskKeys...)
		if fc.Sanitization.MaxDepth > 0 {
			rules.MaxDepth = fc.Sanitization.MaxDepth
		}
		cfg.Sanitization.DefaultSanitizer = NewRuleSanitizer(rules)
	}

	if err := cfg.Validate(); err != nil {
		return nil, WrapError(ErrCodeConfigValidation, "configuration validation failed", err)
	}
	return cfg, nil
}

var listConfigPaths = []string{
	"sanitization.redact_keys",
	"sanitization.mask_keys",
}

// splitListFields turns comma-separated environment values into lists.
func splitListFields(k *koanf.Koanf) error {
	for _, path := range listConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"enabled":                  "enabled",
	"severity":                 "severity",
	"environment":              "environment",
	"formatter":                "formatter",
	"sanitization_enabled":     "sanitization.enabled",
	"sanitization_redact_keys": "sanitization.redact_keys",
	"sanitization_mask_keys":   "sanitization.mask_keys",
	"sanitization_max_depth":   "sanitization.max_depth",
}

// envTransformFunc maps LOGREPO_SANITIZATION_ENABLED to sanitization.enabled.
// Unknown variables map to "" and are dropped.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return envMappings[key]
}
