package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix marks environment overrides. A double underscore separates
// nested keys: SITEMERMAID_RENDER__THEME sets render.theme.
const EnvPrefix = "SITEMERMAID_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (SITEMERMAID_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps SITEMERMAID_RENDER__BASE_URL to render.base_url.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validGroupings = map[Grouping]bool{
	GroupingLevel:  true,
	GroupingParent: true,
}

var validSeverities = map[string]bool{
	"":         true,
	"info":     true,
	"warning":  true,
	"critical": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("input is required")
	}
	if c.Paths.Roots == "" {
		return fmt.Errorf("paths.roots is required")
	}
	if !validGroupings[c.Grouping] {
		return fmt.Errorf("invalid grouping %q: must be one of level, parent", c.Grouping)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	if c.Render.BaseURL == "" {
		return fmt.Errorf("render.base_url is required")
	}
	if !slices.Contains(Themes, c.Render.Theme) {
		return fmt.Errorf("invalid render.theme %q: must be one of %s", c.Render.Theme, strings.Join(Themes, ", "))
	}
	if c.Render.TimeoutMS <= 0 {
		return fmt.Errorf("render.timeout_ms must be positive")
	}
	if c.Style.TimeoutMS <= 0 {
		return fmt.Errorf("style.timeout_ms must be positive")
	}
	if c.Wait.Attempts < 1 {
		return fmt.Errorf("wait.attempts must be at least 1")
	}
	if c.Wait.IntervalMS < 0 {
		return fmt.Errorf("wait.interval_ms must be non-negative")
	}
	if c.Notify.SuccessMS <= 0 || c.Notify.ErrorMS <= 0 {
		return fmt.Errorf("notify durations must be positive")
	}
	if !validSeverities[c.Notify.WebhookMinSeverity] {
		return fmt.Errorf("invalid notify.webhook_min_severity %q", c.Notify.WebhookMinSeverity)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}
