package config

import "time"

// Grouping mirrors the diagram tier policies.
type Grouping string

const (
	GroupingLevel  Grouping = "level"
	GroupingParent Grouping = "parent"
)

// Config is the top-level sitemermaid configuration, corresponding to .sitemermaid.yml.
type Config struct {
	// Input is the snapshot location: a JSON file path or an http(s) URL.
	Input          string       `yaml:"input" koanf:"input"`
	Paths          PathsConfig  `yaml:"paths" koanf:"paths"`
	Grouping       Grouping     `yaml:"grouping" koanf:"grouping"`
	Title          string       `yaml:"title" koanf:"title"`
	ProjectTitle   bool         `yaml:"project_title" koanf:"project_title"`
	OutputDir      string       `yaml:"output_dir" koanf:"output_dir"`
	Formats        []string     `yaml:"formats" koanf:"formats"`
	CopyOnGenerate bool         `yaml:"copy_on_generate" koanf:"copy_on_generate"`
	Database       string       `yaml:"database" koanf:"database"`
	Render         RenderConfig `yaml:"render" koanf:"render"`
	Style          StyleConfig  `yaml:"style" koanf:"style"`
	Wait           WaitConfig   `yaml:"wait" koanf:"wait"`
	Notify         NotifyConfig `yaml:"notify" koanf:"notify"`
	Server         ServerConfig `yaml:"server" koanf:"server"`
}

// PathsConfig holds JSONPath expressions into the snapshot document.
type PathsConfig struct {
	Roots       string `yaml:"roots" koanf:"roots"`
	ProjectName string `yaml:"project_name" koanf:"project_name"`
	ProjectID   string `yaml:"project_id" koanf:"project_id"`
	CurrentPage string `yaml:"current_page" koanf:"current_page"`
}

// RenderConfig configures the mermaid.ink client.
type RenderConfig struct {
	BaseURL   string `yaml:"base_url" koanf:"base_url"`
	Theme     string `yaml:"theme" koanf:"theme"`
	TimeoutMS int    `yaml:"timeout_ms" koanf:"timeout_ms"`
}

// Timeout returns the render request timeout.
func (r RenderConfig) Timeout() time.Duration { return ms(r.TimeoutMS) }

// StyleConfig lists viewer stylesheets.
type StyleConfig struct {
	URLs      []string `yaml:"urls" koanf:"urls"`
	TimeoutMS int      `yaml:"timeout_ms" koanf:"timeout_ms"`
}

// Timeout returns the per-stylesheet load timeout.
func (s StyleConfig) Timeout() time.Duration { return ms(s.TimeoutMS) }

// WaitConfig bounds polling for the snapshot to appear.
type WaitConfig struct {
	Attempts   int `yaml:"attempts" koanf:"attempts"`
	IntervalMS int `yaml:"interval_ms" koanf:"interval_ms"`
}

// Interval returns the delay between attempts.
func (w WaitConfig) Interval() time.Duration { return ms(w.IntervalMS) }

// NotifyConfig controls notification lifetimes and forwarding.
type NotifyConfig struct {
	SuccessMS          int    `yaml:"success_ms" koanf:"success_ms"`
	ErrorMS            int    `yaml:"error_ms" koanf:"error_ms"`
	WebhookURL         string `yaml:"webhook_url,omitempty" koanf:"webhook_url"`
	WebhookMinSeverity string `yaml:"webhook_min_severity,omitempty" koanf:"webhook_min_severity"`
}

// SuccessTTL returns how long success notifications stay visible.
func (n NotifyConfig) SuccessTTL() time.Duration { return ms(n.SuccessMS) }

// ErrorTTL returns how long error and warning notifications stay visible.
func (n NotifyConfig) ErrorTTL() time.Duration { return ms(n.ErrorMS) }

// ServerConfig holds viewer server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
