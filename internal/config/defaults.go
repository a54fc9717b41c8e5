package config

// DefaultConfigFile is the configuration file looked up in the working directory.
const DefaultConfigFile = ".sitemermaid.yml"

// Themes accepted by the render service.
var Themes = []string{"default", "forest", "dark", "neutral", "base"}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Input: "sitemap.json",
		Paths: PathsConfig{
			Roots:       "$.sitemap.rootNodes",
			ProjectName: "$.configuration.projectName",
			ProjectID:   "$.configuration.projectId",
			CurrentPage: "$.page.shortId",
		},
		Grouping:     GroupingLevel,
		ProjectTitle: true,
		OutputDir:    "sitemap",
		Formats:      []string{"txt", "md", "svg"},
		Database:     ".sitemermaid/sitemermaid.db",
		Render: RenderConfig{
			BaseURL:   "https://mermaid.ink",
			Theme:     "default",
			TimeoutMS: 30000,
		},
		Style: StyleConfig{
			TimeoutMS: 5000,
		},
		Wait: WaitConfig{
			Attempts:   10,
			IntervalMS: 1000,
		},
		Notify: NotifyConfig{
			SuccessMS: 3000,
			ErrorMS:   5000,
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}
