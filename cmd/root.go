package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sitemermaid/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sitemermaid",
	Short: "Turn prototype sitemaps into Mermaid flowcharts",
	Long: `sitemermaid reads the sitemap tree of an exported Axure prototype and
renders it as a tiered Mermaid flowchart. Diagrams can be copied, saved as
text, Markdown or HTML, rendered to SVG or PNG through mermaid.ink, browsed
in a live viewer, or served to AI agents over MCP.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newLogger returns a text logger on stderr; stdout stays free for diagram
// output and the MCP protocol.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
