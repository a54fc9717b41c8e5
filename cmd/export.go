package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sitemermaid/internal/export"
	"github.com/ziadkadry99/sitemermaid/internal/progress"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Generate the diagram and write it in several formats",
	Long: `Generates the sitemap diagram and writes it to the output directory as
plain text, Markdown, HTML, SVG and/or PNG. Images are rendered by the
configured mermaid.ink service.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringSlice("format", nil, "formats to write: txt, md, html, svg, png or all (default from config)")
	exportCmd.Flags().String("start", "", "node id to start the diagram from")
	exportCmd.Flags().String("output-dir", "", "output directory (overrides config)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		cfg.OutputDir = dir
	}

	names, _ := cmd.Flags().GetStringSlice("format")
	if len(names) == 0 {
		names = cfg.Formats
	}
	formats, err := export.ParseFormats(names)
	if err != nil {
		return err
	}
	if len(formats) == 0 {
		return fmt.Errorf("no export formats configured")
	}

	a, err := newApp(ctx, cfg, newLogger(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if startID, _ := cmd.Flags().GetString("start"); startID != "" {
		_, err = a.session.GenerateFrom(ctx, startID)
	} else {
		_, err = a.session.GenerateAll(ctx)
	}
	if err != nil {
		a.notifier.Error(ctx, "export sitemap", err)
		return err
	}

	paths, err := a.dispatcher.ExportAll(ctx, formats, progress.NewReporter("Exporting sitemap"))
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Export complete!")
	fmt.Fprintf(os.Stderr, "  Formats: %s\n", joinFormats(formats))
	for _, p := range paths {
		fmt.Fprintf(os.Stderr, "  %s\n", p)
	}
	return nil
}

func joinFormats(formats []export.Format) string {
	parts := make([]string, len(formats))
	for i, f := range formats {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}
