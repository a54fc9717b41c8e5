package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/sitemermaid/internal/config"
	"github.com/ziadkadry99/sitemermaid/internal/export"
	"github.com/ziadkadry99/sitemermaid/internal/host"
	"github.com/ziadkadry99/sitemermaid/internal/progress"
	"github.com/ziadkadry99/sitemermaid/internal/session"
	"github.com/ziadkadry99/sitemermaid/internal/store"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the Mermaid sitemap diagram",
	Long: `Loads the configured snapshot and prints the sitemap as Mermaid markup.
With --start or --page-url only that page and its descendants are drawn.
With --batch every snapshot matching the pattern is converted into a
.mmd file under the output directory.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().String("start", "", "node id to start the diagram from")
	generateCmd.Flags().String("page-url", "", "prototype page URL identifying the start page")
	generateCmd.Flags().StringP("output", "o", "-", "file to write the markup to (- for stdout)")
	generateCmd.Flags().String("batch", "", "doublestar pattern of snapshots to convert, e.g. '**/*.json'")
	generateCmd.Flags().String("root", ".", "directory the batch pattern is matched in")
	generateCmd.Flags().Int("concurrency", 4, "max snapshots converted in parallel in batch mode")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	if pattern, _ := cmd.Flags().GetString("batch"); pattern != "" {
		root, _ := cmd.Flags().GetString("root")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		return runBatch(ctx, cfg, root, pattern, concurrency)
	}

	a, err := newApp(ctx, cfg, logger, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	startID, _ := cmd.Flags().GetString("start")
	pageURL, _ := cmd.Flags().GetString("page-url")

	res, err := a.generate(ctx, startID, pageURL)
	if err != nil {
		return err
	}
	diagram := res.Diagram

	output, _ := cmd.Flags().GetString("output")
	if output == "-" || output == "" {
		fmt.Fprintln(cmd.OutOrStdout(), diagram)
	} else {
		w := export.Writer{Dir: filepath.Dir(output)}
		if _, err := w.Write(filepath.Base(output), []byte(diagram)); err != nil {
			return fmt.Errorf("writing %s: %w", output, err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", output)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Generated in %s\n", time.Since(start).Round(time.Millisecond))
	}
	return nil
}

// runBatch converts every matching snapshot concurrently. Each file is
// loaded once without the startup retry loop; it returns once every
// conversion has finished or the first one fails.
func runBatch(ctx context.Context, cfg *config.Config, root, pattern string, concurrency int) error {
	files, err := host.Discover(root, pattern)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No snapshots matched.")
		return nil
	}

	logger := newLogger()
	reporter := progress.NewReporter("Generating sitemaps")
	reporter.Start(len(files))
	defer reporter.Finish()

	writer := export.Writer{Dir: cfg.OutputDir}
	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for _, path := range files {
		g.Go(func() error {
			src := &host.FileSource{Path: path, Paths: hostPaths(cfg)}
			doc, err := src.Load(gctx)
			if err != nil {
				return err
			}
			sess := session.New(doc, store.New(), sessionOptions(cfg, logger))
			diagram, err := sess.GenerateAll(gctx)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if _, err := writer.Write(batchName(root, path), []byte(diagram)); err != nil {
				return err
			}
			reporter.Advance(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Converted %d snapshot(s) into %s\n", len(files), cfg.OutputDir)
	return nil
}

// batchName maps root/a/b/doc.json to a/b/doc.mmd.
func batchName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return strings.TrimSuffix(rel, filepath.Ext(rel)) + ".mmd"
}
