package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sitemermaid/internal/actions"
	"github.com/ziadkadry99/sitemermaid/internal/export"
	"github.com/ziadkadry99/sitemermaid/internal/host"
)

// debounce collapses the burst of events editors and exporters emit for a
// single save.
const debounce = 250 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the diagram whenever the snapshot changes",
	Long: `Watches the snapshot file and regenerates the diagram on every change,
keeping sitemap.txt in the output directory up to date.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("start", "", "node id to start the diagram from")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, newLogger(), appOptions{persist: true})
	if err != nil {
		return err
	}
	defer a.Close()

	startID, _ := cmd.Flags().GetString("start")
	if err := a.regenerate(ctx, startID); err != nil {
		a.logger.Error("initial generation failed", "error", err)
	}

	fmt.Fprintf(os.Stderr, "Watching %s (Ctrl+C to stop)\n", cfg.Input)
	return a.watch(ctx, func() {
		if err := a.regenerate(ctx, startID); err != nil {
			a.logger.Error("regeneration failed", "error", err)
		}
	})
}

// regenerate rebuilds the diagram from the session's current document and
// saves it as text.
func (a *app) regenerate(ctx context.Context, startID string) error {
	if _, err := a.generate(ctx, startID, ""); err != nil {
		return err
	}
	res, err := a.dispatcher.Dispatch(ctx, actions.DownloadText, export.Request{})
	if err != nil {
		return err
	}
	a.logger.Info("diagram updated", "path", res.Path, "version", a.diagrams.Snapshot().Version)
	return nil
}

// watch reloads the snapshot file on change, swaps it into the session and
// calls onChange. It returns when ctx is done.
func (a *app) watch(ctx context.Context, onChange func()) error {
	src, ok := a.source.(*host.FileSource)
	if !ok {
		return fmt.Errorf("watching requires a file input, got %s", a.cfg.Input)
	}
	path, err := filepath.Abs(src.Path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", src.Path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: exporters often replace the file instead of
	// writing it in place.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watcher error", "error", err)
		case <-fire:
			doc, err := src.Load(ctx)
			if err != nil {
				// A half-written file parses badly; the next write retries.
				a.logger.Warn("reloading snapshot", "path", path, "error", err)
				if !errors.Is(err, context.Canceled) {
					continue
				}
				return nil
			}
			a.session.SetDocument(doc)
			onChange()
		}
	}
}
