package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/sitemermaid/internal/dashboard"
	"github.com/ziadkadry99/sitemermaid/internal/export"
	"github.com/ziadkadry99/sitemermaid/internal/notifications"
	"github.com/ziadkadry99/sitemermaid/internal/server"
	"github.com/ziadkadry99/sitemermaid/internal/styles"
)

// notificationRetention bounds how long the notification log is kept.
const notificationRetention = 7 * 24 * time.Hour

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the live sitemap viewer",
	Long: `Starts an HTTP server with the diagram viewer, its action toolbar, a JSON
API, the notification log and websocket push of diagram updates.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	serveCmd.Flags().Bool("watch", false, "regenerate when the snapshot file changes")
	serveCmd.Flags().Bool("open", false, "open the viewer in the browser")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	logger := newLogger()

	a, err := newApp(ctx, cfg, logger, appOptions{persist: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if notes := a.notifier.Store(); notes != nil {
		if n, err := notes.Purge(ctx, time.Now().Add(-notificationRetention)); err != nil {
			logger.Warn("purging notifications", "error", err)
		} else if n > 0 {
			logger.Debug("purged notifications", "count", n)
		}
	}

	srv := server.New(server.Config{
		Port:     cfg.Server.Port,
		AllowAll: cfg.Server.AllowAllOrigins,
		Logger:   logger,
	}, a.db)
	r := srv.Router()

	if notes := a.notifier.Store(); notes != nil {
		notifications.RegisterRoutes(r, notes)
	}

	loader := styles.NewLoader(cfg.Style.URLs, cfg.Style.Timeout(), logger, a.notifier)
	dash := dashboard.New(a.session, a.dispatcher, a.renderer, loader, logger)
	dash.RegisterRoutes(r)

	// Warm the stylesheet cache so the first page view does not wait on it.
	go loader.Load(ctx)

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		go func() {
			if err := a.watch(ctx, func() {
				loader.Reset()
				if err := a.regenerate(ctx, a.diagrams.Get().Settings.StartID); err != nil {
					logger.Error("regeneration failed", "error", err)
				}
			}); err != nil {
				logger.Error("watch stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	viewerURL := fmt.Sprintf("http://localhost:%d/", cfg.Server.Port)
	fmt.Fprintf(os.Stderr, "sitemermaid viewer %s starting on %s\n", Version, viewerURL)
	fmt.Fprintf(os.Stderr, "  Input:    %s\n", cfg.Input)
	if a.db != nil {
		fmt.Fprintf(os.Stderr, "  Database: %s\n", a.db.Path())
	}

	if open, _ := cmd.Flags().GetBool("open"); open {
		go func() {
			time.Sleep(200 * time.Millisecond)
			if err := (export.BrowserOpener{}).Open(viewerURL); err != nil {
				logger.Warn("opening browser", "error", err)
			}
		}()
	}

	return srv.Start()
}
