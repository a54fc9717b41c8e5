package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ziadkadry99/sitemermaid/internal/actions"
	"github.com/ziadkadry99/sitemermaid/internal/config"
	"github.com/ziadkadry99/sitemermaid/internal/db"
	"github.com/ziadkadry99/sitemermaid/internal/diagrams"
	"github.com/ziadkadry99/sitemermaid/internal/export"
	"github.com/ziadkadry99/sitemermaid/internal/host"
	"github.com/ziadkadry99/sitemermaid/internal/notifications"
	"github.com/ziadkadry99/sitemermaid/internal/render"
	"github.com/ziadkadry99/sitemermaid/internal/session"
	"github.com/ziadkadry99/sitemermaid/internal/store"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `sitemermaid init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// app bundles the components shared by the commands.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	source     host.Source
	session    *session.Session
	diagrams   *store.DiagramStore
	renderer   *render.Client
	notifier   *notifications.Notifier
	dispatcher *export.Dispatcher
	db         *db.DB
}

// appOptions select the optional parts of an app.
type appOptions struct {
	// persist opens the notification database.
	persist bool
}

// newApp loads the snapshot, waiting for it to appear, and wires the
// session, renderer, notifier and dispatcher around it.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts appOptions) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if opts.persist && cfg.Database != "" {
		database, err := db.Open(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		a.db = database
	}

	var notes *notifications.Store
	if a.db != nil {
		notes = notifications.NewStore(a.db)
	}
	a.notifier = notifications.NewNotifier(notes, notifications.Options{
		SuccessTTL:         cfg.Notify.SuccessTTL(),
		ErrorTTL:           cfg.Notify.ErrorTTL(),
		WebhookURL:         cfg.Notify.WebhookURL,
		WebhookMinSeverity: notifications.Severity(cfg.Notify.WebhookMinSeverity),
		Logger:             logger,
	})

	a.source = host.NewSource(cfg.Input, hostPaths(cfg))
	doc, err := host.Wait(ctx, a.source, cfg.Wait.Attempts, cfg.Wait.Interval(), logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("loading %s: %w", cfg.Input, err)
	}

	a.diagrams = store.New()
	a.session = session.New(doc, a.diagrams, sessionOptions(cfg, logger))
	a.renderer = render.NewClient(cfg.Render.BaseURL, cfg.Render.Theme, cfg.Render.Timeout())
	a.dispatcher = export.NewDispatcher(export.Deps{
		Generator: a.session,
		Store:     a.diagrams,
		Renderer:  a.renderer,
		Notifier:  a.notifier,
	}, export.Options{
		OutputDir:      cfg.OutputDir,
		CopyOnGenerate: cfg.CopyOnGenerate,
		Logger:         logger,
	})

	logger.Debug("snapshot loaded",
		"input", cfg.Input,
		"project", doc.ProjectName,
		"roots", len(doc.RootNodes),
	)
	return a, nil
}

// generate renders the diagram through the dispatcher so every entry point
// reports and copies the same way. A start id or page URL selects a subtree.
func (a *app) generate(ctx context.Context, startID, pageURL string) (export.Result, error) {
	if startID == "" && pageURL == "" {
		return a.dispatcher.Dispatch(ctx, actions.GenerateAll, export.Request{})
	}
	return a.dispatcher.Dispatch(ctx, actions.GenerateStartHere, export.Request{StartID: startID, PageURL: pageURL})
}

// Close releases the database, if one was opened.
func (a *app) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func hostPaths(cfg *config.Config) host.Paths {
	return host.Paths{
		Roots:       cfg.Paths.Roots,
		ProjectName: cfg.Paths.ProjectName,
		ProjectID:   cfg.Paths.ProjectID,
		CurrentPage: cfg.Paths.CurrentPage,
	}
}

func sessionOptions(cfg *config.Config, logger *slog.Logger) session.Options {
	return session.Options{
		Grouping:     diagrams.Grouping(cfg.Grouping),
		Title:        cfg.Title,
		ProjectTitle: cfg.ProjectTitle,
		Theme:        cfg.Render.Theme,
		Logger:       logger,
	}
}
