// Package dashboard serves the browser viewer: the current diagram, the
// action toolbar, a JSON API and live updates over a websocket.
package dashboard

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/sitemermaid/internal/export"
	"github.com/ziadkadry99/sitemermaid/internal/render"
	"github.com/ziadkadry99/sitemermaid/internal/session"
	"github.com/ziadkadry99/sitemermaid/internal/store"
	"github.com/ziadkadry99/sitemermaid/internal/styles"
)

// Dashboard wires the viewer routes to a session and its diagram store.
type Dashboard struct {
	session    *session.Session
	diagrams   *store.DiagramStore
	dispatcher *export.Dispatcher
	renderer   *render.Client
	styles     *styles.Loader
	logger     *slog.Logger
}

// New creates a new Dashboard. The style loader may be nil, in which case
// the embedded fallback stylesheet is served.
func New(sess *session.Session, dispatcher *export.Dispatcher, renderer *render.Client, loader *styles.Loader, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	if loader == nil {
		loader = styles.NewLoader(nil, 0, logger, nil)
	}
	return &Dashboard{
		session:    sess,
		diagrams:   sess.Store(),
		dispatcher: dispatcher,
		renderer:   renderer,
		styles:     loader,
		logger:     logger,
	}
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Get("/styles.css", d.styles.Handler())
	r.Get("/api/diagram", d.handleGetDiagram)
	r.Post("/api/diagram", d.handleSetDiagram)
	r.Get("/api/nodes", d.handleNodes)
	r.Get("/api/actions", d.handleListActions)
	r.Post("/api/actions/{action}", d.handleAction)
	r.Get("/api/render/{format}", d.handleRender)
	r.Get("/ws/diagram", d.handleWebSocket)
}
