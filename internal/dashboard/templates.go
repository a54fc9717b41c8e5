package dashboard

import (
	_ "embed"
	"html/template"
	"net/http"

	"github.com/ziadkadry99/sitemermaid/internal/actions"
	"github.com/ziadkadry99/sitemermaid/internal/export"
	"github.com/ziadkadry99/sitemermaid/internal/render"
)

//go:embed index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

type indexData struct {
	Title      string
	Body       template.HTML
	Groups     []actions.Group
	HasDiagram bool
	Version    uint64
}

// ServeIndex renders the viewer page for the current diagram.
func (d *Dashboard) ServeIndex(w http.ResponseWriter, r *http.Request) {
	snap := d.diagrams.Snapshot()
	data := indexData{
		Title:      "Sitemap",
		Groups:     actions.Groups(),
		HasDiagram: !snap.State.Empty(),
		Version:    snap.Version,
	}
	if snap.State.Settings.Title != "" {
		data.Title = snap.State.Settings.Title
	}

	if data.HasDiagram {
		imageURL, err := d.renderer.URL(snap.State.Diagram, render.FormatSVG)
		if err != nil {
			d.logger.Warn("building preview url", "error", err)
		}
		body, err := export.RenderMarkdown(export.Markdown(data.Title, snap.State.Diagram, imageURL))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		data.Body = body
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		d.logger.Error("rendering index", "error", err)
	}
}
