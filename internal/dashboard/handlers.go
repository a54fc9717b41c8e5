package dashboard

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/sitemermaid/internal/actions"
	"github.com/ziadkadry99/sitemermaid/internal/export"
	"github.com/ziadkadry99/sitemermaid/internal/render"
	"github.com/ziadkadry99/sitemermaid/internal/sitemap"
	"github.com/ziadkadry99/sitemermaid/internal/store"
)

// setDiagramRequest replaces the current diagram, e.g. after manual edits.
type setDiagramRequest struct {
	Diagram  string         `json:"diagram"`
	Settings store.Settings `json:"settings"`
}

func (d *Dashboard) handleGetDiagram(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.diagrams.Snapshot())
}

func (d *Dashboard) handleSetDiagram(w http.ResponseWriter, r *http.Request) {
	var req setDiagramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Diagram == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "diagram is required"})
		return
	}
	d.diagrams.Set(req.Diagram, req.Settings)
	writeJSON(w, http.StatusOK, d.diagrams.Snapshot())
}

func (d *Dashboard) handleNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := d.session.Nodes()
	if err != nil {
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	if nodes == nil {
		nodes = []sitemap.FlatNode{}
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (d *Dashboard) handleListActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, actions.Groups())
}

func (d *Dashboard) handleAction(w http.ResponseWriter, r *http.Request) {
	a, err := actions.Parse(chi.URLParam(r, "action"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	var req export.Request
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}
	if req.PageURL == "" {
		req.PageURL = r.Referer()
	}

	res, err := d.dispatcher.Dispatch(r.Context(), a, req)
	if err != nil {
		writeJSON(w, statusFor(err), res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleRender redirects to the rendered image of the current diagram.
func (d *Dashboard) handleRender(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	text := d.diagrams.Text()
	if text == "" {
		writeJSON(w, http.StatusConflict, map[string]string{"error": export.ErrNoDiagram.Error()})
		return
	}
	url, err := d.renderer.URL(text, format)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, sitemap.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, export.ErrNoDiagram):
		return http.StatusConflict
	case errors.Is(err, sitemap.ErrInputUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, render.ErrServiceFailure):
		return http.StatusBadGateway
	case errors.Is(err, sitemap.ErrDuplicateID):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
