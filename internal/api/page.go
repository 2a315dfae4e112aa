package api

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/auw/internal/checksum"
	"github.com/starford/auw/internal/view"
)

// PageHandler serves the rendered host document and turns form posts into
// submit events.
type PageHandler struct {
	view *view.View
}

// NewPageHandler creates a PageHandler for v.
func NewPageHandler(v *view.View) *PageHandler {
	return &PageHandler{view: v}
}

// Routes mounts GET / and POST / on r.
func (h *PageHandler) Routes(r chi.Router) {
	r.Get("/", h.Show)
	r.Post("/", h.Submit)
}

// Show handles GET /. The ETag is the digest of the rendered document.
func (h *PageHandler) Show(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.view.RenderDocument(&buf); err != nil {
		slog.Error("render document failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	etag := `"` + checksum.Sum(buf.Bytes()) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// Submit handles POST /: the form values become a submit event. When the
// view suppresses the default action the browser is redirected back to the
// rendered page.
func (h *PageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	ev := view.NewSubmit(r.PostForm)
	handled, err := h.view.Dispatch(ev)
	switch {
	case err != nil:
		slog.Error("submit failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	case !handled:
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	if !ev.DefaultPrevented() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
