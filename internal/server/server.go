// Package server is the development preview: it serves rendered decks and
// reloads open browser tabs when a deck is rebuilt.
package server

import (
	"encoding/json"
	"html/template"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alnah/go-marp/internal/render"
)

// indexTmpl lists the decks currently in the store.
var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Decks</title></head>
<body>
<h1>Decks</h1>
{{if .}}<ul>
{{range .}}<li><a href="/decks/{{.Slug}}">{{.Title}}</a>{{if .Failed}} (render failed){{end}}</li>
{{end}}</ul>{{else}}<p>No decks yet.</p>{{end}}
</body></html>
`))

// Options configures the router.
type Options struct {
	// AssetsDir is served under /_assets/. Empty disables the route.
	AssetsDir string
	Logger    *slog.Logger
}

// New returns the preview router.
func New(store *Store, broker *Broker, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &handler{store: store, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", h.index)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/decks", h.list)
	r.Get("/decks/{slug}", h.deck)
	r.Get("/decks/{slug}/meta", h.meta)
	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}
	if opts.AssetsDir != "" {
		r.Handle("/_assets/*", http.StripPrefix("/_assets/", http.FileServer(http.Dir(opts.AssetsDir))))
	}
	return r
}

type handler struct {
	store  *Store
	logger *slog.Logger
}

func (h *handler) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, h.store.List()); err != nil {
		h.logger.Error("index render failed", slog.String("error", err.Error()))
	}
}

func (h *handler) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.List())
}

func (h *handler) deck(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	d, ok := h.store.Get(slug)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.WriteString(w, render.InjectHead(d.HTML, ReloadScript(slug)))
}

func (h *handler) meta(w http.ResponseWriter, r *http.Request) {
	d, ok := h.store.Get(chi.URLParam(r, "slug"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("deck not found"))
		return
	}
	writeJSON(w, http.StatusOK, d.Meta)
}

// ReloadScript returns the snippet that reloads the page when slug changes.
func ReloadScript(slug string) string {
	s := `"` + template.JSEscapeString(slug) + `"`
	return `<script>(function(){var es=new EventSource("/events");` +
		`function on(e){if(JSON.parse(e.data).slug===` + s + `)location.reload();}` +
		`es.addEventListener("` + EventDeckUpdated + `",on);` +
		`es.addEventListener("` + EventDeckRemoved + `",on);})();</script>`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}
