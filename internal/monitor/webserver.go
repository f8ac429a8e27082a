// Package monitor serves the simulation over HTTP: run history from the
// database, per-run charts, a live websocket stream of snapshots,
// Prometheus metrics and the tsweb debug pages.
package monitor

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/shelfbot/internal/config"
	"github.com/banshee-data/shelfbot/internal/db"
	"github.com/banshee-data/shelfbot/internal/monitoring"
	"github.com/banshee-data/shelfbot/internal/render"
	"github.com/banshee-data/shelfbot/internal/version"
)

//go:embed status.html
var statusHTML embed.FS

// WebServer is the monitor HTTP server.
type WebServer struct {
	address string
	db      *db.DB
	layout  *config.Layout
	hub     *Hub
	metrics *Metrics
	started time.Time
	tmpl    *template.Template

	server *http.Server
}

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address string
	// DB is optional; without it the run endpoints answer 503.
	DB *db.DB
	// Layout scales the run charts. Defaults to config.DefaultLayout().
	Layout  *config.Layout
	Hub     *Hub
	Metrics *Metrics
}

// NewWebServer creates a web server with the provided configuration.
func NewWebServer(cfg WebServerConfig) (*WebServer, error) {
	ws := &WebServer{
		address: cfg.Address,
		db:      cfg.DB,
		layout:  cfg.Layout,
		hub:     cfg.Hub,
		metrics: cfg.Metrics,
		started: time.Now(),
	}
	if ws.layout == nil {
		ws.layout = config.DefaultLayout()
	}
	if ws.hub == nil {
		ws.hub = NewHub()
	}
	if ws.metrics == nil {
		ws.metrics = NewMetrics()
	}
	tmpl, err := template.ParseFS(statusHTML, "status.html")
	if err != nil {
		return nil, fmt.Errorf("parse status template: %w", err)
	}
	ws.tmpl = tmpl

	mux, err := ws.setupRoutes()
	if err != nil {
		return nil, err
	}
	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return ws, nil
}

// Hub returns the live snapshot hub.
func (ws *WebServer) Hub() *Hub { return ws.hub }

// Metrics returns the metrics observer.
func (ws *WebServer) Metrics() *Metrics { return ws.metrics }

// DB returns the run store, which may be nil.
func (ws *WebServer) DB() *db.DB { return ws.db }

// Handler returns the root handler, for tests.
func (ws *WebServer) Handler() http.Handler { return ws.server.Handler }

func (ws *WebServer) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (ws *WebServer) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("monitor: encode response: %v", err)
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	ws.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}
	monitoring.Logf("HTTP server routine stopped")
	return nil
}

func (ws *WebServer) setupRoutes() (*http.ServeMux, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", ws.handleHealth)
	mux.HandleFunc("GET /{$}", ws.handleStatus)
	mux.HandleFunc("GET /api/runs", ws.handleRuns)
	mux.HandleFunc("GET /api/runs/{id}", ws.handleRun)
	mux.HandleFunc("GET /api/runs/{id}/trail", ws.handleRunTrail)
	mux.HandleFunc("DELETE /api/runs/{id}", ws.handleDeleteRun)
	mux.HandleFunc("GET /runs/{id}/chart", ws.handleRunChart)
	mux.HandleFunc("GET /runs/{id}/plot.png", ws.handleRunPlot)
	mux.Handle("GET /ws", ws.hub)
	mux.Handle("GET /metrics", ws.metrics.Handler())

	if ws.db != nil {
		if err := ws.db.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "shelfbot", "timestamp": "%s"}`, time.Now().UTC().Format(time.RFC3339))
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	var runs []*db.Run
	if ws.db != nil {
		var err error
		if runs, err = ws.db.ListRuns(20); err != nil {
			http.Error(w, "Error listing runs: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}
	data := struct {
		Version     string
		Address     string
		Uptime      string
		Subscribers int
		Runs        []*db.Run
	}{
		Version:     version.String(),
		Address:     ws.address,
		Uptime:      time.Since(ws.started).Round(time.Second).String(),
		Subscribers: ws.hub.Subscribers(),
		Runs:        runs,
	}
	w.Header().Set("Content-Type", "text/html")
	if err := ws.tmpl.Execute(w, data); err != nil {
		http.Error(w, "Error executing template: "+err.Error(), http.StatusInternalServerError)
	}
}

// requireDB answers 503 when the server runs without a database.
func (ws *WebServer) requireDB(w http.ResponseWriter) bool {
	if ws.db == nil {
		ws.writeJSONError(w, http.StatusServiceUnavailable, "no run database configured")
		return false
	}
	return true
}

// writeRunError maps store errors to status codes.
func (ws *WebServer) writeRunError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrRunNotFound) {
		ws.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	ws.writeJSONError(w, http.StatusInternalServerError, err.Error())
}

// handleRuns lists recent runs.
// Query params:
//
//	limit (optional, default 50, max 1000)
func (ws *WebServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if !ws.requireDB(w) {
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 || v > 1000 {
			ws.writeJSONError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = v
	}
	runs, err := ws.db.ListRuns(limit)
	if err != nil {
		ws.writeRunError(w, err)
		return
	}
	if runs == nil {
		runs = []*db.Run{}
	}
	ws.writeJSON(w, runs)
}

func (ws *WebServer) handleRun(w http.ResponseWriter, r *http.Request) {
	if !ws.requireDB(w) {
		return
	}
	id := r.PathValue("id")
	run, err := ws.db.GetRun(id)
	if err != nil {
		ws.writeRunError(w, err)
		return
	}
	scans, err := ws.db.RunScans(id)
	if err != nil {
		ws.writeRunError(w, err)
		return
	}
	ws.writeJSON(w, struct {
		*db.Run
		Scans []db.Scan `json:"scans"`
	}{run, scans})
}

func (ws *WebServer) handleRunTrail(w http.ResponseWriter, r *http.Request) {
	if !ws.requireDB(w) {
		return
	}
	id := r.PathValue("id")
	if _, err := ws.db.GetRun(id); err != nil {
		ws.writeRunError(w, err)
		return
	}
	trail, err := ws.db.RunTrail(id)
	if err != nil {
		ws.writeRunError(w, err)
		return
	}
	if trail == nil {
		trail = []db.TrailPoint{}
	}
	ws.writeJSON(w, trail)
}

func (ws *WebServer) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if !ws.requireDB(w) {
		return
	}
	id := r.PathValue("id")
	if _, err := ws.db.GetRun(id); err != nil {
		ws.writeRunError(w, err)
		return
	}
	if err := ws.db.DeleteRun(id); err != nil {
		ws.writeRunError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadTrail rebuilds a render.Trail from the stored actions of a run.
func (ws *WebServer) loadTrail(id string) (*render.Trail, *db.Run, error) {
	run, err := ws.db.GetRun(id)
	if err != nil {
		return nil, nil, err
	}
	points, err := ws.db.RunTrail(id)
	if err != nil {
		return nil, nil, err
	}
	trail := render.NewTrail(fmt.Sprintf("run %s", run.RunID))
	for _, p := range points {
		trail.Add(p.Center, p.Phase)
	}
	return trail, run, nil
}

func (ws *WebServer) handleRunChart(w http.ResponseWriter, r *http.Request) {
	if !ws.requireDB(w) {
		return
	}
	trail, run, err := ws.loadTrail(r.PathValue("id"))
	if err != nil {
		ws.writeRunError(w, err)
		return
	}
	subtitle := fmt.Sprintf("target=%s home=%d seed=%d status=%s actions=%d",
		run.Target, run.Home, run.Seed, run.Status, run.Actions)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := trail.RenderHTML(ws.layout, subtitle, w); err != nil {
		ws.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
	}
}

func (ws *WebServer) handleRunPlot(w http.ResponseWriter, r *http.Request) {
	if !ws.requireDB(w) {
		return
	}
	trail, _, err := ws.loadTrail(r.PathValue("id"))
	if err != nil {
		ws.writeRunError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := trail.WritePNG(ws.layout, w); err != nil {
		monitoring.Logf("monitor: plot %s: %v", r.PathValue("id"), err)
	}
}

// Close shuts down the web server immediately.
func (ws *WebServer) Close() error {
	ws.hub.Close()
	if ws.server != nil {
		return ws.server.Close()
	}
	return nil
}
