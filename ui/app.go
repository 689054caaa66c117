package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"degpredict/domain/core"
	"degpredict/domain/prediction"
	"degpredict/domain/run"
	"degpredict/internal/api"
	apperrors "degpredict/internal/errors"
	"degpredict/ports"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

// App serves the results viewer, the JSON API under /api and /metrics.
type App struct {
	router    *chi.Mux
	runs      ports.RunRepository
	store     ports.ArtifactStore
	templates *template.Template
}

// Config holds UI application configuration
type Config struct {
	Runs     ports.RunRepository
	Store    ports.ArtifactStore // optional
	Gatherer prometheus.Gatherer // nil selects the default registry
}

// NewApp creates a new UI application
func NewApp(config Config) (*App, error) {
	if config.Runs == nil {
		return nil, fmt.Errorf("run repository is required")
	}

	funcMap := template.FuncMap{
		"float": formatFloat,
		"tiers": func() []prediction.Confidence {
			return []prediction.Confidence{prediction.High, prediction.Medium, prediction.Low, prediction.VeryLow}
		},
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	app := &App{
		router:    chi.NewRouter(),
		runs:      config.Runs,
		store:     config.Store,
		templates: templates,
	}

	gatherer := config.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	app.setupMiddleware()
	app.setupRoutes(gatherer)
	return app, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes(gatherer prometheus.Gatherer) {
	a.router.Get("/", a.handleIndex)
	a.router.Get("/runs/{id}", a.handleRun)
	a.router.Get("/runs/{id}/report", a.handleReport)

	a.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// JSON API
	engine := gin.New()
	engine.Use(gin.Recovery())
	api.NewRunsHandler(a.runs, a.store).Register(engine.Group("/api"))
	a.router.Handle("/api/*", engine)
}

// ServeHTTP makes App an http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Start starts the HTTP server
func (a *App) Start(port string) error {
	addr := ":" + port
	log.Printf("[UI] Starting results viewer on %s", addr)
	return http.ListenAndServe(addr, a.router)
}

type indexPage struct {
	Runs []run.Manifest
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := a.runs.ListRuns(r.Context(), 100)
	if err != nil {
		a.renderError(w, err)
		return
	}
	a.renderTemplate(w, "index.html", indexPage{Runs: runs})
}

type runPage struct {
	Manifest   *run.Manifest
	Records    []prediction.Record
	Pathways   []prediction.PathwaySummary
	Confidence map[prediction.Confidence]int
	HasReport  bool
}

func (a *App) handleRun(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	m, err := a.runs.GetRun(r.Context(), id)
	if err != nil {
		a.renderError(w, err)
		return
	}
	records, err := a.runs.GetPredictions(r.Context(), id)
	if err != nil {
		a.renderError(w, err)
		return
	}

	page := runPage{
		Manifest:   m,
		Records:    records,
		Pathways:   prediction.Summarize(records),
		Confidence: prediction.ConfidenceDistribution(records),
	}
	if a.store != nil {
		if _, err := a.store.Head(r.Context(), core.ArtifactReport.Key(id)); err == nil {
			page.HasReport = true
		}
	}
	a.renderTemplate(w, "run.html", page)
}

func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		http.NotFound(w, r)
		return
	}
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	_, body, err := a.store.Get(r.Context(), core.ArtifactReport.Key(id))
	if err != nil {
		a.renderError(w, err)
		return
	}
	defer body.Close()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := io.Copy(w, body); err != nil {
		log.Printf("[UI] Error streaming report %s: %v", id, err)
	}
}

// renderTemplate executes into a buffer first so a failed template never
// leaves a half-written page.
func (a *App) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("[UI] Template error for %s: %v", name, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[UI] Error writing response: %v", err)
	}
}

func (a *App) renderError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if core.IsNotFoundError(err) {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}

func formatFloat(v *float64) string {
	if v == nil {
		return "NA"
	}
	return fmt.Sprintf("%.3f", *v)
}
