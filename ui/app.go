package ui

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"goamr/app"
	"goamr/domain/core"
	"goamr/domain/metrics"
	"goamr/internal"
	"goamr/internal/errors"
	"goamr/internal/render"
)

//go:embed templates/*.html
var embeddedFiles embed.FS

// App is the read-only report viewer
type App struct {
	router    *chi.Mux
	service   *app.ReportService
	templates *template.Template
	logger    *internal.Logger
	port      string

	mu   sync.RWMutex
	live *metrics.Report
}

// Config holds UI application configuration
type Config struct {
	Port string
}

// page is the data handed to the layout template
type page struct {
	Title   string
	Source  string
	History bool
	Body    template.HTML
}

// NewApp creates a new UI application
func NewApp(service *app.ReportService, config Config, logger *internal.Logger) (*App, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}

	funcMap := template.FuncMap{
		"pct":  func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
		"when": func(t time.Time) string { return t.Format("2006-01-02 15:04:05") },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	a := &App{
		router:    chi.NewRouter(),
		service:   service,
		templates: templates,
		logger:    logger.With("ui"),
		port:      config.Port,
	}

	a.setupMiddleware()
	a.setupRoutes()

	return a, nil
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	a.router.Get("/", a.handleLive)
	a.router.Get("/targets/*", a.handleLiveTarget)
	a.router.Get("/reports", a.handleHistory)
	a.router.Get("/reports/{id}", a.handleReport)
	a.router.Get("/reports/{id}/targets/*", a.handleReportTarget)
}

// ServeHTTP lets the app be mounted or tested directly
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Start starts the HTTP server
func (a *App) Start() error {
	port := a.port
	if port == "" {
		port = "8081"
	}
	a.logger.Info("Starting report viewer on :%s", port)
	return http.ListenAndServe(":"+port, a.router)
}

func (a *App) handleLive(w http.ResponseWriter, r *http.Request) {
	key, ok := a.sortKey(w, r)
	if !ok {
		return
	}

	report, err := a.service.Generate(r.Context())
	if err != nil {
		a.renderError(w, err)
		return
	}
	a.setLive(report)

	md := render.Markdown(report, render.Options{SortKey: key, TargetLink: linkUnder("/targets/")})
	a.renderPage(w, "Live report", render.HTML(md))
}

// handleLiveTarget serves targets of the most recent live report so links
// work without history storage.
func (a *App) handleLiveTarget(w http.ResponseWriter, r *http.Request) {
	a.mu.RLock()
	report := a.live
	a.mu.RUnlock()

	if report == nil {
		var err error
		if report, err = a.service.Generate(r.Context()); err != nil {
			a.renderError(w, err)
			return
		}
		a.setLive(report)
	}

	a.renderTarget(w, r, report)
}

func (a *App) handleHistory(w http.ResponseWriter, r *http.Request) {
	listings, err := a.service.List(r.Context(), 0)
	if err != nil {
		a.renderError(w, err)
		return
	}

	a.render(w, "history", struct {
		page
		Reports interface{}
	}{a.newPage("History", nil), listings})
}

func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	key, ok := a.sortKey(w, r)
	if !ok {
		return
	}
	report, ok := a.loadReport(w, r)
	if !ok {
		return
	}

	md := render.Markdown(report, render.Options{
		SortKey:    key,
		TargetLink: linkUnder("/reports/" + report.ID.String() + "/targets/"),
	})
	a.renderPage(w, "Report "+report.ID.String(), render.HTML(md))
}

func (a *App) handleReportTarget(w http.ResponseWriter, r *http.Request) {
	report, ok := a.loadReport(w, r)
	if !ok {
		return
	}
	a.renderTarget(w, r, report)
}

func (a *App) renderTarget(w http.ResponseWriter, r *http.Request, report *metrics.Report) {
	raw, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		a.renderError(w, errors.InvalidInput(err.Error()))
		return
	}
	targetID, err := core.ParseTargetID(raw)
	if err != nil {
		a.renderError(w, errors.InvalidInput(err.Error()))
		return
	}

	rec, found := report.Target(targetID.String())
	if !found {
		a.renderError(w, fmt.Errorf("%w: %s", core.ErrTargetNotFound, targetID))
		return
	}

	body := render.HTML(render.TargetMarkdown(rec))
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(body)
		return
	}
	a.renderPage(w, targetID.String(), body)
}

func (a *App) loadReport(w http.ResponseWriter, r *http.Request) (*metrics.Report, bool) {
	id, err := core.ParseReportID(chi.URLParam(r, "id"))
	if err != nil {
		a.renderError(w, errors.InvalidInput(err.Error()))
		return nil, false
	}
	report, err := a.service.Get(r.Context(), id)
	if err != nil {
		a.renderError(w, err)
		return nil, false
	}
	return report, true
}

func (a *App) setLive(report *metrics.Report) {
	a.mu.Lock()
	a.live = report
	a.mu.Unlock()
}

func (a *App) sortKey(w http.ResponseWriter, r *http.Request) (metrics.SortKey, bool) {
	key, err := metrics.ParseSortKey(r.URL.Query().Get("sort"))
	if err != nil {
		a.renderError(w, errors.InvalidInput(err.Error()))
		return "", false
	}
	return key, true
}

func (a *App) newPage(title string, body []byte) page {
	return page{
		Title:   title,
		Source:  a.service.SourceName(),
		History: a.service.HistoryEnabled(),
		Body:    template.HTML(body),
	}
}

func (a *App) renderPage(w http.ResponseWriter, title string, body []byte) {
	a.render(w, "layout", a.newPage(title, body))
}

func (a *App) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.templates.ExecuteTemplate(w, name, data); err != nil {
		a.logger.Error("template %s: %v", name, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

func (a *App) renderError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("%v", err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	p := a.newPage(http.StatusText(status), nil)
	if execErr := a.templates.ExecuteTemplate(w, "error", struct {
		page
		Message string
	}{p, err.Error()}); execErr != nil {
		a.logger.Error("template error: %v", execErr)
	}
}

func linkUnder(prefix string) func(string) string {
	return func(target string) string {
		parts := strings.Split(target, "/")
		for i, p := range parts {
			parts[i] = url.PathEscape(p)
		}
		return prefix + strings.Join(parts, "/")
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
