// Package http serves the ledger pages: the active month, the lifecycle
// links, the archive and the activity feed.
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"rentsplit/internal/cache"
	"rentsplit/internal/core"
	"rentsplit/internal/display"
	"rentsplit/internal/events"
	"rentsplit/internal/lifecycle"
	applog "rentsplit/internal/log"
	"rentsplit/internal/middleware/ratelimit"
	"rentsplit/internal/middleware/security"
	"rentsplit/internal/middleware/trace"
	appweb "rentsplit/web"
)

// ActivityReader lists recorded ledger events, newest first.
type ActivityReader interface {
	Recent(ctx context.Context, limit int) ([]events.Event, error)
}

type Options struct {
	Logger *applog.Logger
	// Activity is nil when the activity log is disabled.
	Activity           ActivityReader
	RateLimitPerMinute int
	ArchiveCacheTTL    time.Duration
	// TrustedProxies extend the detector's default proxy ranges.
	TrustedProxies []string
	// Now defaults to time.Now; it dates submissions without a date.
	Now func() time.Time
}

type Server struct {
	http.Server
	ctrl      *lifecycle.Controller
	templates *template.Template
	activity  ActivityReader

	// Archives never change once written, so their rendered views are cached.
	archives *cache.LRUCache[archiveView]
	caches   *cache.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	logger  *applog.Logger
	slog    *applog.StructuredLogger
	now     func() time.Time
	started time.Time

	shutdownOnce sync.Once
}

type archiveView struct {
	Ledger  display.Ledger
	Summary core.ArchiveSummary
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, ctrl *lifecycle.Controller, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ArchiveCacheTTL <= 0 {
		opts.ArchiveCacheTTL = 10 * time.Minute
	}
	logger := opts.Logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		ctrl:     ctrl,
		activity: opts.Activity,
		archives: cache.NewLRUCache[archiveView](64, opts.ArchiveCacheTTL),
		caches:   cache.NewManager(),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector: security.NewDetector(),
		logger:   logger,
		slog:     applog.NewStructuredLogger(logger),
		now:      opts.Now,
		started:  time.Now(),
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", applog.FieldError, err)
		}
	}
	s.tracer = trace.NewMiddleware(opts.Logger.WithComponent(applog.ComponentTrace), s.detector.ExtractClientIP)
	s.caches.Register(s.archives)
	s.caches.StartCleanup(opts.ArchiveCacheTTL)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	s.Server = http.Server{Addr: addr, Handler: s.routes()}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(applog.Middleware(s.logger))
	r.Use(applog.RequestIDMiddleware(func(r *http.Request) string {
		return middleware.GetReqID(r.Context())
	}))
	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	r.Group(func(r chi.Router) {
		r.Use(security.NoStoreMiddleware)

		r.Get("/", s.handleIndex)
		r.Get("/disabled", s.handleDisable)
		r.Get("/back", s.handleBack)
		r.Get("/reset", s.handleReset)
		r.Get("/archive", s.handleArchiveMenu)
		r.Get("/archive/{fileName}", s.handleArchive)
		r.Get("/activity", s.handleActivity)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit))
			r.Post("/refresh", s.handleRefresh)
			r.Post("/submit", s.handleSubmit)
			r.Post("/delete", s.handleDelete)
			r.Post("/undo", s.handleUndo)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, applog.OpRead, &core.NotFoundError{Kind: "page", Key: r.URL.Path})
	})
	return r
}

// Shutdown stops background cleanup and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// pageData is what every template receives.
type pageData struct {
	Title    string
	State    core.State
	View     lifecycle.View
	Ledger   display.Ledger
	Mates    []string
	Today    string
	UndoID   int64
	Archives []display.Summary
	Error    *httpError
}

func templateFor(m lifecycle.Mode) string {
	switch m {
	case lifecycle.ModeAlert:
		return "alert.html"
	case lifecycle.ModeDisabled:
		return "disabled.html"
	case lifecycle.ModeArchive:
		return "archive.html"
	default:
		return "ledger.html"
	}
}

// renderOutcome picks the view for the request category and renders the
// ledger in it.
func (s *Server) renderOutcome(w http.ResponseWriter, r *http.Request, out lifecycle.Outcome, cat lifecycle.Category, undoID int64) {
	mates := s.ctrl.Mates()
	view := lifecycle.SelectView(out.State, cat, false)
	data := pageData{
		Title:  out.Ledger.Date.Label(),
		State:  out.State,
		View:   view,
		Ledger: display.Format(out.Ledger, mates),
		Mates:  core.ServerState{Mates: mates}.Names(),
		Today:  s.now().UTC().Format("2006-01-02"),
		UndoID: undoID,
	}
	s.render(w, r, http.StatusOK, templateFor(view.Mode), data)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	body, err := s.renderBytes(name, data)
	if err != nil {
		s.slog.LogError(r.Context(), "Template execution failed", err, applog.ComponentTemplate, applog.OpRender,
			applog.NewFields().WithErrorType(applog.ErrorTypeInternal))
		NewResponse().Status(http.StatusInternalServerError).BodyString("template error").Write(w)
		return
	}
	NewResponse().Status(status).BodyHTML(body).Write(w)
}

var errTemplatesNotLoaded = errors.New("templates not loaded")

func (s *Server) renderBytes(name string, data pageData) ([]byte, error) {
	if s.templates == nil {
		return nil, errTemplatesNotLoaded
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)

	he := httpError{Status: http.StatusTooManyRequests, Title: "Slow down", Message: "Too many requests. Please try again in a minute."}
	resp := NewResponse().Status(he.Status).Header("Retry-After", "60")
	if body, err := s.renderBytes("error.html", pageData{Title: he.Title, State: s.ctrl.State(), Error: &he}); err == nil {
		resp.BodyHTML(body)
	} else {
		resp.BodyString(he.Message)
	}
	resp.Write(w)
}
