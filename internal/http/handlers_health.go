package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"rentsplit/internal/cache"
	"rentsplit/internal/core"
	"rentsplit/internal/events"
	applog "rentsplit/internal/log"
	"rentsplit/internal/middleware/ratelimit"
	"rentsplit/internal/middleware/security"
	"rentsplit/internal/middleware/trace"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().BodyJSON(map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the templates, the ledger store and, when configured,
// the activity log.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"templates": "ok", "store": "ok"}
	ready := true
	if s.templates == nil {
		checks["templates"] = errTemplatesNotLoaded.Error()
		ready = false
	}
	if err := s.ctrl.Ping(ctx); err != nil {
		checks["store"] = err.Error()
		ready = false
	}
	if p, ok := s.activity.(interface{ Ping(context.Context) error }); ok {
		checks["activity"] = "ok"
		if err := p.Ping(ctx); err != nil {
			checks["activity"] = err.Error()
			ready = false
		}
	}

	status, label := http.StatusOK, "ready"
	if !ready {
		status, label = http.StatusServiceUnavailable, "not ready"
		s.logger.WarnContext(ctx, "Readiness check failed", "checks", checks)
	}
	NewResponse().Status(status).BodyJSON(map[string]any{
		"status": label,
		"state":  s.ctrl.State(),
		"checks": checks,
	}).Write(w)
}

type metricsResponse struct {
	RateLimit    ratelimit.Metrics         `json:"rate_limit"`
	Security     security.DetectionMetrics `json:"security"`
	Requests     trace.Metrics             `json:"requests"`
	ArchiveCache cache.Stats               `json:"archive_cache"`
}

// handleMetrics reports the counters kept by the middleware and the archive
// cache.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	NewResponse().BodyJSON(metricsResponse{
		RateLimit:    s.limiter.GetMetrics(),
		Security:     s.detector.GetMetrics(),
		Requests:     s.tracer.GetMetrics(),
		ArchiveCache: s.archives.Stats(),
	}).Write(w)
}

type activityResponse struct {
	Events []events.Event `json:"events"`
}

// handleActivity returns the most recent ledger events as JSON.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if s.activity == nil {
		NewResponse().Status(http.StatusNotFound).BodyJSON(map[string]string{
			"error": "activity log is disabled",
		}).Write(w)
		return
	}

	limit := defaultActivityLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			he := classify(&core.ParseError{Field: "limit", Value: v, Err: strconv.ErrSyntax})
			NewResponse().Status(he.Status).BodyJSON(map[string]string{"error": he.Message}).Write(w)
			return
		}
		limit = min(n, maxActivityLimit)
	}

	recent, err := s.activity.Recent(r.Context(), limit)
	if err != nil {
		s.slog.LogError(r.Context(), "Failed to read activity", err, applog.ComponentActivity, applog.OpList, nil)
		NewResponse().Status(http.StatusInternalServerError).BodyJSON(map[string]string{
			"error": "activity log unavailable",
		}).Write(w)
		return
	}
	if recent == nil {
		recent = []events.Event{}
	}
	NewResponse().BodyJSON(activityResponse{Events: recent}).Write(w)
}
