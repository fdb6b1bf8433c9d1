package http

import (
	"context"
	"net/http"

	"rentsplit/internal/lifecycle"
	applog "rentsplit/internal/log"
)

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, applog.OpDisable, s.ctrl.Disable)
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, applog.OpResume, s.ctrl.Resume)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, applog.OpRollover, s.ctrl.Rollover)
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request, op string, apply func(context.Context) (lifecycle.Outcome, error)) {
	ctx := r.Context()
	out, err := apply(ctx)
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	if out.Archived != "" {
		s.archives.Delete(out.Archived)
	}
	s.slog.LogOperation(ctx, op, out.Ledger.Date.String(), string(out.State), out.Applied)
	s.renderOutcome(w, r, out, lifecycle.CategoryNavigation, 0)
}
