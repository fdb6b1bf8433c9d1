package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"rentsplit/internal/core"
	"rentsplit/internal/display"
	"rentsplit/internal/lifecycle"
	applog "rentsplit/internal/log"
)

// archiveLoaders bounds concurrent archive reads while building the menu.
const archiveLoaders = 4

func (s *Server) handleArchiveMenu(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	names, err := s.ctrl.Archives(ctx)
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}

	summaries := make([]core.ArchiveSummary, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(archiveLoaders)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			v, err := s.archiveView(gctx, name)
			if err != nil {
				// A broken archive still gets listed, without balances.
				applog.FromContext(ctx).WarnContext(ctx, "Archive summary unavailable",
					applog.FieldArchive, name,
					applog.FieldError, err.Error())
				summaries[i] = core.Summarize(name, core.Ledger{}, nil)
				return nil
			}
			summaries[i] = v.Summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	core.SortSummaries(summaries)

	entries := make([]display.Summary, len(summaries))
	for i, sum := range summaries {
		entries[i] = display.FormatSummary(sum)
	}
	s.render(w, r, http.StatusOK, "archives.html", pageData{
		Title:    "Archive",
		State:    s.ctrl.State(),
		View:     lifecycle.SelectView(s.ctrl.State(), lifecycle.CategoryNavigation, true),
		Archives: entries,
	})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "fileName"))
	if err != nil {
		s.writeError(w, r, applog.OpRead, &core.ParseError{Field: "archive", Value: chi.URLParam(r, "fileName"), Err: err})
		return
	}
	name = strings.TrimSuffix(name, ".json")

	v, err := s.archiveView(r.Context(), name)
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	state := s.ctrl.State()
	s.render(w, r, http.StatusOK, "archive.html", pageData{
		Title:  v.Ledger.Label,
		State:  state,
		View:   lifecycle.SelectView(state, lifecycle.CategoryNavigation, true),
		Ledger: v.Ledger,
		Mates:  core.ServerState{Mates: s.ctrl.Mates()}.Names(),
	})
}

// archiveView returns the formatted archive, caching it by name.
func (s *Server) archiveView(ctx context.Context, name string) (archiveView, error) {
	if v, ok := s.archives.Get(name); ok {
		return v, nil
	}
	l, err := s.ctrl.Archive(ctx, name)
	if err != nil {
		return archiveView{}, err
	}
	mates := s.ctrl.Mates()
	v := archiveView{
		Ledger:  display.Format(l, mates),
		Summary: core.Summarize(name, l, core.ServerState{Mates: mates}.Names()),
	}
	if v.Ledger.Label == "" {
		v.Ledger.Label = name
	}
	s.archives.Set(name, v)
	return v, nil
}
