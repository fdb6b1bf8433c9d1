package http

import (
	"context"
	"net/http"

	"rentsplit/internal/core"
	"rentsplit/internal/lifecycle"
	applog "rentsplit/internal/log"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderSnapshot(w, r, lifecycle.CategoryNavigation)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.renderSnapshot(w, r, lifecycle.CategoryRefresh)
}

func (s *Server) renderSnapshot(w http.ResponseWriter, r *http.Request, cat lifecycle.Category) {
	out, err := s.ctrl.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	s.renderOutcome(w, r, out, cat, 0)
}

// rejectInput answers malformed expense input. A disabled ledger shows the
// pay-rent alert instead, as it would for a well-formed submission.
func (s *Server) rejectInput(w http.ResponseWriter, r *http.Request, op string, err error) {
	if s.ctrl.State() == core.StateDisabled {
		s.renderSnapshot(w, r, lifecycle.CategoryExpense)
		return
	}
	s.writeError(w, r, op, err)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := parseForm(w, r); err != nil {
		s.rejectInput(w, r, applog.OpSubmit, err)
		return
	}
	in, err := ParseExpenseForm(r.Form, s.ctrl.Mates(), s.now())
	if err != nil {
		s.rejectInput(w, r, applog.OpSubmit, err)
		return
	}

	out, err := s.ctrl.AddExpense(ctx, in)
	if err != nil {
		s.writeError(w, r, applog.OpSubmit, err)
		return
	}
	if out.Applied {
		e := out.Ledger.List[len(out.Ledger.List)-1]
		s.slog.LogExpenseAdded(ctx, out.Ledger.Date.String(), e.ID, e.WhoPaid, e.Amount.String())
	} else {
		s.slog.LogOperation(ctx, applog.OpSubmit, out.Ledger.Date.String(), string(out.State), false)
	}
	s.renderOutcome(w, r, out, lifecycle.CategoryExpense, 0)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.handleSetDeleted(w, r, applog.OpDelete, s.ctrl.DeleteExpense, s.ctrl.DeleteAt)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.handleSetDeleted(w, r, applog.OpUndo, s.ctrl.UndoExpense, s.ctrl.UndoAt)
}

func (s *Server) handleSetDeleted(w http.ResponseWriter, r *http.Request, op string,
	withID func(context.Context, int64) (lifecycle.Outcome, error),
	atIndex func(context.Context, int) (lifecycle.Outcome, error),
) {
	ctx := r.Context()
	if err := parseForm(w, r); err != nil {
		s.rejectInput(w, r, op, err)
		return
	}
	target, err := ParseExpenseTarget(r.Form)
	if err != nil {
		s.rejectInput(w, r, op, err)
		return
	}

	var out lifecycle.Outcome
	if target.ByIndex {
		out, err = atIndex(ctx, target.Index)
	} else {
		out, err = withID(ctx, target.ID)
	}
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	s.slog.LogOperation(ctx, op, out.Ledger.Date.String(), string(out.State), out.Applied)

	// Offer an undo for the expense just deleted.
	var undoID int64
	if op == applog.OpDelete && out.Applied {
		undoID = target.ID
		if target.ByIndex {
			undoID = out.Ledger.List[target.Index].ID
		}
	}
	s.renderOutcome(w, r, out, lifecycle.CategoryExpense, undoID)
}
