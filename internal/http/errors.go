package http

import (
	"errors"
	"net/http"

	"rentsplit/internal/core"
	applog "rentsplit/internal/log"
)

// httpError is what the error page shows.
type httpError struct {
	Status  int
	Title   string
	Message string
	kind    string
}

// classify maps the domain error taxonomy onto HTTP. Details of internal
// failures stay in the log.
func classify(err error) httpError {
	var (
		pe *core.ParseError
		nf *core.NotFoundError
		di *core.DataIntegrityError
	)
	switch {
	case errors.As(err, &pe):
		return httpError{Status: http.StatusBadRequest, Title: "Invalid input", Message: pe.Error(), kind: applog.ErrorTypeValidation}
	case errors.As(err, &nf):
		return httpError{Status: http.StatusNotFound, Title: "Not found", Message: nf.Error(), kind: applog.ErrorTypeNotFound}
	case errors.As(err, &di):
		return httpError{Status: http.StatusInternalServerError, Title: "Ledger data problem", Message: di.Error(), kind: applog.ErrorTypeIntegrity}
	default:
		return httpError{Status: http.StatusInternalServerError, Title: "Something went wrong", Message: "The ledger could not be processed. Nothing was saved.", kind: applog.ErrorTypeInternal}
	}
}

// writeError logs err and renders the error page.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	he := classify(err)
	fields := applog.NewFields().WithErrorType(he.kind)
	if he.Status >= http.StatusInternalServerError {
		s.slog.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, operation, fields)
	} else {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Request rejected",
			applog.FieldOperation, operation,
			applog.FieldErrorType, he.kind,
			applog.FieldError, err.Error())
	}

	body, rerr := s.renderBytes("error.html", pageData{Title: he.Title, State: s.ctrl.State(), Error: &he})
	if rerr != nil {
		NewResponse().Status(he.Status).BodyString(he.Title + ": " + he.Message).Write(w)
		return
	}
	NewResponse().Status(he.Status).BodyHTML(body).Write(w)
}
