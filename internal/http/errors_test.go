package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"rentsplit/internal/core"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"parse", &core.ParseError{Field: "amount", Err: core.ErrInvalidAmount}, http.StatusBadRequest},
		{"wrapped parse", fmt.Errorf("submit: %w", &core.ParseError{Field: "date", Err: errors.New("bad")}), http.StatusBadRequest},
		{"not found", &core.NotFoundError{Kind: "archive", Key: "Mar 2024"}, http.StatusNotFound},
		{"integrity", fmt.Errorf("compute: %w", &core.DataIntegrityError{ExpenseID: 3, Name: "Zed", Reason: "paid by unknown housemate"}), http.StatusInternalServerError},
		{"other", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := classify(tt.err)
			if he.Status != tt.status {
				t.Errorf("status = %d, want %d", he.Status, tt.status)
			}
			if he.Title == "" || he.Message == "" {
				t.Errorf("empty title or message: %+v", he)
			}
		})
	}

	// Internal details stay out of the page.
	if he := classify(errors.New("disk on fire")); he.Message == "disk on fire" {
		t.Errorf("internal error message leaked to the page")
	}
}
