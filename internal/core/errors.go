package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrUnknownMate   = errors.New("unknown housemate")
	ErrPortionCount  = errors.New("portion count does not match housemates")
	ErrPortionSum    = errors.New("portions do not add up to amount")
)

// DataIntegrityError reports a stored ledger that references housemates the
// current configuration does not know about.
type DataIntegrityError struct {
	Month     Month
	ExpenseID int64
	Name      string
	Reason    string
}

func (e *DataIntegrityError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("ledger %s expense %d: %s %q", e.Month, e.ExpenseID, e.Reason, e.Name)
	}
	return fmt.Sprintf("ledger %s expense %d: %s", e.Month, e.ExpenseID, e.Reason)
}

// NotFoundError reports a missing archive, ledger file, or expense.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

// ParseError reports malformed user input.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsParse reports whether err wraps a *ParseError.
func IsParse(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsDataIntegrity reports whether err wraps a *DataIntegrityError.
func IsDataIntegrity(err error) bool {
	var de *DataIntegrityError
	return errors.As(err, &de)
}
