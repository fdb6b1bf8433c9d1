package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"rentsplit/internal/core"
	"rentsplit/internal/lifecycle"
)

const maxDescriptionLen = 200

// ParseExpenseForm reads a submitted expense. Portions come either as one
// comma-joined "portions" value or as one "portions" value per housemate,
// in configuration order; when absent the amount is split evenly.
func ParseExpenseForm(form url.Values, mates []core.Housemate, now time.Time) (lifecycle.ExpenseInput, error) {
	in := lifecycle.ExpenseInput{
		WhoPaid:     sanitizeInput(form.Get("whoPaid")),
		Description: truncate(sanitizeInput(form.Get("description")), maxDescriptionLen),
	}

	amountStr := strings.TrimSpace(form.Get("amount"))
	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		return in, &core.ParseError{Field: "amount", Value: amountStr, Err: core.ErrInvalidAmount}
	}
	in.Amount = core.Money{Cents: cents}

	if v := strings.TrimSpace(form.Get("date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return in, &core.ParseError{Field: "date", Value: v, Err: err}
		}
		in.Date = d
	} else {
		now = now.UTC()
		in.Date = core.NewDate(now.Year(), int(now.Month()), now.Day())
	}

	parts := portionValues(form["portions"])
	if len(parts) == 0 {
		in.Portions = evenSplit(in.Amount, mates)
		return in, nil
	}
	if len(parts) != len(mates) {
		return in, &core.ParseError{Field: "portions", Value: strings.Join(parts, ","), Err: core.ErrPortionCount}
	}
	in.Portions = make(map[string]core.Money, len(mates))
	for i, p := range parts {
		c, err := core.ParseSignedDecimalToCents(p)
		if err != nil {
			return in, &core.ParseError{Field: "portions", Value: p, Err: core.ErrInvalidAmount}
		}
		in.Portions[mates[i].Name] = core.Money{Cents: c}
	}
	return in, nil
}

func portionValues(values []string) []string {
	if len(values) == 1 {
		values = strings.Split(values[0], ",")
	}
	var out []string
	blank := true
	for _, v := range values {
		v = strings.TrimSpace(v)
		blank = blank && v == ""
		out = append(out, v)
	}
	// Left entirely blank means an even split.
	if blank {
		return nil
	}
	return out
}

// evenSplit divides amount across mates; leftover cents go to the first
// housemates in order.
func evenSplit(amount core.Money, mates []core.Housemate) map[string]core.Money {
	out := make(map[string]core.Money, len(mates))
	if len(mates) == 0 {
		return out
	}
	n := int64(len(mates))
	share, rem := amount.Cents/n, amount.Cents%n
	for i, m := range mates {
		c := share
		if int64(i) < rem {
			c++
		}
		out[m.Name] = core.Money{Cents: c}
	}
	return out
}

// expenseTarget names the expense a delete or undo refers to.
type expenseTarget struct {
	ID      int64
	Index   int
	ByIndex bool
}

var errMissingTarget = errors.New("id or index is required")

// ParseExpenseTarget reads "id", or the legacy "index" list position.
func ParseExpenseTarget(form url.Values) (expenseTarget, error) {
	if v := strings.TrimSpace(form.Get("id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return expenseTarget{}, &core.ParseError{Field: "id", Value: v, Err: strconv.ErrSyntax}
		}
		return expenseTarget{ID: id}, nil
	}
	if v := strings.TrimSpace(form.Get("index")); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil || i < 0 {
			return expenseTarget{}, &core.ParseError{Field: "index", Value: v, Err: strconv.ErrSyntax}
		}
		return expenseTarget{Index: i, ByIndex: true}, nil
	}
	return expenseTarget{}, &core.ParseError{Field: "id", Err: errMissingTarget}
}

// parseForm bounds the body and parses it.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		return &core.ParseError{Field: "form", Err: err}
	}
	return nil
}

// sanitizeInput removes control characters except tab and newlines, and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
