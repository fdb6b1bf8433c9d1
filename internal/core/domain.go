package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	StateActive   State = "active"
	StateDisabled State = "disabled"
)

type (
	// State gates whether the active ledger accepts new expenses.
	State string

	// Month identifies a ledger; encoded as "YYYY-MM".
	Month struct {
		Year  int
		Month time.Month
	}

	// Date is a calendar day in UTC; encoded as "YYYY-MM-DD".
	Date struct {
		time.Time
	}

	Housemate struct {
		Name string `json:"name"`
		Rent Money  `json:"rent"`
	}

	Expense struct {
		ID          int64   `json:"id,omitempty"`
		WhoPaid     string  `json:"whoPaid"`
		Amount      Money   `json:"amount"`
		Portions    []Money `json:"portions"` // one per housemate, configuration order
		Date        Date    `json:"date"`
		Deleted     bool    `json:"deleted"`
		Description string  `json:"description,omitempty"`
	}

	// Ledger is one month of expenses. BaseRent, TotalRent and BalancedRent
	// are derived by Compute and never read back as a source of truth.
	Ledger struct {
		Date         Month            `json:"date"`
		List         []Expense        `json:"list"`
		BaseRent     map[string]Money `json:"baseRent,omitempty"`
		TotalRent    *Money           `json:"totalRent,omitempty"`
		BalancedRent map[string]Money `json:"balancedRent,omitempty"`
	}

	// ServerState is the persisted singleton {state, mates}.
	ServerState struct {
		State State       `json:"state"`
		Mates []Housemate `json:"mates"`
	}
)

const (
	monthLayout         = "2006-01"
	monthLayoutUnpadded = "2006-1"
	dateLayout          = "2006-01-02"
)

var ErrInvalidMonth = errors.New("invalid month")

// NewMonth builds a Month, normalizing out-of-range months into the year.
func NewMonth(year int, month time.Month) Month {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses "YYYY-MM". A month without its leading zero, as in
// "2024-3", is accepted too.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		if t, err = time.Parse(monthLayoutUnpadded, s); err != nil {
			return Month{}, fmt.Errorf("%w %q", ErrInvalidMonth, s)
		}
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf returns the month containing t (in UTC).
func MonthOf(t time.Time) Month {
	t = t.UTC()
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// Next advances by exactly one calendar month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Time returns the first instant of the month in UTC.
func (m Month) Time() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Label returns the display form, e.g. "Mar 2024". Archive keys use it.
func (m Month) Label() string {
	if m.IsZero() {
		return ""
	}
	return m.Time().Format("Jan 2006")
}

func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return m.Time().Format(monthLayout)
}

// ParseMonthLabel is the inverse of Label.
func ParseMonthLabel(s string) (Month, error) {
	t, err := time.Parse("Jan 2006", strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("%w %q", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts anything ParseMonth does. An empty or null date
// decodes to the zero Month.
func (m *Month) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*m = Month{}
		return nil
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses "YYYY-MM-DD", falling back to RFC 3339 timestamps.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q", s)
	}
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Valid reports whether s names a known lifecycle state.
func (s State) Valid() bool {
	return s == StateActive || s == StateDisabled
}

// Names returns housemate names in configuration order.
func (s ServerState) Names() []string {
	names := make([]string, len(s.Mates))
	for i, m := range s.Mates {
		names[i] = m.Name
	}
	return names
}

// Validate rejects configurations the balancer cannot work with.
func (s ServerState) Validate() error {
	if !s.State.Valid() {
		return fmt.Errorf("invalid state %q", s.State)
	}
	if len(s.Mates) == 0 {
		return errors.New("no housemates configured")
	}
	seen := make(map[string]struct{}, len(s.Mates))
	for _, m := range s.Mates {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return errors.New("housemate with empty name")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate housemate %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// NewExpense builds an expense from a per-housemate portion mapping,
// validating every key against mates and requiring the portions to add up
// to amount. Portions are stored in configuration order.
func NewExpense(mates []Housemate, whoPaid string, amount Money, portions map[string]Money, date Date, description string) (Expense, error) {
	known := make(map[string]int, len(mates))
	for i, m := range mates {
		known[m.Name] = i
	}
	if _, ok := known[whoPaid]; !ok {
		return Expense{}, &ParseError{Field: "whoPaid", Value: whoPaid, Err: ErrUnknownMate}
	}
	if amount.Cents <= 0 {
		return Expense{}, &ParseError{Field: "amount", Value: amount.String(), Err: ErrInvalidAmount}
	}
	if date.IsZero() {
		return Expense{}, &ParseError{Field: "date", Err: errors.New("date cannot be zero")}
	}
	ordered := make([]Money, len(mates))
	for name, p := range portions {
		i, ok := known[name]
		if !ok {
			return Expense{}, &ParseError{Field: "portions", Value: name, Err: ErrUnknownMate}
		}
		if p.Cents < 0 {
			return Expense{}, &ParseError{Field: "portions", Value: p.String(), Err: ErrInvalidAmount}
		}
		ordered[i] = p
	}
	if total := Sum(ordered); total != amount {
		return Expense{}, &ParseError{
			Field: "portions",
			Value: total.String(),
			Err:   fmt.Errorf("%w: portions total %s, amount %s", ErrPortionSum, total, amount),
		}
	}
	return Expense{
		WhoPaid:     whoPaid,
		Amount:      amount,
		Portions:    ordered,
		Date:        date,
		Description: strings.TrimSpace(description),
	}, nil
}

// Source returns a deep copy of l with derived fields cleared.
func (l Ledger) Source() Ledger {
	out := Ledger{Date: l.Date, List: make([]Expense, len(l.List))}
	for i, e := range l.List {
		e.Portions = append([]Money(nil), e.Portions...)
		out.List[i] = e
	}
	return out
}

// Normalize assigns ids to expenses stored without one. A missing id takes
// the expense's 1-based position when that is free, otherwise the next id
// after the highest in use.
func (l *Ledger) Normalize() {
	if l.List == nil {
		l.List = []Expense{}
	}
	used := make(map[int64]bool, len(l.List))
	for _, e := range l.List {
		if e.ID > 0 {
			used[e.ID] = true
		}
	}
	next := l.NextID()
	for i := range l.List {
		if l.List[i].ID > 0 {
			continue
		}
		id := int64(i + 1)
		if used[id] {
			id = next
		}
		if id >= next {
			next = id + 1
		}
		used[id] = true
		l.List[i].ID = id
	}
}

// NextID returns one past the highest expense id.
func (l Ledger) NextID() int64 {
	var max int64
	for _, e := range l.List {
		if e.ID > max {
			max = e.ID
		}
	}
	return max + 1
}

// Find returns the position of the expense with the given id.
func (l Ledger) Find(id int64) (int, bool) {
	for i, e := range l.List {
		if e.ID == id {
			return i, true
		}
	}
	return -1, false
}
