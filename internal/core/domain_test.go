package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestMonthNext(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"2024-03", "2024-04"},
		{"2024-12", "2025-01"},
		{"2023-01", "2023-02"},
	}
	for _, tc := range cases {
		m, err := ParseMonth(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got := m.Next().String(); got != tc.want {
			t.Errorf("%s.Next() = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestMonthLabel(t *testing.T) {
	m := NewMonth(2024, time.March)
	if got := m.Label(); got != "Mar 2024" {
		t.Fatalf("Label() = %q", got)
	}
	back, err := ParseMonthLabel("Mar 2024")
	if err != nil || back != m {
		t.Fatalf("ParseMonthLabel = %v, %v", back, err)
	}
	if (Month{}).Label() != "" {
		t.Fatal("zero month should have empty label")
	}
}

func TestMonthUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    Month
		wantErr bool
	}{
		{`"2024-03"`, NewMonth(2024, time.March), false},
		{`"2024-3"`, NewMonth(2024, time.March), false},
		{`""`, Month{}, false},
		{`null`, Month{}, false},
		{`"placeholder"`, Month{}, true},
		{`"2024-13"`, Month{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var m Month
			err := json.Unmarshal([]byte(tt.in), &m)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidMonth) && tt.wantErr {
				t.Fatalf("err = %v, want ErrInvalidMonth", err)
			}
			if m != tt.want {
				t.Fatalf("month = %v, want %v", m, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-15")
	if err != nil || d.String() != "2024-03-15" {
		t.Fatalf("ParseDate = %v, %v", d, err)
	}
	d, err = ParseDate("2024-03-15T23:30:00-02:00")
	if err != nil || d.String() != "2024-03-16" {
		t.Fatalf("RFC3339 fallback = %v, %v", d, err)
	}
	if _, err := ParseDate("15/03/2024"); err == nil {
		t.Fatal("expected error")
	}
}

func TestServerStateValidate(t *testing.T) {
	good := ServerState{State: StateActive, Mates: []Housemate{{Name: "Alice"}, {Name: "Bob"}}}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	bads := []ServerState{
		{State: "paused", Mates: good.Mates},
		{State: StateActive},
		{State: StateActive, Mates: []Housemate{{Name: "Alice"}, {Name: "Alice"}}},
		{State: StateDisabled, Mates: []Housemate{{Name: " "}}},
	}
	for i, s := range bads {
		if err := s.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestNewExpense(t *testing.T) {
	mates := []Housemate{{Name: "Alice"}, {Name: "Bob"}, {Name: "Cara"}}
	day := NewDate(2024, 3, 15)

	e, err := NewExpense(mates, "Bob", Money{Cents: 9000}, map[string]Money{
		"Cara":  {Cents: 3000},
		"Alice": {Cents: 6000},
	}, day, "  groceries ")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	want := []Money{{Cents: 6000}, {Cents: 0}, {Cents: 3000}}
	for i := range want {
		if e.Portions[i] != want[i] {
			t.Fatalf("portions = %v, want %v", e.Portions, want)
		}
	}
	if e.Description != "groceries" {
		t.Fatalf("description = %q", e.Description)
	}

	cases := []struct {
		name     string
		whoPaid  string
		amount   int64
		portions map[string]Money
		cause    error
	}{
		{"unknown payer", "Dan", 100, map[string]Money{"Alice": {Cents: 100}}, ErrUnknownMate},
		{"unknown portion", "Alice", 100, map[string]Money{"Dan": {Cents: 100}}, ErrUnknownMate},
		{"sum mismatch", "Alice", 100, map[string]Money{"Alice": {Cents: 40}, "Bob": {Cents: 40}}, ErrPortionSum},
		{"zero amount", "Alice", 0, nil, ErrInvalidAmount},
		{"negative portion", "Alice", 100, map[string]Money{"Alice": {Cents: 150}, "Bob": {Cents: -50}}, ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewExpense(mates, tc.whoPaid, Money{Cents: tc.amount}, tc.portions, day, "")
			if !IsParse(err) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if !errors.Is(err, tc.cause) {
				t.Fatalf("expected %v, got %v", tc.cause, err)
			}
		})
	}
}

func TestLedgerNormalize(t *testing.T) {
	l := Ledger{List: []Expense{{}, {ID: 1}, {}, {ID: 7}}}
	l.Normalize()
	got := []int64{l.List[0].ID, l.List[1].ID, l.List[2].ID, l.List[3].ID}
	want := []int64{8, 1, 3, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ids = %v, want %v", got, want)
		}
	}
	if l.NextID() != 9 {
		t.Fatalf("NextID = %d", l.NextID())
	}

	legacy := Ledger{List: []Expense{{}, {}, {}}}
	legacy.Normalize()
	for i, e := range legacy.List {
		if e.ID != int64(i+1) {
			t.Fatalf("legacy ids = %+v", legacy.List)
		}
	}

	var empty Ledger
	empty.Normalize()
	if empty.List == nil {
		t.Fatal("Normalize should allocate an empty list")
	}
}
