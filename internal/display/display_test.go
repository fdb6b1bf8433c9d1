package display

import (
	"reflect"
	"testing"
	"time"

	"rentsplit/internal/core"
)

func TestDollars(t *testing.T) {
	cases := []struct {
		cents    int64
		decimals int
		want     string
	}{
		{120000, 0, "$1200"},
		{119950, 0, "$1200"},
		{119949, 0, "$1199"},
		{55000, 2, "$550.00"},
		{1205, 2, "$12.05"},
		{0, 2, "$0.00"},
		{-1250, 2, "-$12.50"},
		{-40, 0, "$0"},
		{123456789, 2, "$1234567.89"},
	}
	for _, tc := range cases {
		if got := Dollars(core.Money{Cents: tc.cents}, tc.decimals); got != tc.want {
			t.Errorf("Dollars(%d, %d) = %q, want %q", tc.cents, tc.decimals, got, tc.want)
		}
	}
}

func computed(t *testing.T) (core.Ledger, []core.Housemate) {
	t.Helper()
	mates := []core.Housemate{
		{Name: "Alice", Rent: core.Money{Cents: 60000}},
		{Name: "Bob", Rent: core.Money{Cents: 60000}},
	}
	l := core.Ledger{
		Date: core.NewMonth(2024, time.March),
		List: []core.Expense{
			{ID: 1, WhoPaid: "Alice", Amount: core.Money{Cents: 10000}, Portions: []core.Money{{Cents: 5000}, {Cents: 5000}}, Date: core.NewDate(2024, 3, 2)},
			{ID: 2, WhoPaid: "Bob", Amount: core.Money{Cents: 2000}, Portions: []core.Money{{Cents: 1000}, {Cents: 1000}}, Date: core.NewDate(2024, 3, 9), Deleted: true},
			{ID: 3, WhoPaid: "Bob", Amount: core.Money{Cents: 3000}, Portions: []core.Money{{Cents: 1500}, {Cents: 1500}}, Date: core.NewDate(2024, 3, 20)},
			{ID: 4, WhoPaid: "Alice", Amount: core.Money{Cents: 400}, Portions: []core.Money{{Cents: 200}, {Cents: 200}}, Date: core.NewDate(2024, 3, 2)},
		},
	}
	c, err := core.Compute(l, mates)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	return c, mates
}

func TestFormat(t *testing.T) {
	c, mates := computed(t)
	got := Format(c, mates)

	if got.Label != "Mar 2024" {
		t.Errorf("Label = %q", got.Label)
	}
	if got.TotalRent != "$1200" {
		t.Errorf("TotalRent = %q", got.TotalRent)
	}
	wantBalanced := []Share{{"Alice", "$563.00"}, {"Bob", "$637.00"}}
	if !reflect.DeepEqual(got.BalancedRent, wantBalanced) {
		t.Errorf("BalancedRent = %v, want %v", got.BalancedRent, wantBalanced)
	}

	// Deleted expense 2 removed; newest first; the two 3/2 rows keep
	// insertion order (1 before 4).
	var ids []int64
	var idx []int
	for _, e := range got.List {
		ids = append(ids, e.ID)
		idx = append(idx, e.Index)
	}
	if !reflect.DeepEqual(ids, []int64{3, 1, 4}) {
		t.Fatalf("order = %v", ids)
	}
	if !reflect.DeepEqual(idx, []int{1, 0, 2}) {
		t.Fatalf("indexes = %v", idx)
	}
	first := got.List[0]
	if first.Amount != "$30.00" || first.Date != "3/20/2024" {
		t.Errorf("first row = %+v", first)
	}
	if first.Portions[1].Name != "Bob" || first.Portions[1].Amount != "$15.00" {
		t.Errorf("portions = %+v", first.Portions)
	}
}

func TestFormatIsIdempotent(t *testing.T) {
	c, mates := computed(t)
	a := Format(c, mates)
	b := Format(c, mates)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("repeated Format differs:\n%+v\n%+v", a, b)
	}
}

func TestFormatUnknownNamesTrailSorted(t *testing.T) {
	l := core.Ledger{
		BalancedRent: map[string]core.Money{"Zed": {Cents: 1}, "Amy": {Cents: 2}, "Bob": {Cents: 3}},
	}
	got := Format(l, []core.Housemate{{Name: "Bob"}})
	names := []string{}
	for _, s := range got.BalancedRent {
		names = append(names, s.Name)
	}
	if !reflect.DeepEqual(names, []string{"Bob", "Amy", "Zed"}) {
		t.Fatalf("names = %v", names)
	}
}
