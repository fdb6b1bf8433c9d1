// Package display turns a computed ledger into the strings the templates
// render. Nothing here feeds back into persisted state.
package display

import (
	"sort"
	"strconv"
	"time"

	"rentsplit/internal/core"
)

type (
	// Share is one housemate's formatted amount.
	Share struct {
		Name   string
		Amount string
	}

	Expense struct {
		ID          int64 // stable key for delete/undo
		Index       int   // position among non-deleted expenses, before sorting
		WhoPaid     string
		Amount      string
		Portions    []Share
		Date        string
		Description string
	}

	Ledger struct {
		Month        core.Month
		Label        string
		TotalRent    string
		BaseRent     []Share
		BalancedRent []Share
		List         []Expense
	}
)

// Format renders a ledger produced by core.Compute. Shares follow the
// housemate order; names only present in the ledger maps come last, sorted.
func Format(l core.Ledger, mates []core.Housemate) Ledger {
	names := make([]string, len(mates))
	for i, m := range mates {
		names[i] = m.Name
	}

	out := Ledger{
		Month:        l.Date,
		Label:        l.Date.Label(),
		TotalRent:    Dollars(l.Total(), 0),
		BaseRent:     shares(names, l.BaseRent),
		BalancedRent: shares(names, l.BalancedRent),
		List:         make([]Expense, 0, len(l.List)),
	}

	type keyed struct {
		day time.Time
		exp Expense
	}
	rows := make([]keyed, 0, len(l.List))
	for _, e := range l.List {
		if e.Deleted {
			continue
		}
		portions := make([]Share, 0, len(e.Portions))
		for i, p := range e.Portions {
			name := ""
			if i < len(names) {
				name = names[i]
			}
			portions = append(portions, Share{Name: name, Amount: Dollars(p, 2)})
		}
		rows = append(rows, keyed{
			day: e.Date.Time,
			exp: Expense{
				ID:          e.ID,
				Index:       len(rows),
				WhoPaid:     e.WhoPaid,
				Amount:      Dollars(e.Amount, 2),
				Portions:    portions,
				Date:        Day(e.Date),
				Description: e.Description,
			},
		})
	}

	// Most recent first; equal dates keep insertion order.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].day.After(rows[j].day)
	})
	for _, r := range rows {
		out.List = append(out.List, r.exp)
	}
	return out
}

// Dollars formats cents as "$12.34" (decimals 2) or "$12" (decimals 0,
// rounded half away from zero). Negative amounts render as "-$12.34".
func Dollars(m core.Money, decimals int) string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	if decimals == 0 {
		whole := (cents + 50) / 100
		if whole == 0 {
			sign = ""
		}
		return sign + "$" + strconv.FormatInt(whole, 10)
	}
	rem := cents % 100
	frac := strconv.FormatInt(rem, 10)
	if rem < 10 {
		frac = "0" + frac
	}
	return sign + "$" + strconv.FormatInt(cents/100, 10) + "." + frac
}

// Day formats a date the way en-US numeric dates read: "3/15/2024".
func Day(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format("1/2/2006")
}

func shares(names []string, amounts map[string]core.Money) []Share {
	known := make(map[string]bool, len(names))
	out := make([]Share, 0, len(amounts))
	for _, s := range core.Shares(names, amounts) {
		known[s.Name] = true
		out = append(out, Share{Name: s.Name, Amount: Dollars(s.Amount, 2)})
	}
	var extra []string
	for name := range amounts {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, Share{Name: name, Amount: Dollars(amounts[name], 2)})
	}
	return out
}

// Summary is one archive menu entry.
type Summary struct {
	Name     string
	Label    string
	Balanced []Share
}

func FormatSummary(s core.ArchiveSummary) Summary {
	out := Summary{Name: s.Name, Label: s.Month.Label(), Balanced: make([]Share, 0, len(s.Balanced))}
	if out.Label == "" {
		out.Label = s.Name
	}
	for _, b := range s.Balanced {
		out.Balanced = append(out.Balanced, Share{Name: b.Name, Amount: Dollars(b.Amount, 2)})
	}
	return out
}
