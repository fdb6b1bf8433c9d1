package core

import "sort"

// Share is one housemate's amount, kept in configuration order.
type Share struct {
	Name   string
	Amount Money
}

// ArchiveSummary is a compact view of a closed month for the archive menu.
type ArchiveSummary struct {
	Name     string // archive key, e.g. "Mar 2024"
	Month    Month  // parsed from Name; zero when Name is not a month label
	Balanced []Share
}

// Shares flattens a per-name mapping following the names order. Names
// present in amounts but missing from names are dropped.
func Shares(names []string, amounts map[string]Money) []Share {
	out := make([]Share, 0, len(names))
	for _, n := range names {
		if a, ok := amounts[n]; ok {
			out = append(out, Share{Name: n, Amount: a})
		}
	}
	return out
}

// Summarize builds the menu entry for an archive computed with Compute.
func Summarize(name string, computed Ledger, names []string) ArchiveSummary {
	m, err := ParseMonthLabel(name)
	if err != nil {
		m = Month{}
	}
	return ArchiveSummary{
		Name:     name,
		Month:    m,
		Balanced: Shares(names, computed.BalancedRent),
	}
}

// SortSummaries orders archives chronologically. Archives whose name is not
// a month label come last, by name.
func SortSummaries(s []ArchiveSummary) {
	sort.SliceStable(s, func(i, j int) bool {
		a, b := s[i], s[j]
		switch {
		case a.Month.IsZero() && b.Month.IsZero():
			return a.Name < b.Name
		case a.Month.IsZero():
			return false
		case b.Month.IsZero():
			return true
		case a.Month.Year != b.Month.Year:
			return a.Month.Year < b.Month.Year
		default:
			return a.Month.Month < b.Month.Month
		}
	})
}
