package core

// Compute returns a copy of l with BaseRent, TotalRent and BalancedRent
// derived from its non-deleted expenses and the given housemates. A positive
// balance is still owed; a negative one is owed back. l is not modified.
func Compute(l Ledger, mates []Housemate) (Ledger, error) {
	out := l.Source()

	base := make(map[string]Money, len(mates))
	var total Money
	for _, m := range mates {
		base[m.Name] = m.Rent
		total = total.Add(m.Rent)
	}
	balanced := make(map[string]Money, len(mates))
	for name, rent := range base {
		balanced[name] = rent
	}

	for _, e := range out.List {
		if e.Deleted {
			continue
		}
		paid, ok := balanced[e.WhoPaid]
		if !ok {
			return Ledger{}, &DataIntegrityError{Month: l.Date, ExpenseID: e.ID, Name: e.WhoPaid, Reason: "paid by unknown housemate"}
		}
		if len(e.Portions) != len(mates) {
			return Ledger{}, &DataIntegrityError{Month: l.Date, ExpenseID: e.ID, Reason: ErrPortionCount.Error()}
		}
		balanced[e.WhoPaid] = paid.Sub(e.Amount)
		for i, m := range mates {
			balanced[m.Name] = balanced[m.Name].Add(e.Portions[i])
		}
	}

	out.BaseRent = base
	out.TotalRent = &total
	out.BalancedRent = balanced
	return out, nil
}

// Total returns TotalRent, or zero when the ledger has not been computed.
func (l Ledger) Total() Money {
	if l.TotalRent == nil {
		return Money{}
	}
	return *l.TotalRent
}
