package lifecycle

import "rentsplit/internal/core"

// Category groups requests by how a disabled ledger answers them.
type Category int

const (
	// CategoryNavigation is every GET.
	CategoryNavigation Category = iota
	// CategoryRefresh is an explicit refresh.
	CategoryRefresh
	// CategoryExpense is a submit, delete or undo.
	CategoryExpense
)

type Mode string

const (
	ModeLedger   Mode = "ledger"
	ModeArchive  Mode = "archive"
	ModeAlert    Mode = "alert"
	ModeDisabled Mode = "disabled"
)

const (
	AlertRefresh = "It is time to pay rent."
	AlertExpense = "It is time to pay rent. Submit your expense on the next month once rent has been paid."
)

type View struct {
	Mode  Mode
	Alert string
}

// SelectView picks what to render for a request.
func SelectView(state core.State, c Category, archive bool) View {
	switch {
	case archive:
		return View{Mode: ModeArchive}
	case state != core.StateDisabled:
		return View{Mode: ModeLedger}
	case c == CategoryRefresh:
		return View{Mode: ModeAlert, Alert: AlertRefresh}
	case c == CategoryExpense:
		return View{Mode: ModeAlert, Alert: AlertExpense}
	default:
		return View{Mode: ModeDisabled}
	}
}
