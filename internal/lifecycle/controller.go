// Package lifecycle owns the active ledger: it gates expense mutations on the
// active/disabled state, closes a month by archiving it, and opens the next.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"rentsplit/internal/core"
	"rentsplit/internal/events"
)

// Store persists the server state and the ledgers.
type Store interface {
	LoadServer(ctx context.Context) (core.ServerState, error)
	SaveServer(ctx context.Context, st core.ServerState) error
	LoadActive(ctx context.Context) (core.Ledger, error)
	SaveActive(ctx context.Context, l core.Ledger) error
	ArchiveActive(ctx context.Context, name string) error
	LoadTemplate(ctx context.Context) (core.Ledger, error)
	LoadArchive(ctx context.Context, name string) (core.Ledger, error)
	ListArchives(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// Outcome is the ledger after an operation, with derived fields computed.
// Applied is false when the operation was a no-op for the current state.
type Outcome struct {
	Ledger  core.Ledger
	State   core.State
	Applied bool
	// Archived is the archive name written by a rollover.
	Archived string
}

// ExpenseInput is a submitted expense before validation.
type ExpenseInput struct {
	WhoPaid     string
	Amount      core.Money
	Portions    map[string]core.Money
	Date        core.Date
	Description string
}

type Option func(*Controller)

// WithClock overrides time.Now, used to date new ledgers.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Controller serializes every read-modify-write of the server state and the
// active ledger behind one mutex.
type Controller struct {
	store    Store
	recorder events.Recorder
	now      func() time.Time

	mu    sync.Mutex
	state core.ServerState
}

// New loads the server state, seeding it from seed when none is stored, and
// makes sure an active ledger exists.
func New(ctx context.Context, store Store, recorder events.Recorder, seed []core.Housemate, opts ...Option) (*Controller, error) {
	if recorder == nil {
		recorder = events.Discard
	}
	c := &Controller{store: store, recorder: recorder, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	st, err := store.LoadServer(ctx)
	if core.IsNotFound(err) && len(seed) > 0 {
		st = core.ServerState{State: core.StateActive, Mates: append([]core.Housemate(nil), seed...)}
		if err := st.Validate(); err != nil {
			return nil, fmt.Errorf("seed housemates: %w", err)
		}
		if err := store.SaveServer(ctx, st); err != nil {
			return nil, fmt.Errorf("save seeded server state: %w", err)
		}
		slog.InfoContext(ctx, "Seeded server state", "mates", len(st.Mates))
	} else if err != nil {
		return nil, fmt.Errorf("load server state: %w", err)
	}
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("server state: %w", err)
	}
	c.state = st

	if _, err := store.LoadActive(ctx); core.IsNotFound(err) {
		l, err := store.LoadTemplate(ctx)
		if err != nil {
			return nil, fmt.Errorf("load template: %w", err)
		}
		l = l.Source()
		l.Date = core.MonthOf(c.now())
		if err := store.SaveActive(ctx, l); err != nil {
			return nil, fmt.Errorf("create active ledger: %w", err)
		}
		slog.InfoContext(ctx, "Created active ledger", "month", l.Date.String())
	} else if err != nil {
		return nil, fmt.Errorf("load active ledger: %w", err)
	}
	return c, nil
}

func (c *Controller) State() core.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.State
}

// Mates returns the housemates in configuration order.
func (c *Controller) Mates() []core.Housemate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.Housemate(nil), c.state.Mates...)
}

// Snapshot returns the computed active ledger with the current state.
func (c *Controller) Snapshot(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, err := c.store.LoadActive(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("load active ledger: %w", err)
	}
	return c.unchanged(l)
}

// AddExpense validates in and appends it to the active ledger.
func (c *Controller) AddExpense(ctx context.Context, in ExpenseInput) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, err := c.store.LoadActive(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("load active ledger: %w", err)
	}
	if c.state.State != core.StateActive {
		return c.unchanged(l)
	}

	e, err := core.NewExpense(c.state.Mates, in.WhoPaid, in.Amount, in.Portions, in.Date, in.Description)
	if err != nil {
		return Outcome{}, err
	}
	l = l.Source()
	e.ID = l.NextID()
	l.List = append(l.List, e)

	if err := c.store.SaveActive(ctx, l); err != nil {
		return Outcome{}, fmt.Errorf("save active ledger: %w", err)
	}
	c.recorder.Record(events.New(
		events.WithType(events.TypeExpenseAdded),
		events.WithMonth(l.Date.String()),
		events.WithData("id", strconv.FormatInt(e.ID, 10)),
		events.WithData("whoPaid", e.WhoPaid),
		events.WithData("amount", e.Amount.String()),
	))
	return c.applied(l)
}

// DeleteExpense soft-deletes the expense with the given id.
func (c *Controller) DeleteExpense(ctx context.Context, id int64) (Outcome, error) {
	return c.setDeleted(ctx, byID(id), true)
}

// UndoExpense restores a soft-deleted expense.
func (c *Controller) UndoExpense(ctx context.Context, id int64) (Outcome, error) {
	return c.setDeleted(ctx, byID(id), false)
}

// DeleteAt soft-deletes the expense at a position of the stored list.
func (c *Controller) DeleteAt(ctx context.Context, index int) (Outcome, error) {
	return c.setDeleted(ctx, at(index), true)
}

// UndoAt restores the expense at a position of the stored list.
func (c *Controller) UndoAt(ctx context.Context, index int) (Outcome, error) {
	return c.setDeleted(ctx, at(index), false)
}

// locator finds an expense's position in the stored list.
type locator func(core.Ledger) (int, error)

func byID(id int64) locator {
	return func(l core.Ledger) (int, error) {
		i, ok := l.Find(id)
		if !ok {
			return -1, &core.NotFoundError{Kind: "expense", Key: strconv.FormatInt(id, 10)}
		}
		return i, nil
	}
}

func at(index int) locator {
	return func(l core.Ledger) (int, error) {
		if index < 0 || index >= len(l.List) {
			return -1, &core.NotFoundError{Kind: "expense index", Key: strconv.Itoa(index)}
		}
		return index, nil
	}
}

func (c *Controller) setDeleted(ctx context.Context, locate locator, deleted bool) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, err := c.store.LoadActive(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("load active ledger: %w", err)
	}
	if c.state.State != core.StateActive {
		return c.unchanged(l)
	}

	i, err := locate(l)
	if err != nil {
		return Outcome{}, err
	}
	id := l.List[i].ID
	if l.List[i].Deleted == deleted {
		return c.unchanged(l)
	}

	l = l.Source()
	l.List[i].Deleted = deleted
	if err := c.store.SaveActive(ctx, l); err != nil {
		return Outcome{}, fmt.Errorf("save active ledger: %w", err)
	}
	typ := events.TypeExpenseDeleted
	if !deleted {
		typ = events.TypeExpenseRestored
	}
	c.recorder.Record(events.New(
		events.WithType(typ),
		events.WithMonth(l.Date.String()),
		events.WithData("id", strconv.FormatInt(id, 10)),
	))
	return c.applied(l)
}

// Disable moves active to disabled. Already disabled is a no-op.
func (c *Controller) Disable(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, err := c.store.LoadActive(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("load active ledger: %w", err)
	}
	if c.state.State == core.StateDisabled {
		return c.unchanged(l)
	}
	if err := c.setState(ctx, core.StateDisabled); err != nil {
		return Outcome{}, err
	}
	c.recorder.Record(events.New(events.WithType(events.TypeLedgerDisabled), events.WithMonth(l.Date.String())))
	return c.applied(l)
}

// Resume sets the state to active regardless of the current one. The ledger
// is not touched.
func (c *Controller) Resume(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, err := c.store.LoadActive(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("load active ledger: %w", err)
	}
	if err := c.setState(ctx, core.StateActive); err != nil {
		return Outcome{}, err
	}
	c.recorder.Record(events.New(events.WithType(events.TypeLedgerResumed), events.WithMonth(l.Date.String())))
	return c.applied(l)
}

// Rollover closes a disabled month: the final balances are written into the
// active ledger, it is archived under its label, and a blank ledger for the
// next month becomes active. Outside the disabled state it is a no-op.
func (c *Controller) Rollover(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, err := c.store.LoadActive(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("load active ledger: %w", err)
	}
	if c.state.State != core.StateDisabled {
		return c.unchanged(l)
	}

	closed, err := core.Compute(l, c.state.Mates)
	if err != nil {
		return Outcome{}, err
	}
	if closed.Date.IsZero() {
		closed.Date = core.MonthOf(c.now())
	}
	if err := c.store.SaveActive(ctx, closed); err != nil {
		return Outcome{}, fmt.Errorf("save final balances: %w", err)
	}
	name := closed.Date.Label()
	if err := c.store.ArchiveActive(ctx, name); err != nil {
		return Outcome{}, fmt.Errorf("archive %s: %w", name, err)
	}

	next, err := c.store.LoadTemplate(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("load template: %w", err)
	}
	next = next.Source()
	next.Date = closed.Date.Next()
	if err := c.store.SaveActive(ctx, next); err != nil {
		return Outcome{}, fmt.Errorf("save new active ledger: %w", err)
	}
	if err := c.setState(ctx, core.StateActive); err != nil {
		return Outcome{}, err
	}

	slog.InfoContext(ctx, "Rolled over ledger", "archived", name, "month", next.Date.String())
	c.recorder.Record(events.New(
		events.WithType(events.TypeLedgerRolled),
		events.WithMonth(closed.Date.String()),
		events.WithData("archive", name),
		events.WithData("next", next.Date.String()),
	))
	out, err := c.applied(next)
	out.Archived = name
	return out, err
}

// Archive returns a computed archived ledger. Balances use the current
// housemates.
func (c *Controller) Archive(ctx context.Context, name string) (core.Ledger, error) {
	l, err := c.store.LoadArchive(ctx, name)
	if err != nil {
		return core.Ledger{}, err
	}
	return core.Compute(l, c.Mates())
}

func (c *Controller) Archives(ctx context.Context) ([]string, error) {
	return c.store.ListArchives(ctx)
}

func (c *Controller) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// setState persists a new state, keeping the old one in memory if the
// write fails. Callers hold mu.
func (c *Controller) setState(ctx context.Context, s core.State) error {
	next := c.state
	next.State = s
	if err := c.store.SaveServer(ctx, next); err != nil {
		return fmt.Errorf("save server state: %w", err)
	}
	c.state = next
	return nil
}

func (c *Controller) unchanged(l core.Ledger) (Outcome, error) {
	computed, err := core.Compute(l, c.state.Mates)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Ledger: computed, State: c.state.State}, nil
}

func (c *Controller) applied(l core.Ledger) (Outcome, error) {
	computed, err := core.Compute(l, c.state.Mates)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Ledger: computed, State: c.state.State, Applied: true}, nil
}
