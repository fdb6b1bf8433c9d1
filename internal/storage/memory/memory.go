// Package memory is an in-process ledger store for demo mode and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"rentsplit/internal/core"
)

type Store struct {
	mu       sync.Mutex
	server   *core.ServerState
	active   *core.Ledger
	template core.Ledger
	archives map[string]core.Ledger
}

// New seeds the store with a server state and an active ledger.
func New(server core.ServerState, active core.Ledger) *Store {
	s := &Store{
		template: core.Ledger{List: []core.Expense{}},
		archives: make(map[string]core.Ledger),
	}
	srv := cloneServer(server)
	s.server = &srv
	a := cloneLedger(active)
	a.Normalize()
	s.active = &a
	return s
}

func (s *Store) LoadServer(_ context.Context) (core.ServerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return core.ServerState{}, &core.NotFoundError{Kind: "server state", Key: "memory"}
	}
	return cloneServer(*s.server), nil
}

func (s *Store) SaveServer(_ context.Context, st core.ServerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cloneServer(st)
	s.server = &c
	return nil
}

func (s *Store) LoadActive(_ context.Context) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return core.Ledger{}, &core.NotFoundError{Kind: "ledger", Key: "active"}
	}
	return cloneLedger(*s.active), nil
}

func (s *Store) SaveActive(_ context.Context, l core.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := cloneLedger(l)
	s.active = &c
	return nil
}

func (s *Store) ArchiveActive(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return &core.NotFoundError{Kind: "ledger", Key: "active"}
	}
	s.archives[name] = cloneLedger(*s.active)
	return nil
}

func (s *Store) LoadTemplate(_ context.Context) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneLedger(s.template), nil
}

func (s *Store) LoadArchive(_ context.Context, name string) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.archives[name]
	if !ok {
		return core.Ledger{}, &core.NotFoundError{Kind: "archive", Key: name}
	}
	return cloneLedger(l), nil
}

func (s *Store) ListArchives(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.archives))
	for n := range s.archives {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Ping(_ context.Context) error { return nil }

func cloneServer(st core.ServerState) core.ServerState {
	st.Mates = append([]core.Housemate(nil), st.Mates...)
	return st
}

// cloneLedger deep-copies l, derived fields included.
func cloneLedger(l core.Ledger) core.Ledger {
	out := l.Source()
	if l.BaseRent != nil {
		out.BaseRent = copyMap(l.BaseRent)
	}
	if l.BalancedRent != nil {
		out.BalancedRent = copyMap(l.BalancedRent)
	}
	if l.TotalRent != nil {
		t := *l.TotalRent
		out.TotalRent = &t
	}
	return out
}

func copyMap(m map[string]core.Money) map[string]core.Money {
	out := make(map[string]core.Money, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
