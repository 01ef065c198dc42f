// Package memory provides an in-memory LedgerStore. It backs tests and
// the default zero-configuration setup; nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"contas/internal/backend"
	"contas/internal/core"
)

type syncState int

const (
	syncPending syncState = iota
	syncDone
	syncFailed
)

type Store struct {
	mu          sync.Mutex
	entries     map[string]core.Entry
	entrySync   map[string]syncState
	identity    map[string]string // (groupID, installmentIndex) -> entry id
	cards       map[string]core.Card
	accounts    map[string]core.Account
	definitions map[string]core.RecurringDefinition
	order       []string // entry ids in insertion order
}

var _ backend.LedgerStore = (*Store)(nil)

func New() *Store {
	return &Store{
		entries:     make(map[string]core.Entry),
		entrySync:   make(map[string]syncState),
		identity:    make(map[string]string),
		cards:       make(map[string]core.Card),
		accounts:    make(map[string]core.Account),
		definitions: make(map[string]core.RecurringDefinition),
	}
}

func identityKey(groupID string, index int) string {
	return fmt.Sprintf("%s#%d", groupID, index)
}

func (s *Store) CreateEntries(_ context.Context, drafts []core.EntryDraft) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := make([]core.Entry, 0, len(drafts))
	for _, d := range drafts {
		if d.GroupID != "" {
			key := identityKey(d.GroupID, d.InstallmentIndex)
			if _, dup := s.identity[key]; dup {
				continue
			}
			s.identity[key] = ""
		}
		e := core.Entry{ID: uuid.NewString(), EntryDraft: d}
		s.entries[e.ID] = e
		s.entrySync[e.ID] = syncPending
		s.order = append(s.order, e.ID)
		if d.GroupID != "" {
			s.identity[identityKey(d.GroupID, d.InstallmentIndex)] = e.ID
		}
		created = append(created, e)
	}
	return created, nil
}

func (s *Store) GetEntry(_ context.Context, id string) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return core.Entry{}, fmt.Errorf("entry %s: %w", id, backend.ErrNotFound)
	}
	return e, nil
}

func (s *Store) ListEntriesFrom(_ context.Context, from core.Date) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Entry
	for _, id := range s.order {
		e := s.entries[id]
		if e.Date.Before(from) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Compare(out[j].Date) < 0
	})
	return out, nil
}

func (s *Store) CreateCard(_ context.Context, c core.Card) (core.Card, error) {
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.cards[c.ID] = c
	return c, nil
}

func (s *Store) ListCards(_ context.Context) ([]core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Card, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) ListAccounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateRecurringDefinition(_ context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error) {
	if err := def.Validate(); err != nil {
		return core.RecurringDefinition{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	s.definitions[def.ID] = def
	return def, nil
}

func (s *Store) GetRecurringDefinition(_ context.Context, id string) (core.RecurringDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.definitions[id]
	if !ok {
		return core.RecurringDefinition{}, fmt.Errorf("recurring definition %s: %w", id, backend.ErrNotFound)
	}
	return def, nil
}

func (s *Store) ListRecurringDefinitions(_ context.Context) ([]core.RecurringDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.RecurringDefinition, 0, len(s.definitions))
	for _, d := range s.definitions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SetOccurrencesMaterialized(_ context.Context, id string, base, next int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.definitions[id]
	if !ok {
		return fmt.Errorf("recurring definition %s: %w", id, backend.ErrNotFound)
	}
	if def.OccurrencesMaterialized != base {
		return fmt.Errorf("stored count %d, expected %d: %w",
			def.OccurrencesMaterialized, base, backend.ErrConcurrentModification)
	}
	def.OccurrencesMaterialized = next
	s.definitions[id] = def
	return nil
}

func (s *Store) PendingSyncEntries(_ context.Context, limit int) ([]core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Entry
	for _, id := range s.order {
		if s.entrySync[id] != syncPending {
			continue
		}
		out = append(out, s.entries[id])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkSynced(_ context.Context, id string) error {
	return s.setSyncState(id, syncDone)
}

func (s *Store) MarkSyncError(_ context.Context, id string) error {
	return s.setSyncState(id, syncFailed)
}

func (s *Store) setSyncState(id string, state syncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("entry %s: %w", id, backend.ErrNotFound)
	}
	s.entrySync[id] = state
	return nil
}

func (s *Store) Close() error {
	return nil
}
