// Package backend defines the ledger store contract shared by the memory,
// SQLite and MongoDB implementations under internal/storage.
package backend

import (
	"context"
	"errors"

	"contas/internal/core"
)

var (
	// ErrNotFound is returned when a card, account, entry or recurring
	// definition does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentModification is returned by SetOccurrencesMaterialized
	// when the stored counter no longer matches the base value the caller
	// read. The caller must re-fetch the definition and retry.
	ErrConcurrentModification = errors.New("recurring definition modified concurrently")
)

// LedgerStore persists and queries ledger data. Implementations must
// reject duplicate entries by identity key (GroupID, InstallmentIndex):
// re-submitting an already-persisted draft is silently skipped, so a
// retried batch insert never double-books.
type LedgerStore interface {
	// CreateEntries persists the drafts and returns the entries that were
	// actually created. Drafts whose identity key already exists are
	// skipped, not errors.
	CreateEntries(ctx context.Context, drafts []core.EntryDraft) ([]core.Entry, error)
	GetEntry(ctx context.Context, id string) (core.Entry, error)
	// ListEntriesFrom returns entries dated on or after from, ordered by
	// date ascending.
	ListEntriesFrom(ctx context.Context, from core.Date) ([]core.Entry, error)

	CreateCard(ctx context.Context, c core.Card) (core.Card, error)
	ListCards(ctx context.Context) ([]core.Card, error)
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	ListAccounts(ctx context.Context) ([]core.Account, error)

	CreateRecurringDefinition(ctx context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error)
	GetRecurringDefinition(ctx context.Context, id string) (core.RecurringDefinition, error)
	ListRecurringDefinitions(ctx context.Context) ([]core.RecurringDefinition, error)
	// SetOccurrencesMaterialized advances the materialized counter from
	// base to next as a conditional write. If the stored value is no
	// longer base, it fails with ErrConcurrentModification and writes
	// nothing.
	SetOccurrencesMaterialized(ctx context.Context, id string, base, next int) error

	// Sync bookkeeping for the export worker.
	PendingSyncEntries(ctx context.Context, limit int) ([]core.Entry, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error

	Close() error
}
