// Package storage implements the SQLite-backed LedgerStore.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"contas/internal/backend"
	"contas/internal/core"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ backend.LedgerStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const insertEntrySQL = `
INSERT OR IGNORE INTO entries (
    id, entry_date, description, category, amount_cents, entry_type,
    target_kind, target_id, installment_index, installment_total,
    group_id, recurring_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// CreateEntries persists drafts inside one transaction. INSERT OR IGNORE
// plus the partial unique index on (group_id, installment_index) makes a
// retried batch a no-op for the rows that already landed.
func (r *SQLiteRepository) CreateEntries(ctx context.Context, drafts []core.EntryDraft) ([]core.Entry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	created := make([]core.Entry, 0, len(drafts))
	for _, d := range drafts {
		e := core.Entry{ID: uuid.NewString(), EntryDraft: d}
		res, err := tx.ExecContext(ctx, insertEntrySQL,
			e.ID, d.Date.String(), d.Description, d.Category, d.Amount.Cents,
			string(d.Type), string(d.Target.Kind), d.Target.ID,
			d.InstallmentIndex, d.InstallmentTotal, d.GroupID, d.RecurringID)
		if err != nil {
			return nil, fmt.Errorf("insert entry: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			slog.InfoContext(ctx, "Skipped duplicate entry",
				"group_id", d.GroupID,
				"installment_index", d.InstallmentIndex)
			continue
		}
		created = append(created, e)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit entries: %w", err)
	}
	return created, nil
}

const selectEntrySQL = `
SELECT id, entry_date, description, category, amount_cents, entry_type,
       target_kind, target_id, installment_index, installment_total,
       group_id, recurring_id
FROM entries`

func (r *SQLiteRepository) GetEntry(ctx context.Context, id string) (core.Entry, error) {
	row := r.db.QueryRowContext(ctx, selectEntrySQL+" WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, fmt.Errorf("entry %s: %w", id, backend.ErrNotFound)
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListEntriesFrom(ctx context.Context, from core.Date) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		selectEntrySQL+" WHERE entry_date >= ? ORDER BY entry_date ASC, installment_index ASC",
		from.String())
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (core.Entry, error) {
	var (
		e     core.Entry
		date  string
		etype string
		tkind string
	)
	err := row.Scan(&e.ID, &date, &e.Description, &e.Category, &e.Amount.Cents,
		&etype, &tkind, &e.Target.ID, &e.InstallmentIndex, &e.InstallmentTotal,
		&e.GroupID, &e.RecurringID)
	if err != nil {
		return core.Entry{}, err
	}
	e.Date, err = core.ParseDate(date)
	if err != nil {
		return core.Entry{}, err
	}
	e.Type = core.EntryType(etype)
	e.Target.Kind = core.TargetKind(tkind)
	return e, nil
}

func (r *SQLiteRepository) CreateCard(ctx context.Context, c core.Card) (core.Card, error) {
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO cards (id, name, statement_closing_day, limit_cents) VALUES (?, ?, ?, ?)",
		c.ID, c.Name, c.StatementClosingDay, c.Limit.Cents)
	if err != nil {
		return core.Card{}, fmt.Errorf("create card: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCards(ctx context.Context) ([]core.Card, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, statement_closing_day, limit_cents FROM cards ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var out []core.Card
	for rows.Next() {
		var c core.Card
		if err := rows.Scan(&c.ID, &c.Name, &c.StatementClosingDay, &c.Limit.Cents); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO accounts (id, name, opening_balance_cents) VALUES (?, ?, ?)",
		a.ID, a.Name, a.OpeningBalance.Cents)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, opening_balance_cents FROM accounts ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.OpeningBalance.Cents); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateRecurringDefinition(ctx context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error) {
	if err := def.Validate(); err != nil {
		return core.RecurringDefinition{}, err
	}
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	var cardID sql.NullString
	if def.Card != nil {
		cardID = sql.NullString{String: def.Card.ID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO recurring_definitions (
    id, start_date, frequency, total_occurrences, occurrences_materialized,
    card_id, description, category, amount_cents, entry_type, target_kind, target_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		def.ID, def.StartDate.String(), string(def.Frequency),
		def.TotalOccurrences, def.OccurrencesMaterialized, cardID,
		def.Description, def.Category, def.Amount.Cents,
		string(def.Type), string(def.Target.Kind), def.Target.ID)
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("create recurring definition: %w", err)
	}
	return def, nil
}

const selectDefinitionSQL = `
SELECT d.id, d.start_date, d.frequency, d.total_occurrences, d.occurrences_materialized,
       d.description, d.category, d.amount_cents, d.entry_type, d.target_kind, d.target_id,
       c.id, c.name, c.statement_closing_day, c.limit_cents
FROM recurring_definitions d
LEFT JOIN cards c ON c.id = d.card_id`

func (r *SQLiteRepository) GetRecurringDefinition(ctx context.Context, id string) (core.RecurringDefinition, error) {
	row := r.db.QueryRowContext(ctx, selectDefinitionSQL+" WHERE d.id = ?", id)
	def, err := scanDefinition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringDefinition{}, fmt.Errorf("recurring definition %s: %w", id, backend.ErrNotFound)
	}
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("get recurring definition: %w", err)
	}
	return def, nil
}

func (r *SQLiteRepository) ListRecurringDefinitions(ctx context.Context) ([]core.RecurringDefinition, error) {
	rows, err := r.db.QueryContext(ctx, selectDefinitionSQL+" ORDER BY d.created_at")
	if err != nil {
		return nil, fmt.Errorf("list recurring definitions: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring definition: %w", err)
		}
		out = append(out, def)
	}
	return out, rows.Err()
}

func scanDefinition(row rowScanner) (core.RecurringDefinition, error) {
	var (
		def       core.RecurringDefinition
		startDate string
		frequency string
		etype     string
		tkind     string
		cardID    sql.NullString
		cardName  sql.NullString
		cardDay   sql.NullInt64
		cardLimit sql.NullInt64
	)
	err := row.Scan(&def.ID, &startDate, &frequency, &def.TotalOccurrences,
		&def.OccurrencesMaterialized, &def.Description, &def.Category,
		&def.Amount.Cents, &etype, &tkind, &def.Target.ID,
		&cardID, &cardName, &cardDay, &cardLimit)
	if err != nil {
		return core.RecurringDefinition{}, err
	}
	def.StartDate, err = core.ParseDate(startDate)
	if err != nil {
		return core.RecurringDefinition{}, err
	}
	def.Frequency = core.Frequency(frequency)
	def.Type = core.EntryType(etype)
	def.Target.Kind = core.TargetKind(tkind)
	if cardID.Valid {
		def.Card = &core.Card{
			ID:                  cardID.String,
			Name:                cardName.String,
			StatementClosingDay: int(cardDay.Int64),
			Limit:               core.Money{Cents: cardLimit.Int64},
		}
	}
	return def, nil
}

// SetOccurrencesMaterialized is a conditional write: the UPDATE only
// matches while the stored counter still equals base, which is the
// optimistic-concurrency guard against two workers generating the same
// batch.
func (r *SQLiteRepository) SetOccurrencesMaterialized(ctx context.Context, id string, base, next int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE recurring_definitions SET occurrences_materialized = ? WHERE id = ? AND occurrences_materialized = ?",
		next, id, base)
	if err != nil {
		return fmt.Errorf("update materialized count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		if _, err := r.GetRecurringDefinition(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("recurring definition %s: %w", id, backend.ErrConcurrentModification)
	}
	return nil
}

func (r *SQLiteRepository) PendingSyncEntries(ctx context.Context, limit int) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		selectEntrySQL+" WHERE sync_status = 'pending' ORDER BY created_at ASC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("pending sync entries: %w", err)
	}
	defer rows.Close()

	var out []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	if err := r.setSyncStatus(ctx, id, "synced"); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Entry marked as synced", "id", id)
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	if err := r.setSyncStatus(ctx, id, "error"); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Entry marked with sync error", "id", id)
	return nil
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE entries SET sync_status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("entry %s: %w", id, backend.ErrNotFound)
	}
	return nil
}
