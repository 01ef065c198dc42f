package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"contas/internal/amqp"
	"contas/internal/backend"
	"contas/internal/cache"
	"contas/internal/core"
)

// LedgerService orchestrates series expansion, persistence and the sync
// pipeline. Expansion itself is pure; this service owns the effectful
// steps around it: store writes, registry updates and AMQP publishing.
type LedgerService struct {
	store     backend.LedgerStore
	amqp      *amqp.Client
	registry  *SeriesRegistry
	cards     *cache.LRUCache[core.Card]
	cacheMgr  *cache.Manager
	batchSize int
}

func NewLedgerService(store backend.LedgerStore, amqpClient *amqp.Client, batchSize int) *LedgerService {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}

	cards := cache.NewLRUCache[core.Card](64, 5*time.Minute)
	mgr := cache.NewManager()
	mgr.Register(cards)
	mgr.StartCleanup(time.Minute)

	return &LedgerService{
		store:     store,
		amqp:      amqpClient,
		registry:  NewSeriesRegistry(store),
		cards:     cards,
		cacheMgr:  mgr,
		batchSize: batchSize,
	}
}

func (s *LedgerService) Registry() *SeriesRegistry {
	return s.registry
}

// CardByID looks a card up through a short-lived cache. Generation sweeps
// touch the same few cards over and over.
func (s *LedgerService) CardByID(ctx context.Context, id string) (core.Card, error) {
	if card, ok := s.cards.Get(id); ok {
		return card, nil
	}

	cards, err := s.store.ListCards(ctx)
	if err != nil {
		return core.Card{}, fmt.Errorf("list cards: %w", err)
	}
	for _, c := range cards {
		s.cards.Set(c.ID, c)
	}

	card, ok := s.cards.Get(id)
	if !ok {
		return core.Card{}, fmt.Errorf("card %s: %w", id, backend.ErrNotFound)
	}
	return card, nil
}

// PreviewInstallments expands a plan without persisting anything, for
// confirmation before commit. A missing group id is filled in with a
// throwaway one; the real id is assigned on creation.
func (s *LedgerService) PreviewInstallments(ctx context.Context, plan core.InstallmentPlan) ([]core.EntryDraft, error) {
	if plan.GroupID == "" {
		plan.GroupID = uuid.NewString()
	}
	if err := s.attachPlanCard(ctx, &plan); err != nil {
		return nil, err
	}
	return ExpandInstallments(plan)
}

// CreateInstallmentPurchase expands the plan and persists every
// installment. The group id is generated once here and shared by all of
// them, so a retried call cannot double-book.
func (s *LedgerService) CreateInstallmentPurchase(ctx context.Context, plan core.InstallmentPlan) ([]core.Entry, error) {
	if plan.GroupID == "" {
		plan.GroupID = uuid.NewString()
	}
	if err := s.attachPlanCard(ctx, &plan); err != nil {
		return nil, err
	}

	drafts, err := ExpandInstallments(plan)
	if err != nil {
		return nil, err
	}

	created, err := s.store.CreateEntries(ctx, drafts)
	if err != nil {
		return nil, fmt.Errorf("persist installments: %w", err)
	}

	slog.InfoContext(ctx, "Created installment purchase",
		"group_id", plan.GroupID,
		"installments", plan.TotalInstallments,
		"created", len(created))

	s.publishEntries(ctx, created)
	return created, nil
}

// CreateRecurringObligation stores a new recurring definition and
// materializes its first batch of occurrences.
func (s *LedgerService) CreateRecurringObligation(ctx context.Context, def core.RecurringDefinition) ([]core.Entry, error) {
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	// A fresh series starts from zero regardless of what the caller set.
	def.OccurrencesMaterialized = 0

	if err := s.attachDefinitionCard(ctx, &def); err != nil {
		return nil, err
	}

	def, err := s.store.CreateRecurringDefinition(ctx, def)
	if err != nil {
		return nil, fmt.Errorf("persist recurring definition: %w", err)
	}

	return s.generateBatch(ctx, def)
}

// GenerateNextBatch resumes generation for an existing series. An
// exhausted series returns zero entries, not an error. On
// ErrConcurrentModification the caller re-fetches and retries.
func (s *LedgerService) GenerateNextBatch(ctx context.Context, defID string) ([]core.Entry, error) {
	def, err := s.store.GetRecurringDefinition(ctx, defID)
	if err != nil {
		return nil, err
	}
	if err := s.attachDefinitionCard(ctx, &def); err != nil {
		return nil, err
	}
	return s.generateBatch(ctx, def)
}

func (s *LedgerService) generateBatch(ctx context.Context, def core.RecurringDefinition) ([]core.Entry, error) {
	drafts, err := ExpandRecurrence(def, s.batchSize)
	if err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		slog.InfoContext(ctx, "Recurring series exhausted", "definition_id", def.ID)
		return nil, nil
	}

	created, err := s.store.CreateEntries(ctx, drafts)
	if err != nil {
		return nil, fmt.Errorf("persist recurrence batch: %w", err)
	}

	// Advance by positions expanded, not rows inserted. Drafts skipped as
	// duplicates came from a run that died before its counter update; this
	// run counts those positions for it.
	if err := s.registry.RecordMaterialized(ctx, def, len(drafts)); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Generated recurrence batch",
		"definition_id", def.ID,
		"expanded", len(drafts),
		"created", len(created))

	s.publishEntries(ctx, created)
	return created, nil
}

// UpcomingCardProjections groups future entries into per-card statement
// previews.
func (s *LedgerService) UpcomingCardProjections(ctx context.Context, from core.Date) ([]core.CardProjection, error) {
	cards, err := s.store.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	entries, err := s.store.ListEntriesFrom(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return core.ProjectCards(cards, entries, from), nil
}

func (s *LedgerService) attachPlanCard(ctx context.Context, plan *core.InstallmentPlan) error {
	if plan.Card != nil || plan.Target.Kind != core.TargetCard {
		return nil
	}
	card, err := s.CardByID(ctx, plan.Target.ID)
	if err != nil {
		return err
	}
	plan.Card = &card
	return nil
}

func (s *LedgerService) attachDefinitionCard(ctx context.Context, def *core.RecurringDefinition) error {
	if def.Card != nil || def.Target.Kind != core.TargetCard {
		return nil
	}
	card, err := s.CardByID(ctx, def.Target.ID)
	if err != nil {
		return err
	}
	def.Card = &card
	return nil
}

// publishEntries is best effort. Entries are saved locally either way; the
// sync worker also sweeps for pending entries the broker never announced.
func (s *LedgerService) publishEntries(ctx context.Context, entries []core.Entry) {
	if s.amqp == nil {
		if len(entries) > 0 {
			slog.WarnContext(ctx, "AMQP client not available, skipping sync messages")
		}
		return
	}
	for _, e := range entries {
		if err := s.amqp.PublishEntrySync(ctx, e.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync message",
				"entry_id", e.ID, "error", err)
		}
	}
}

// Close closes both the store and the AMQP connection.
func (s *LedgerService) Close() error {
	var errs []error

	if s.cacheMgr != nil {
		s.cacheMgr.Stop()
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if s.amqp != nil {
		if err := s.amqp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}
