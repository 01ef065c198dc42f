// Package mongo implements the document-store flavor of the LedgerStore
// on MongoDB. It exists for deployments that keep the ledger in a
// document database rather than SQLite; both stores honor the same
// identity-key and counter semantics.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"contas/internal/backend"
	"contas/internal/core"
)

type Store struct {
	client      *mongo.Client
	entries     *mongo.Collection
	cards       *mongo.Collection
	accounts    *mongo.Collection
	definitions *mongo.Collection
}

var _ backend.LedgerStore = (*Store)(nil)

type entryDoc struct {
	ID               string `bson:"_id"`
	Date             string `bson:"date"`
	Description      string `bson:"description"`
	Category         string `bson:"category"`
	AmountCents      int64  `bson:"amountCents"`
	Type             string `bson:"type"`
	TargetKind       string `bson:"targetKind"`
	TargetID         string `bson:"targetId"`
	InstallmentIndex int    `bson:"installmentIndex"`
	InstallmentTotal int    `bson:"installmentTotal"`
	GroupID          string `bson:"groupId"`
	RecurringID      string `bson:"recurringId"`
	SyncStatus       string `bson:"syncStatus"`
	CreatedAt        int64  `bson:"createdAt"`
}

type cardDoc struct {
	ID                  string `bson:"_id"`
	Name                string `bson:"name"`
	StatementClosingDay int    `bson:"statementClosingDay"`
	LimitCents          int64  `bson:"limitCents"`
}

type accountDoc struct {
	ID                  string `bson:"_id"`
	Name                string `bson:"name"`
	OpeningBalanceCents int64  `bson:"openingBalanceCents"`
}

type definitionDoc struct {
	ID                      string   `bson:"_id"`
	StartDate               string   `bson:"startDate"`
	Frequency               string   `bson:"frequency"`
	TotalOccurrences        int      `bson:"totalOccurrences"`
	OccurrencesMaterialized int      `bson:"occurrencesMaterialized"`
	Card                    *cardDoc `bson:"card,omitempty"`
	Description             string   `bson:"description"`
	Category                string   `bson:"category"`
	AmountCents             int64    `bson:"amountCents"`
	Type                    string   `bson:"type"`
	TargetKind              string   `bson:"targetKind"`
	TargetID                string   `bson:"targetId"`
	CreatedAt               int64    `bson:"createdAt"`
}

// New connects to MongoDB and prepares the ledger collections, including
// the partial unique index that enforces the entry identity key.
func New(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{
		client:      client,
		entries:     db.Collection("entries"),
		cards:       db.Collection("cards"),
		accounts:    db.Collection("accounts"),
		definitions: db.Collection("recurring_definitions"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.entries.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "groupId", Value: 1}, {Key: "installmentIndex", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"groupId": bson.M{"$gt": ""}}),
	})
	if err != nil {
		return fmt.Errorf("create identity index: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) CreateEntries(ctx context.Context, drafts []core.EntryDraft) ([]core.Entry, error) {
	created := make([]core.Entry, 0, len(drafts))
	for _, d := range drafts {
		e := core.Entry{ID: uuid.NewString(), EntryDraft: d}
		_, err := s.entries.InsertOne(ctx, toEntryDoc(e))
		if mongo.IsDuplicateKeyError(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("insert entry: %w", err)
		}
		created = append(created, e)
	}
	return created, nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (core.Entry, error) {
	var doc entryDoc
	err := s.entries.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Entry{}, fmt.Errorf("entry %s: %w", id, backend.ErrNotFound)
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("find entry: %w", err)
	}
	return fromEntryDoc(doc)
}

func (s *Store) ListEntriesFrom(ctx context.Context, from core.Date) ([]core.Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "installmentIndex", Value: 1}})
	cursor, err := s.entries.Find(ctx, bson.M{"date": bson.M{"$gte": from.String()}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find entries: %w", err)
	}
	defer cursor.Close(ctx)

	var out []core.Entry
	for cursor.Next(ctx) {
		var doc entryDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode entry: %w", err)
		}
		e, err := fromEntryDoc(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, cursor.Err()
}

func (s *Store) CreateCard(ctx context.Context, c core.Card) (core.Card, error) {
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	doc := cardDoc{ID: c.ID, Name: c.Name, StatementClosingDay: c.StatementClosingDay, LimitCents: c.Limit.Cents}
	if _, err := s.cards.InsertOne(ctx, doc); err != nil {
		return core.Card{}, fmt.Errorf("insert card: %w", err)
	}
	return c, nil
}

func (s *Store) ListCards(ctx context.Context) ([]core.Card, error) {
	cursor, err := s.cards.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find cards: %w", err)
	}
	defer cursor.Close(ctx)

	var out []core.Card
	for cursor.Next(ctx) {
		var doc cardDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode card: %w", err)
		}
		out = append(out, core.Card{
			ID:                  doc.ID,
			Name:                doc.Name,
			StatementClosingDay: doc.StatementClosingDay,
			Limit:               core.Money{Cents: doc.LimitCents},
		})
	}
	return out, cursor.Err()
}

func (s *Store) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	doc := accountDoc{ID: a.ID, Name: a.Name, OpeningBalanceCents: a.OpeningBalance.Cents}
	if _, err := s.accounts.InsertOne(ctx, doc); err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	return a, nil
}

func (s *Store) ListAccounts(ctx context.Context) ([]core.Account, error) {
	cursor, err := s.accounts.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var out []core.Account
	for cursor.Next(ctx) {
		var doc accountDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		out = append(out, core.Account{
			ID:             doc.ID,
			Name:           doc.Name,
			OpeningBalance: core.Money{Cents: doc.OpeningBalanceCents},
		})
	}
	return out, cursor.Err()
}

func (s *Store) CreateRecurringDefinition(ctx context.Context, def core.RecurringDefinition) (core.RecurringDefinition, error) {
	if err := def.Validate(); err != nil {
		return core.RecurringDefinition{}, err
	}
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	if _, err := s.definitions.InsertOne(ctx, toDefinitionDoc(def)); err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("insert recurring definition: %w", err)
	}
	return def, nil
}

func (s *Store) GetRecurringDefinition(ctx context.Context, id string) (core.RecurringDefinition, error) {
	var doc definitionDoc
	err := s.definitions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.RecurringDefinition{}, fmt.Errorf("recurring definition %s: %w", id, backend.ErrNotFound)
	}
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("find recurring definition: %w", err)
	}
	return fromDefinitionDoc(doc)
}

func (s *Store) ListRecurringDefinitions(ctx context.Context) ([]core.RecurringDefinition, error) {
	cursor, err := s.definitions.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find recurring definitions: %w", err)
	}
	defer cursor.Close(ctx)

	var out []core.RecurringDefinition
	for cursor.Next(ctx) {
		var doc definitionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode recurring definition: %w", err)
		}
		def, err := fromDefinitionDoc(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, cursor.Err()
}

// SetOccurrencesMaterialized filters on both the id and the expected base
// count; a miss means another worker advanced the series first.
func (s *Store) SetOccurrencesMaterialized(ctx context.Context, id string, base, next int) error {
	res, err := s.definitions.UpdateOne(ctx,
		bson.M{"_id": id, "occurrencesMaterialized": base},
		bson.M{"$set": bson.M{"occurrencesMaterialized": next}})
	if err != nil {
		return fmt.Errorf("update materialized count: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetRecurringDefinition(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("recurring definition %s: %w", id, backend.ErrConcurrentModification)
	}
	return nil
}

func (s *Store) PendingSyncEntries(ctx context.Context, limit int) ([]core.Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cursor, err := s.entries.Find(ctx, bson.M{"syncStatus": "pending"}, opts)
	if err != nil {
		return nil, fmt.Errorf("find pending entries: %w", err)
	}
	defer cursor.Close(ctx)

	var out []core.Entry
	for cursor.Next(ctx) {
		var doc entryDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode entry: %w", err)
		}
		e, err := fromEntryDoc(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, cursor.Err()
}

func (s *Store) MarkSynced(ctx context.Context, id string) error {
	return s.setSyncStatus(ctx, id, "synced")
}

func (s *Store) MarkSyncError(ctx context.Context, id string) error {
	return s.setSyncStatus(ctx, id, "error")
}

func (s *Store) setSyncStatus(ctx context.Context, id, status string) error {
	res, err := s.entries.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"syncStatus": status}})
	if err != nil {
		return fmt.Errorf("set sync status: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("entry %s: %w", id, backend.ErrNotFound)
	}
	return nil
}

func toEntryDoc(e core.Entry) entryDoc {
	return entryDoc{
		ID:               e.ID,
		Date:             e.Date.String(),
		Description:      e.Description,
		Category:         e.Category,
		AmountCents:      e.Amount.Cents,
		Type:             string(e.Type),
		TargetKind:       string(e.Target.Kind),
		TargetID:         e.Target.ID,
		InstallmentIndex: e.InstallmentIndex,
		InstallmentTotal: e.InstallmentTotal,
		GroupID:          e.GroupID,
		RecurringID:      e.RecurringID,
		SyncStatus:       "pending",
		CreatedAt:        time.Now().Unix(),
	}
}

func fromEntryDoc(doc entryDoc) (core.Entry, error) {
	date, err := core.ParseDate(doc.Date)
	if err != nil {
		return core.Entry{}, err
	}
	return core.Entry{
		ID: doc.ID,
		EntryDraft: core.EntryDraft{
			Date:             date,
			Description:      doc.Description,
			Category:         doc.Category,
			Amount:           core.Money{Cents: doc.AmountCents},
			Type:             core.EntryType(doc.Type),
			Target:           core.LinkedTarget{Kind: core.TargetKind(doc.TargetKind), ID: doc.TargetID},
			InstallmentIndex: doc.InstallmentIndex,
			InstallmentTotal: doc.InstallmentTotal,
			GroupID:          doc.GroupID,
			RecurringID:      doc.RecurringID,
		},
	}, nil
}

func toDefinitionDoc(def core.RecurringDefinition) definitionDoc {
	doc := definitionDoc{
		ID:                      def.ID,
		StartDate:               def.StartDate.String(),
		Frequency:               string(def.Frequency),
		TotalOccurrences:        def.TotalOccurrences,
		OccurrencesMaterialized: def.OccurrencesMaterialized,
		Description:             def.Description,
		Category:                def.Category,
		AmountCents:             def.Amount.Cents,
		Type:                    string(def.Type),
		TargetKind:              string(def.Target.Kind),
		TargetID:                def.Target.ID,
		CreatedAt:               time.Now().Unix(),
	}
	if def.Card != nil {
		doc.Card = &cardDoc{
			ID:                  def.Card.ID,
			Name:                def.Card.Name,
			StatementClosingDay: def.Card.StatementClosingDay,
			LimitCents:          def.Card.Limit.Cents,
		}
	}
	return doc
}

func fromDefinitionDoc(doc definitionDoc) (core.RecurringDefinition, error) {
	start, err := core.ParseDate(doc.StartDate)
	if err != nil {
		return core.RecurringDefinition{}, err
	}
	def := core.RecurringDefinition{
		ID:                      doc.ID,
		StartDate:               start,
		Frequency:               core.Frequency(doc.Frequency),
		TotalOccurrences:        doc.TotalOccurrences,
		OccurrencesMaterialized: doc.OccurrencesMaterialized,
		Description:             doc.Description,
		Category:                doc.Category,
		Amount:                  core.Money{Cents: doc.AmountCents},
		Type:                    core.EntryType(doc.Type),
		Target:                  core.LinkedTarget{Kind: core.TargetKind(doc.TargetKind), ID: doc.TargetID},
	}
	if doc.Card != nil {
		def.Card = &core.Card{
			ID:                  doc.Card.ID,
			Name:                doc.Card.Name,
			StatementClosingDay: doc.Card.StatementClosingDay,
			Limit:               core.Money{Cents: doc.Card.LimitCents},
		}
	}
	return def, nil
}
