package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Monthly    Frequency = "monthly"
	Bimonthly  Frequency = "bimonthly"
	Quarterly  Frequency = "quarterly"
	Semiannual Frequency = "semiannual"
	Annual     Frequency = "annual"
)

// MaxInstallments caps how far a single purchase can be split.
const MaxInstallments = 60

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

const (
	TargetAccount TargetKind = "account"
	TargetCard    TargetKind = "card"
)

type (
	Frequency  string
	EntryType  string
	TargetKind string

	// LinkedTarget names the account or card an entry is charged to.
	// The kind is decided once when the entry is created, never re-derived
	// by scanning the card list.
	LinkedTarget struct {
		Kind TargetKind
		ID   string
	}

	// Card is a credit line whose monthly statement closes on
	// StatementClosingDay. Charges after that day post to the next cycle.
	Card struct {
		ID                  string
		Name                string
		StatementClosingDay int
		Limit               Money
	}

	Account struct {
		ID             string
		Name           string
		OpeningBalance Money
	}

	// InstallmentPlan is a single purchase split into TotalInstallments
	// equal future charges. GroupID ties the installments together; it is
	// generated once per plan and reused for every installment.
	InstallmentPlan struct {
		PurchaseDate         Date
		TotalInstallments    int
		AmountPerInstallment Money
		Card                 *Card // nil for cash or debit purchases
		GroupID              string
		Description          string
		Category             string
		Type                 EntryType
		Target               LinkedTarget
	}

	// RecurringDefinition is a template for an obligation repeating on a
	// fixed frequency. TotalOccurrences zero means open-ended.
	// OccurrencesMaterialized counts how many entries have already been
	// generated; it only ever grows, and only after a successful batch.
	RecurringDefinition struct {
		ID                      string
		StartDate               Date
		Frequency               Frequency
		TotalOccurrences        int
		OccurrencesMaterialized int
		Card                    *Card // nil when charged to an account
		Description             string
		Category                string
		Amount                  Money
		Type                    EntryType
		Target                  LinkedTarget
	}

	// EntryDraft is a ledger entry computed by the expanders but not yet
	// persisted. GroupID plus InstallmentIndex is the identity key the
	// store uses to reject duplicate submissions; recurring drafts reuse
	// the definition id as GroupID and the occurrence index as
	// InstallmentIndex so one key covers both series kinds.
	EntryDraft struct {
		Date             Date
		Description      string
		Category         string
		Amount           Money
		Type             EntryType
		Target           LinkedTarget
		InstallmentIndex int // 1-based; 0 when not part of a series
		InstallmentTotal int // 0 when open-ended or not a series
		GroupID          string
		RecurringID      string
	}

	// Entry is a persisted draft.
	Entry struct {
		ID string
		EntryDraft
	}
)

var (
	ErrZeroDate            = errors.New("date cannot be zero")
	ErrInvalidDay          = errors.New("invalid day")
	ErrInvalidMonth        = errors.New("invalid month")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyDescription    = errors.New("empty description")
	ErrInvalidClosingDay   = errors.New("statement closing day must be between 1 and 31")
	ErrInvalidInstallments = fmt.Errorf("total installments must be between 1 and %d", MaxInstallments)
	ErrInvalidFrequency    = errors.New("invalid frequency")
	ErrInvalidTarget       = errors.New("invalid linked target")
)

// Months returns the stride between occurrences, or zero for an unknown
// frequency.
func (f Frequency) Months() int {
	switch f {
	case Monthly:
		return 1
	case Bimonthly:
		return 2
	case Quarterly:
		return 3
	case Semiannual:
		return 6
	case Annual:
		return 12
	default:
		return 0
	}
}

func (t EntryType) Valid() bool {
	return t == Income || t == Expense
}

func (lt LinkedTarget) Validate() error {
	if lt.ID == "" {
		return ErrInvalidTarget
	}
	if lt.Kind != TargetAccount && lt.Kind != TargetCard {
		return ErrInvalidTarget
	}
	return nil
}

func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyDescription
	}
	if c.StatementClosingDay < 1 || c.StatementClosingDay > 31 {
		return ErrInvalidClosingDay
	}
	return nil
}

func (p InstallmentPlan) Validate() error {
	if err := p.PurchaseDate.Validate(); err != nil {
		return fmt.Errorf("invalid purchase date: %w", err)
	}
	if p.TotalInstallments < 1 || p.TotalInstallments > MaxInstallments {
		return ErrInvalidInstallments
	}
	if err := p.AmountPerInstallment.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(p.Description)) == 0 {
		return ErrEmptyDescription
	}
	if !p.Type.Valid() {
		return fmt.Errorf("invalid entry type %q", p.Type)
	}
	if err := p.Target.Validate(); err != nil {
		return err
	}
	if p.Card != nil {
		if err := p.Card.Validate(); err != nil {
			return fmt.Errorf("invalid card: %w", err)
		}
	}
	return nil
}

func (d RecurringDefinition) Validate() error {
	if err := d.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	if d.Frequency.Months() == 0 {
		return ErrInvalidFrequency
	}
	if d.TotalOccurrences < 0 {
		return fmt.Errorf("total occurrences cannot be negative")
	}
	if d.OccurrencesMaterialized < 0 {
		return fmt.Errorf("materialized count cannot be negative")
	}
	if d.TotalOccurrences > 0 && d.OccurrencesMaterialized > d.TotalOccurrences {
		return fmt.Errorf("materialized count %d exceeds total occurrences %d",
			d.OccurrencesMaterialized, d.TotalOccurrences)
	}
	if len(strings.TrimSpace(d.Description)) == 0 {
		return ErrEmptyDescription
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if !d.Type.Valid() {
		return fmt.Errorf("invalid entry type %q", d.Type)
	}
	if err := d.Target.Validate(); err != nil {
		return err
	}
	if d.Card != nil {
		if err := d.Card.Validate(); err != nil {
			return fmt.Errorf("invalid card: %w", err)
		}
	}
	return nil
}

// Unbounded reports whether the series has no occurrence cap.
func (d RecurringDefinition) Unbounded() bool {
	return d.TotalOccurrences == 0
}
