package core

import "testing"

func TestProjectCard(t *testing.T) {
	card := Card{ID: "card-1", Name: "Visa", StatementClosingDay: 5, Limit: Money{Cents: 100000}}
	other := Card{ID: "card-2", Name: "Master", StatementClosingDay: 10}

	entry := func(id string, date Date, cents int64, cardID string, idx int) Entry {
		return Entry{
			ID: id,
			EntryDraft: EntryDraft{
				Date:             date,
				Amount:           Money{Cents: cents},
				Type:             Expense,
				Target:           LinkedTarget{Kind: TargetCard, ID: cardID},
				InstallmentIndex: idx,
			},
		}
	}

	entries := []Entry{
		entry("e3", Date{2024, 4, 5}, 3000, "card-1", 3),
		entry("e1", Date{2024, 2, 5}, 3000, "card-1", 1),
		entry("e2", Date{2024, 3, 5}, 3000, "card-1", 2),
		entry("past", Date{2024, 1, 5}, 9900, "card-1", 0),
		entry("other-card", Date{2024, 3, 10}, 5000, "card-2", 1),
	}

	p := ProjectCard(card, entries, Date{2024, 2, 1})

	if len(p.Lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(p.Lines))
	}
	for i, wantID := range []string{"e1", "e2", "e3"} {
		if p.Lines[i].ID != wantID {
			t.Errorf("line %d = %s, want %s", i, p.Lines[i].ID, wantID)
		}
	}
	if p.UpcomingTotal.Cents != 9000 {
		t.Errorf("UpcomingTotal = %d, want 9000", p.UpcomingTotal.Cents)
	}
	if p.LimitUsedPct != 9.0 {
		t.Errorf("LimitUsedPct = %v, want 9.0", p.LimitUsedPct)
	}

	ps := ProjectCards([]Card{card, other}, entries, Date{2024, 2, 1})
	if len(ps) != 2 {
		t.Fatalf("got %d projections, want 2", len(ps))
	}
	if ps[1].UpcomingTotal.Cents != 5000 {
		t.Errorf("second card total = %d, want 5000", ps[1].UpcomingTotal.Cents)
	}
	if ps[1].LimitUsedPct != 0 {
		t.Errorf("no-limit card pct = %v, want 0", ps[1].LimitUsedPct)
	}
}

func TestProjectCard_IncomeDoesNotAddToTotal(t *testing.T) {
	card := Card{ID: "card-1", Name: "Visa", StatementClosingDay: 5}
	entries := []Entry{{
		ID: "refund",
		EntryDraft: EntryDraft{
			Date:   Date{2024, 3, 5},
			Amount: Money{Cents: 2500},
			Type:   Income,
			Target: LinkedTarget{Kind: TargetCard, ID: "card-1"},
		},
	}}

	p := ProjectCard(card, entries, Date{2024, 1, 1})
	if len(p.Lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(p.Lines))
	}
	if p.UpcomingTotal.Cents != 0 {
		t.Errorf("UpcomingTotal = %d, want 0", p.UpcomingTotal.Cents)
	}
}
