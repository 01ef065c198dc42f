package core

import "sort"

// CardProjection summarizes the charges already scheduled against one
// card from a reference date forward: the next statements' entries in due
// order, their total, and how much of the limit they consume.
type CardProjection struct {
	Card          Card
	UpcomingTotal Money
	Lines         []Entry
	LimitUsedPct  float64
}

// ProjectCard collects the entries charged to the card that fall on or
// after the reference date, ordered by due date then installment index.
func ProjectCard(card Card, entries []Entry, from Date) CardProjection {
	p := CardProjection{Card: card}
	for _, e := range entries {
		if e.Target.Kind != TargetCard || e.Target.ID != card.ID {
			continue
		}
		if e.Date.Before(from) {
			continue
		}
		p.Lines = append(p.Lines, e)
		if e.Type == Expense {
			p.UpcomingTotal.Cents += e.Amount.Cents
		}
	}
	sort.SliceStable(p.Lines, func(i, j int) bool {
		if c := p.Lines[i].Date.Compare(p.Lines[j].Date); c != 0 {
			return c < 0
		}
		return p.Lines[i].InstallmentIndex < p.Lines[j].InstallmentIndex
	})
	if card.Limit.Cents > 0 {
		p.LimitUsedPct = float64(p.UpcomingTotal.Cents) / float64(card.Limit.Cents) * 100
	}
	return p
}

// ProjectCards builds a projection per card, preserving card order.
func ProjectCards(cards []Card, entries []Entry, from Date) []CardProjection {
	out := make([]CardProjection, 0, len(cards))
	for _, c := range cards {
		out = append(out, ProjectCard(c, entries, from))
	}
	return out
}
