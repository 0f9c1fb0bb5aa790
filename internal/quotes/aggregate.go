package quotes

import "fmt"

// Groups is a partition of quotes by outcome. Outcomes keeps first-seen order
// so display and leg ordering are deterministic.
type Groups struct {
	Outcomes  []string
	ByOutcome map[string][]Quote
}

// BestQuote returns the quote with the highest decimal price.
// Ties go to the first quote encountered.
func BestQuote(qs []Quote) (Quote, error) {
	if len(qs) == 0 {
		return Quote{}, ErrNoQuotes
	}

	best := qs[0]
	for _, q := range qs[1:] {
		if q.OddsDecimal > best.OddsDecimal {
			best = q
		}
	}
	return best, nil
}

// GroupByOutcome partitions a flat quote list by exact outcome name.
func GroupByOutcome(qs []Quote) Groups {
	g := Groups{ByOutcome: make(map[string][]Quote)}
	for _, q := range qs {
		if _, ok := g.ByOutcome[q.Outcome]; !ok {
			g.Outcomes = append(g.Outcomes, q.Outcome)
		}
		g.ByOutcome[q.Outcome] = append(g.ByOutcome[q.Outcome], q)
	}
	return g
}

// BestPerOutcome picks the best quote for each required outcome, in the order
// of outcomes. With no required outcomes every grouped outcome is used in
// first-seen order. Fewer than two outcomes, or a required outcome without
// quotes, is an incomplete market.
func BestPerOutcome(qs []Quote, outcomes []string) ([]Quote, error) {
	g := GroupByOutcome(qs)
	if len(outcomes) == 0 {
		outcomes = g.Outcomes
	}
	if len(outcomes) < 2 {
		return nil, fmt.Errorf("%w: %d outcome(s) quoted, need at least 2", ErrIncompleteMarket, len(outcomes))
	}

	legs := make([]Quote, 0, len(outcomes))
	for _, outcome := range outcomes {
		best, err := BestQuote(g.ByOutcome[outcome])
		if err != nil {
			return nil, fmt.Errorf("%w: no quotes for outcome %q", ErrIncompleteMarket, outcome)
		}
		legs = append(legs, best)
	}
	return legs, nil
}
