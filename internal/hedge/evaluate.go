package hedge

import (
	"fmt"

	"sports-arb-engine/internal/quotes"
)

// Status tags an evaluation result.
type Status int

const (
	// NotFound means the hedge was computed but does not lock in a profit.
	NotFound Status = iota
	// Found means the hedge locks in a positive profit.
	Found
)

func (s Status) String() string {
	if s == Found {
		return "found"
	}
	return "not_found"
}

// Result carries the computed hedge whether or not it is profitable, so a
// loss-limiting hedge can still be shown.
type Result struct {
	Status      Status      `json:"status"`
	Opportunity Opportunity `json:"opportunity"`
}

// Evaluate computes the hedge and tags it Found only when the guaranteed
// profit is strictly positive.
func Evaluate(bet Bet, hedges []quotes.Quote) (Result, error) {
	opp, err := CalculateMulti(bet, hedges)
	if err != nil {
		return Result{}, err
	}

	status := NotFound
	if opp.GuaranteedProfit > 0 {
		status = Found
	}
	return Result{Status: status, Opportunity: opp}, nil
}

// FindForBet selects the best current quote for each outcome of the market
// other than the bet's own and evaluates the hedge. outcomes is the full
// outcome set of the market; when empty, the outcomes present in qs plus the
// bet's outcome are used. Only quotes of the bet's market type are considered.
func FindForBet(bet Bet, outcomes []string, qs []quotes.Quote) (Result, error) {
	if err := checkBet(bet); err != nil {
		return Result{}, err
	}

	market := make([]quotes.Quote, 0, len(qs))
	for _, q := range qs {
		if q.MarketType == bet.MarketType && q.Outcome != bet.Outcome && q.Validate() == nil {
			market = append(market, q)
		}
	}

	var others []string
	if len(outcomes) > 0 {
		for _, o := range outcomes {
			if o != bet.Outcome {
				others = append(others, o)
			}
		}
	} else {
		others = quotes.GroupByOutcome(market).Outcomes
	}

	if len(others) == 0 {
		return Result{}, fmt.Errorf("%w: nothing to hedge %q against", quotes.ErrIncompleteMarket, bet.Outcome)
	}

	best := make([]quotes.Quote, 0, len(others))
	g := quotes.GroupByOutcome(market)
	for _, o := range others {
		q, err := quotes.BestQuote(g.ByOutcome[o])
		if err != nil {
			return Result{}, fmt.Errorf("%w: no hedge quote for outcome %q", quotes.ErrIncompleteMarket, o)
		}
		best = append(best, q)
	}

	return Evaluate(bet, best)
}
