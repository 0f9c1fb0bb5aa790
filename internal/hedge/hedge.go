// Package hedge computes the stakes that lock in an equal payout across every
// outcome of a market, given a bet that has already been placed.
package hedge

import (
	"errors"
	"fmt"
	"math"
	"time"

	"sports-arb-engine/internal/odds"
	"sports-arb-engine/internal/quotes"
)

// ErrInvalidHedge is returned when the hedge quotes do not describe the other
// outcomes of the bet's market exactly once each.
var ErrInvalidHedge = errors.New("invalid hedge")

// Bet is a placed bet on one outcome.
type Bet struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	MarketType   string    `json:"market_type"`
	Outcome      string    `json:"outcome"`
	ProviderID   string    `json:"provider_id"`
	ProviderName string    `json:"provider_name"`
	Stake        float64   `json:"stake"`
	OddsDecimal  float64   `json:"odds_decimal"`
	PlacedAt     time.Time `json:"placed_at"`
}

// PotentialPayout is what the bet returns if its outcome wins, stake included.
func (b Bet) PotentialPayout() float64 {
	return b.Stake * b.OddsDecimal
}

// Leg is one hedge bet.
type Leg struct {
	Quote  quotes.Quote `json:"quote"`
	Stake  float64      `json:"stake"`
	Payout float64      `json:"payout"`
}

// Opportunity is a full hedge of Bet. Whichever outcome wins, the return is
// PotentialPayout and the net result is GuaranteedProfit (negative when the
// hedge only limits a loss).
type Opportunity struct {
	Bet              Bet     `json:"bet"`
	Legs             []Leg   `json:"legs"`
	PotentialPayout  float64 `json:"potential_payout"`
	HedgeStake       float64 `json:"hedge_stake"`
	TotalStake       float64 `json:"total_stake"`
	GuaranteedProfit float64 `json:"guaranteed_profit"`
	ProfitPercentage float64 `json:"profit_percentage"`
}

// BranchProfits returns the net result if the original outcome wins followed
// by the net result if each hedge leg wins. All entries are equal for a
// correct hedge.
func (o Opportunity) BranchProfits() []float64 {
	branches := make([]float64, 0, len(o.Legs)+1)
	branches = append(branches, o.Bet.Stake*o.Bet.OddsDecimal-o.TotalStake)
	for _, leg := range o.Legs {
		branches = append(branches, leg.Stake*leg.Quote.OddsDecimal-o.TotalStake)
	}
	return branches
}

// Calculate hedges a bet in a two-outcome market with the best quote for the
// other outcome: hedge_stake = stake * odds / hedge_odds.
func Calculate(bet Bet, hedge quotes.Quote) (Opportunity, error) {
	return CalculateMulti(bet, []quotes.Quote{hedge})
}

// CalculateMulti hedges a bet across every other outcome of an N-way market.
// With the original stake fixed, solving "all N payouts equal" gives one
// independent equation per hedge outcome: hedge_i * odds_i = stake * odds.
func CalculateMulti(bet Bet, hedges []quotes.Quote) (Opportunity, error) {
	if err := checkBet(bet); err != nil {
		return Opportunity{}, err
	}
	if len(hedges) == 0 {
		return Opportunity{}, fmt.Errorf("%w: no hedge quotes", ErrInvalidHedge)
	}

	seen := map[string]bool{bet.Outcome: true}
	for _, h := range hedges {
		if err := h.Validate(); err != nil {
			return Opportunity{}, err
		}
		if seen[h.Outcome] {
			return Opportunity{}, fmt.Errorf("%w: outcome %q covered twice", ErrInvalidHedge, h.Outcome)
		}
		seen[h.Outcome] = true
	}

	payout := bet.PotentialPayout()
	legs := make([]Leg, len(hedges))
	var hedgeStake float64
	for i, h := range hedges {
		stake := payout / h.OddsDecimal
		legs[i] = Leg{Quote: h, Stake: stake, Payout: stake * h.OddsDecimal}
		hedgeStake += stake
	}

	total := bet.Stake + hedgeStake
	profit := payout - total
	return Opportunity{
		Bet:              bet,
		Legs:             legs,
		PotentialPayout:  payout,
		HedgeStake:       hedgeStake,
		TotalStake:       total,
		GuaranteedProfit: profit,
		ProfitPercentage: profit / total * 100,
	}, nil
}

func checkBet(bet Bet) error {
	if math.IsNaN(bet.Stake) || math.IsInf(bet.Stake, 0) || bet.Stake <= 0 {
		return fmt.Errorf("%w: bet stake %v", odds.ErrInvalidStake, bet.Stake)
	}
	if err := odds.CheckDecimal(bet.OddsDecimal); err != nil {
		return fmt.Errorf("bet %s: %w", bet.ID, err)
	}
	if bet.Outcome == "" {
		return fmt.Errorf("%w: bet %s has no outcome", ErrInvalidHedge, bet.ID)
	}
	return nil
}
