// Package arbitrage decides whether the best quotes for every outcome of one
// market admit a riskless profit, and computes the equal-payout stake split.
package arbitrage

import (
	"errors"
	"fmt"
	"math"

	"sports-arb-engine/internal/odds"
	"sports-arb-engine/internal/quotes"
)

// ErrMixedMarkets is returned when the quotes passed to Detect span more than
// one market type.
var ErrMixedMarkets = errors.New("quotes span multiple markets")

// Status tags a detection result.
type Status int

const (
	// NotFound means the market was fully priced but offers no arbitrage.
	NotFound Status = iota
	// Found means Result.Opportunity is set.
	Found
)

func (s Status) String() string {
	if s == Found {
		return "found"
	}
	return "not_found"
}

// Leg is one bet of an arbitrage allocation.
type Leg struct {
	ProviderID         string  `json:"provider_id"`
	ProviderName       string  `json:"provider_name"`
	Outcome            string  `json:"outcome"`
	OddsDecimal        float64 `json:"odds_decimal"`
	ImpliedProbability float64 `json:"implied_probability"`
	StakePercentage    float64 `json:"stake_percentage"` // fraction of TotalStake
	Stake              float64 `json:"stake"`
	Payout             float64 `json:"payout"`
}

// Opportunity is a riskless allocation over one quote per outcome.
// Every leg pays out the same amount.
type Opportunity struct {
	MarketType              string  `json:"market_type"`
	Legs                    []Leg   `json:"legs"`
	TotalImpliedProbability float64 `json:"total_implied_probability"`
	ProfitPercentage        float64 `json:"profit_percentage"`
	TotalStake              float64 `json:"total_stake"`
	GuaranteedProfit        float64 `json:"guaranteed_profit"`
	Payout                  float64 `json:"payout"`
}

// Result is the outcome of Detect. TotalImpliedProbability is always set, so
// callers can report how close a NotFound market came.
type Result struct {
	Status                  Status       `json:"status"`
	TotalImpliedProbability float64      `json:"total_implied_probability"`
	Opportunity             *Opportunity `json:"opportunity,omitempty"`
}

// Detect looks for an arbitrage across qs, which must all belong to one market.
// outcomes lists the outcomes the market must cover; when empty, every outcome
// present in qs is required. totalStake is split across the legs.
//
// A missing outcome returns quotes.ErrIncompleteMarket. An unprofitable but
// complete market is not an error: it returns a NotFound result.
func Detect(outcomes []string, qs []quotes.Quote, totalStake float64) (Result, error) {
	if math.IsNaN(totalStake) || math.IsInf(totalStake, 0) || totalStake <= 0 {
		return Result{}, fmt.Errorf("%w: total stake %v", odds.ErrInvalidStake, totalStake)
	}

	var marketType string
	for i, q := range qs {
		if err := q.Validate(); err != nil {
			return Result{}, err
		}
		if i == 0 {
			marketType = q.MarketType
		} else if q.MarketType != marketType {
			return Result{}, fmt.Errorf("%w: %q and %q", ErrMixedMarkets, marketType, q.MarketType)
		}
	}

	best, err := quotes.BestPerOutcome(qs, outcomes)
	if err != nil {
		return Result{}, err
	}

	var total float64
	for _, q := range best {
		total += 1 / q.OddsDecimal
	}

	// Exactly 1.0 is break-even, not profit
	if total >= 1.0 {
		return Result{Status: NotFound, TotalImpliedProbability: total}, nil
	}

	payout := totalStake / total
	legs := make([]Leg, len(best))
	for i, q := range best {
		implied := 1 / q.OddsDecimal
		share := implied / total
		stake := totalStake * share
		legs[i] = Leg{
			ProviderID:         q.ProviderID,
			ProviderName:       q.ProviderName,
			Outcome:            q.Outcome,
			OddsDecimal:        q.OddsDecimal,
			ImpliedProbability: implied,
			StakePercentage:    share,
			Stake:              stake,
			Payout:             stake * q.OddsDecimal,
		}
	}

	profit := payout - totalStake
	return Result{
		Status:                  Found,
		TotalImpliedProbability: total,
		Opportunity: &Opportunity{
			MarketType:              marketType,
			Legs:                    legs,
			TotalImpliedProbability: total,
			ProfitPercentage:        profit / totalStake * 100,
			TotalStake:              totalStake,
			GuaranteedProfit:        profit,
			Payout:                  payout,
		},
	}, nil
}
