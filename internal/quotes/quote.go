// Package quotes holds the Quote type and the best-odds aggregation used by
// the arbitrage detector and the hedge calculator.
package quotes

import (
	"errors"
	"fmt"
	"time"

	"sports-arb-engine/internal/odds"
)

var (
	// ErrNoQuotes is returned when an aggregation is asked to pick from nothing.
	ErrNoQuotes = errors.New("no quotes available")

	// ErrIncompleteMarket is returned when an outcome of the market has no quote.
	ErrIncompleteMarket = errors.New("incomplete market")
)

// Quote is one provider's decimal price for one outcome of one market.
// Quotes are immutable: a newer quote for the same provider, outcome and market
// supersedes the old one instead of mutating it.
type Quote struct {
	ProviderID   string    `json:"provider_id"`
	ProviderName string    `json:"provider_name"`
	EventID      string    `json:"event_id,omitempty"`
	MarketType   string    `json:"market_type"`
	Outcome      string    `json:"outcome"`
	OddsDecimal  float64   `json:"odds_decimal"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Validate rejects quotes that must never reach the detector.
func (q Quote) Validate() error {
	if err := odds.CheckDecimal(q.OddsDecimal); err != nil {
		return fmt.Errorf("quote %s/%s: %w", q.ProviderID, q.Outcome, err)
	}
	if q.Outcome == "" {
		return fmt.Errorf("%w: quote from %s has no outcome", odds.ErrInvalidOdds, q.ProviderID)
	}
	return nil
}

// FilterFresh drops quotes whose UpdatedAt is older than maxAge at now.
// A non-positive maxAge disables filtering; quotes without a timestamp are kept.
func FilterFresh(qs []Quote, now time.Time, maxAge time.Duration) []Quote {
	if maxAge <= 0 {
		return qs
	}

	fresh := make([]Quote, 0, len(qs))
	for _, q := range qs {
		if q.UpdatedAt.IsZero() || now.Sub(q.UpdatedAt) <= maxAge {
			fresh = append(fresh, q)
		}
	}
	return fresh
}
