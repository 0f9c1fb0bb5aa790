// Package feed ingests provider quotes from Kafka, a websocket stream or a
// polled REST endpoint and normalises them to decimal odds.
package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"sports-arb-engine/internal/odds"
	"sports-arb-engine/internal/quotes"
)

// QuoteMessage is the wire form of a provider price. Exactly one of the
// price fields is expected; when several are set decimal wins, then
// american, then fractional.
type QuoteMessage struct {
	ProviderID     string    `json:"provider_id"`
	ProviderName   string    `json:"provider_name"`
	EventID        string    `json:"event_id"`
	MarketType     string    `json:"market_type"`
	Outcome        string    `json:"outcome"`
	OddsDecimal    float64   `json:"odds_decimal,omitempty"`
	OddsAmerican   int       `json:"odds_american,omitempty"`
	OddsFractional string    `json:"odds_fractional,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ToQuote converts the message to a Quote priced in decimal odds.
func (m QuoteMessage) ToQuote() (quotes.Quote, error) {
	var (
		decimal float64
		err     error
	)
	switch {
	case m.OddsDecimal != 0:
		decimal = m.OddsDecimal
		err = odds.CheckDecimal(decimal)
	case m.OddsAmerican != 0:
		decimal, err = odds.AmericanToDecimal(m.OddsAmerican)
	case m.OddsFractional != "":
		decimal, err = odds.FractionalToDecimal(m.OddsFractional)
	default:
		err = fmt.Errorf("%w: message carries no price", odds.ErrParse)
	}
	if err != nil {
		return quotes.Quote{}, fmt.Errorf("%s %s/%s: %w", m.ProviderID, m.EventID, m.Outcome, err)
	}

	return quotes.Quote{
		ProviderID:   m.ProviderID,
		ProviderName: m.ProviderName,
		EventID:      m.EventID,
		MarketType:   m.MarketType,
		Outcome:      m.Outcome,
		OddsDecimal:  decimal,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}

// DecodeMessages accepts a single JSON object or an array of them.
func DecodeMessages(data []byte) ([]QuoteMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", odds.ErrParse)
	}

	if data[0] == '[' {
		var msgs []QuoteMessage
		if err := json.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("%w: %v", odds.ErrParse, err)
		}
		return msgs, nil
	}

	var msg QuoteMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", odds.ErrParse, err)
	}
	return []QuoteMessage{msg}, nil
}
