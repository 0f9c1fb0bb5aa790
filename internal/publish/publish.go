// Package publish fans detected opportunities out to downstream consumers.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeArbitrage = "arbitrage"
	TypeHedge     = "hedge"
)

// Event is the envelope every publisher writes.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	EventID    string          `json:"event_id"`
	MarketType string          `json:"market_type"`
	DetectedAt time.Time       `json:"detected_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEvent wraps payload in an envelope with a fresh id.
func NewEvent(typ, eventID, marketType string, detectedAt time.Time, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encoding %s payload: %w", typ, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		EventID:    eventID,
		MarketType: marketType,
		DetectedAt: detectedAt.UTC(),
		Payload:    raw,
	}, nil
}

// Publisher delivers an event somewhere.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Multi publishes to every publisher and joins their errors. A failing
// publisher does not stop the others.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
