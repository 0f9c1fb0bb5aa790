// Package book keeps the latest quote per provider and outcome for every
// live (event, market) pair.
package book

import (
	"sync"
	"time"

	"sports-arb-engine/internal/quotes"
)

// Key identifies one market of one event.
type Key struct {
	EventID    string
	MarketType string
}

type slot struct {
	provider string
	outcome  string
}

type market struct {
	order  []slot
	quotes map[slot]quotes.Quote
}

// Book is safe for concurrent use.
type Book struct {
	mu      sync.RWMutex
	markets map[Key]*market
}

// New creates an empty book.
func New() *Book {
	return &Book{markets: make(map[Key]*market)}
}

// Put stores q, replacing any earlier quote from the same provider for the
// same outcome. The first-seen position of the slot is kept.
func (b *Book) Put(q quotes.Quote) Key {
	k := Key{EventID: q.EventID, MarketType: q.MarketType}
	s := slot{provider: q.ProviderID, outcome: q.Outcome}

	b.mu.Lock()
	defer b.mu.Unlock()

	m, ok := b.markets[k]
	if !ok {
		m = &market{quotes: make(map[slot]quotes.Quote)}
		b.markets[k] = m
	}
	if _, seen := m.quotes[s]; !seen {
		m.order = append(m.order, s)
	}
	m.quotes[s] = q
	return k
}

// Snapshot returns a copy of the market's quotes in first-seen order.
func (b *Book) Snapshot(k Key) []quotes.Quote {
	b.mu.RLock()
	defer b.mu.RUnlock()

	m, ok := b.markets[k]
	if !ok {
		return nil
	}
	out := make([]quotes.Quote, 0, len(m.order))
	for _, s := range m.order {
		out = append(out, m.quotes[s])
	}
	return out
}

// Outcomes lists the distinct outcomes quoted in the market.
func (b *Book) Outcomes(k Key) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	m, ok := b.markets[k]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, s := range m.order {
		if !seen[s.outcome] {
			seen[s.outcome] = true
			out = append(out, s.outcome)
		}
	}
	return out
}

// Keys lists every market currently held.
func (b *Book) Keys() []Key {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]Key, 0, len(b.markets))
	for k := range b.markets {
		keys = append(keys, k)
	}
	return keys
}

// Prune drops quotes last updated more than maxAge before now and removes
// markets left empty. Quotes without a timestamp are kept. It returns the
// number of quotes removed.
func (b *Book) Prune(now time.Time, maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := now.Add(-maxAge)

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for k, m := range b.markets {
		kept := m.order[:0]
		for _, s := range m.order {
			q := m.quotes[s]
			if !q.UpdatedAt.IsZero() && q.UpdatedAt.Before(cutoff) {
				delete(m.quotes, s)
				removed++
				continue
			}
			kept = append(kept, s)
		}
		m.order = kept
		if len(m.order) == 0 {
			delete(b.markets, k)
		}
	}
	return removed
}

// Len returns the total number of quotes held.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, m := range b.markets {
		n += len(m.quotes)
	}
	return n
}
