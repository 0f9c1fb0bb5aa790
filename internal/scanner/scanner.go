// Package scanner consumes the quote stream, keeps the live book current and
// re-evaluates a market for arbitrage and hedges whenever one of its quotes
// changes.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sports-arb-engine/internal/alerts"
	"sports-arb-engine/internal/arbitrage"
	"sports-arb-engine/internal/bets"
	"sports-arb-engine/internal/book"
	"sports-arb-engine/internal/hedge"
	"sports-arb-engine/internal/metrics"
	"sports-arb-engine/internal/outcomes"
	"sports-arb-engine/internal/publish"
	"sports-arb-engine/internal/quotes"
)

// DefaultCleanupInterval is how often stale quotes and alert records are pruned.
const DefaultCleanupInterval = time.Minute

// BetSource lists the open bets on an event.
type BetSource interface {
	OpenByEvent(ctx context.Context, eventID string) ([]bets.Bet, error)
}

// Config tunes detection.
type Config struct {
	MaxQuoteAge     time.Duration
	TotalStake      float64
	MinProfitPct    float64
	CleanupInterval time.Duration
	PublishTimeout  time.Duration
}

// Deps are the scanner's collaborators. Bets, Publisher and Metrics may be nil.
// A nil Mapper is replaced by outcomes.Default().
type Deps struct {
	Book      *book.Book
	Mapper    *outcomes.Mapper
	Bets      BetSource
	Notifier  *alerts.Notifier
	Publisher publish.Publisher
	Metrics   *metrics.Metrics
	Log       *zap.Logger
}

// Scanner is the main loop that turns quotes into alerts.
type Scanner struct {
	Deps
	cfg Config
	now func() time.Time
}

// Report is what one market evaluation found.
type Report struct {
	Arbitrage *arbitrage.Result
	Hedges    []hedge.Opportunity
}

// New creates a Scanner. A nil Book gets a fresh one.
func New(deps Deps, cfg Config) *Scanner {
	if deps.Book == nil {
		deps.Book = book.New()
	}
	if deps.Mapper == nil {
		deps.Mapper = outcomes.Default()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 2 * time.Second
	}
	return &Scanner{Deps: deps, cfg: cfg, now: time.Now}
}

// Run processes quotes from in until ctx is cancelled or in is closed.
func (s *Scanner) Run(ctx context.Context, in <-chan quotes.Quote) error {
	cleanupTicker := time.NewTicker(s.cfg.CleanupInterval)
	defer cleanupTicker.Stop()

	s.Log.Info("scanner started",
		zap.Duration("max_quote_age", s.cfg.MaxQuoteAge),
		zap.Float64("total_stake", s.cfg.TotalStake),
		zap.Float64("min_profit_pct", s.cfg.MinProfitPct),
	)

	for {
		select {
		case <-ctx.Done():
			s.Log.Info("scanner stopped")
			return ctx.Err()

		case <-cleanupTicker.C:
			s.cleanup(ctx)

		case q, ok := <-in:
			if !ok {
				s.Log.Info("quote stream closed")
				return nil
			}
			if _, err := s.Ingest(ctx, q); err != nil {
				s.Log.Debug("quote rejected", zap.String("provider", q.ProviderID), zap.Error(err))
			}
		}
	}
}

// cleanup prunes stale quotes, then sweeps every remaining market so hedges
// on bets placed since the last quote are still found.
func (s *Scanner) cleanup(ctx context.Context) {
	removed := s.Book.Prune(s.now(), s.cfg.MaxQuoteAge)
	if s.Notifier != nil {
		s.Notifier.CleanupOldAlerts()
	}
	if s.Metrics != nil {
		s.Metrics.BookQuotes.Set(float64(s.Book.Len()))
	}
	if removed > 0 {
		s.Log.Debug("pruned stale quotes", zap.Int("removed", removed))
	}

	keys := s.Book.Keys()
	var arbs, hedges int
	for _, key := range keys {
		report := s.Evaluate(ctx, key)
		if report.Arbitrage != nil && report.Arbitrage.Status == arbitrage.Found {
			arbs++
		}
		hedges += len(report.Hedges)
	}
	if s.Notifier != nil {
		s.Notifier.LogScan(len(keys), arbs, hedges)
	}
}

// Ingest canonicalises and validates q, stores it and re-evaluates its market.
// Invalid quotes are counted and returned as errors without touching the book.
func (s *Scanner) Ingest(ctx context.Context, q quotes.Quote) (Report, error) {
	if s.Metrics != nil {
		s.Metrics.QuotesConsumed.Inc()
	}

	q.Outcome = s.Mapper.Canonical(q.ProviderID, q.Outcome)
	if err := q.Validate(); err != nil {
		if s.Metrics != nil {
			s.Metrics.QuotesRejected.Inc()
		}
		return Report{}, err
	}
	if q.EventID == "" || q.MarketType == "" {
		if s.Metrics != nil {
			s.Metrics.QuotesRejected.Inc()
		}
		return Report{}, errors.New("quote without event or market")
	}

	key := s.Book.Put(q)
	return s.Evaluate(ctx, key), nil
}

// Evaluate re-checks one market against the fresh part of the book, alerting
// and publishing what clears the profit threshold.
func (s *Scanner) Evaluate(ctx context.Context, key book.Key) Report {
	start := time.Now()
	defer func() {
		if s.Metrics != nil {
			s.Metrics.ScanDuration.Observe(time.Since(start).Seconds())
		}
	}()

	var report Report
	required := s.Mapper.Outcomes(key.MarketType)
	if required == nil {
		// Without the full outcome set a partly quoted market looks riskless
		s.Log.Debug("market has no outcome set",
			zap.String("event_id", key.EventID),
			zap.String("market", key.MarketType),
			zap.Strings("quoted", s.Book.Outcomes(key)),
		)
		return report
	}
	fresh := s.freshQuotes(key)

	res, err := arbitrage.Detect(required, fresh, s.cfg.TotalStake)
	switch {
	case err == nil:
		report.Arbitrage = &res
		if res.Status == arbitrage.Found && res.Opportunity.ProfitPercentage >= s.cfg.MinProfitPct {
			s.reportArbitrage(ctx, key, res.Opportunity)
		}
	case errors.Is(err, quotes.ErrIncompleteMarket), errors.Is(err, quotes.ErrNoQuotes):
		// Normal while a market is still filling in
	default:
		s.fail("detect", err)
	}

	report.Hedges = s.evaluateHedges(ctx, key, required, fresh)
	return report
}

func (s *Scanner) evaluateHedges(ctx context.Context, key book.Key, required []string, fresh []quotes.Quote) []hedge.Opportunity {
	if s.Bets == nil {
		return nil
	}

	open, err := s.Bets.OpenByEvent(ctx, key.EventID)
	if err != nil {
		s.fail("bets", err)
		return nil
	}

	var found []hedge.Opportunity
	for _, b := range open {
		if b.MarketType != key.MarketType {
			continue
		}
		res, err := hedge.FindForBet(s.position(b.Position()), required, fresh)
		if err != nil {
			if !errors.Is(err, quotes.ErrIncompleteMarket) {
				s.fail("hedge", err)
			}
			continue
		}
		if res.Status != hedge.Found || res.Opportunity.ProfitPercentage < s.cfg.MinProfitPct {
			continue
		}
		found = append(found, res.Opportunity)
		s.reportHedge(ctx, res.Opportunity)
	}
	return found
}

// Arbitrage runs detection on the live book for one market with a caller
// chosen stake. Nothing is alerted or published.
func (s *Scanner) Arbitrage(key book.Key, totalStake float64) (arbitrage.Result, error) {
	required, err := s.outcomeSet(key.MarketType)
	if err != nil {
		return arbitrage.Result{}, err
	}
	return arbitrage.Detect(required, s.freshQuotes(key), totalStake)
}

// Hedge evaluates the best current hedge for a bet from the live book.
func (s *Scanner) Hedge(b hedge.Bet) (hedge.Result, error) {
	required, err := s.outcomeSet(b.MarketType)
	if err != nil {
		return hedge.Result{}, err
	}
	key := book.Key{EventID: b.EventID, MarketType: b.MarketType}
	return hedge.FindForBet(s.position(b), required, s.freshQuotes(key))
}

func (s *Scanner) outcomeSet(marketType string) ([]string, error) {
	required := s.Mapper.Outcomes(marketType)
	if required == nil {
		return nil, fmt.Errorf("%w: no outcome set for market %q", quotes.ErrIncompleteMarket, marketType)
	}
	return required, nil
}

// position resolves a bet's outcome the same way quote outcomes are resolved
// on ingestion, so the bet is never hedged against its own outcome.
func (s *Scanner) position(b hedge.Bet) hedge.Bet {
	b.Outcome = s.Mapper.Canonical(b.ProviderID, b.Outcome)
	return b
}

func (s *Scanner) freshQuotes(key book.Key) []quotes.Quote {
	return quotes.FilterFresh(s.Book.Snapshot(key), s.now(), s.cfg.MaxQuoteAge)
}

func (s *Scanner) reportArbitrage(ctx context.Context, key book.Key, opp *arbitrage.Opportunity) {
	if s.Notifier != nil && !s.Notifier.AlertArbitrage(key.EventID, opp) {
		return
	}
	if s.Metrics != nil {
		s.Metrics.ObserveOpportunity(publish.TypeArbitrage, opp.ProfitPercentage)
	}
	s.publish(ctx, publish.TypeArbitrage, key, opp)
}

func (s *Scanner) reportHedge(ctx context.Context, opp hedge.Opportunity) {
	if s.Notifier != nil && !s.Notifier.AlertHedge(opp) {
		return
	}
	if s.Metrics != nil {
		s.Metrics.ObserveOpportunity(publish.TypeHedge, opp.ProfitPercentage)
	}
	key := book.Key{EventID: opp.Bet.EventID, MarketType: opp.Bet.MarketType}
	s.publish(ctx, publish.TypeHedge, key, opp)
}

func (s *Scanner) publish(ctx context.Context, typ string, key book.Key, payload any) {
	if s.Publisher == nil {
		return
	}

	ev, err := publish.NewEvent(typ, key.EventID, key.MarketType, s.now(), payload)
	if err != nil {
		s.fail("publish", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.PublishTimeout)
	defer cancel()
	if err := s.Publisher.Publish(ctx, ev); err != nil {
		s.fail("publish", err)
	}
}

func (s *Scanner) fail(stage string, err error) {
	if s.Metrics != nil {
		s.Metrics.OnError(stage)
	}
	if s.Notifier != nil {
		s.Notifier.LogError(stage, err)
		return
	}
	s.Log.Error("scan failed", zap.String("stage", stage), zap.Error(err))
}
