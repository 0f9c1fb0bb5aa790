package scanner

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

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

var testNow = time.Date(2026, 7, 4, 19, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []publish.Event
}

func (r *recorder) Publish(ctx context.Context, ev publish.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) byType(typ string) []publish.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []publish.Event
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type fakeBets struct {
	open []bets.Bet
	err  error
}

func (f *fakeBets) OpenByEvent(ctx context.Context, eventID string) ([]bets.Bet, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []bets.Bet
	for _, b := range f.open {
		if b.EventID == eventID {
			out = append(out, b)
		}
	}
	return out, nil
}

type fixture struct {
	scanner *Scanner
	pub     *recorder
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, cfg Config, mapper *outcomes.Mapper, betSource BetSource) fixture {
	t.Helper()
	pub := &recorder{}
	m := metrics.New(prometheus.NewRegistry())
	s := New(Deps{
		Mapper:    mapper,
		Bets:      betSource,
		Notifier:  alerts.NewNotifier(zap.NewNop(), time.Minute),
		Publisher: pub,
		Metrics:   m,
	}, cfg)
	s.now = func() time.Time { return testNow }
	return fixture{scanner: s, pub: pub, metrics: m}
}

func quote(provider, outcome string, decimal float64) quotes.Quote {
	return quotes.Quote{
		ProviderID:  provider,
		EventID:     "evt-1",
		MarketType:  "moneyline",
		Outcome:     outcome,
		OddsDecimal: decimal,
		UpdatedAt:   testNow,
	}
}

func marketQuote(market, provider, outcome string, decimal float64) quotes.Quote {
	q := quote(provider, outcome, decimal)
	q.MarketType = market
	return q
}

func TestIngestFindsArbitrage(t *testing.T) {
	f := newFixture(t, Config{TotalStake: 100, MinProfitPct: 0.5}, nil, nil)
	ctx := context.Background()

	report, err := f.scanner.Ingest(ctx, quote("A", "home", 2.10))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Arbitrage != nil {
		t.Error("single-outcome market should not be evaluated")
	}

	report, err = f.scanner.Ingest(ctx, quote("B", "away", 2.10))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Arbitrage == nil || report.Arbitrage.Status != arbitrage.Found {
		t.Fatalf("Arbitrage = %+v, want found", report.Arbitrage)
	}
	if math.Abs(report.Arbitrage.Opportunity.ProfitPercentage-5) > 1e-6 {
		t.Errorf("ProfitPercentage = %v, want 5", report.Arbitrage.Opportunity.ProfitPercentage)
	}

	events := f.pub.byType(publish.TypeArbitrage)
	if len(events) != 1 || events[0].EventID != "evt-1" || events[0].MarketType != "moneyline" {
		t.Fatalf("published = %+v", events)
	}

	// Same books again within the cooldown: no new alert
	if _, err := f.scanner.Ingest(ctx, quote("B", "away", 2.10)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if n := len(f.pub.byType(publish.TypeArbitrage)); n != 1 {
		t.Errorf("published %d arbitrage events, want 1", n)
	}
	if got := testutil.ToFloat64(f.metrics.QuotesConsumed); got != 3 {
		t.Errorf("consumed = %v, want 3", got)
	}
}

func TestBelowThresholdNotPublished(t *testing.T) {
	f := newFixture(t, Config{TotalStake: 100, MinProfitPct: 6}, nil, nil)
	ctx := context.Background()

	f.scanner.Ingest(ctx, quote("A", "home", 2.10))
	report, _ := f.scanner.Ingest(ctx, quote("B", "away", 2.10))

	if report.Arbitrage == nil || report.Arbitrage.Status != arbitrage.Found {
		t.Fatalf("Arbitrage = %+v, want found", report.Arbitrage)
	}
	if len(f.pub.byType(publish.TypeArbitrage)) != 0 {
		t.Error("opportunity below MinProfitPct was published")
	}
}

func TestIngestCanonicalisesOutcomes(t *testing.T) {
	mapper, err := outcomes.Parse([]byte(`
markets:
  moneyline: [home, away]
aliases:
  bookb:
    Boston Celtics: away
`))
	if err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, Config{TotalStake: 100}, mapper, nil)
	ctx := context.Background()

	f.scanner.Ingest(ctx, quote("booka", "HOME", 2.2))
	report, err := f.scanner.Ingest(ctx, quote("bookb", "Boston Celtics", 2.0))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Arbitrage == nil || report.Arbitrage.Status != arbitrage.Found {
		t.Fatalf("Arbitrage = %+v, want found after aliasing", report.Arbitrage)
	}

	got := f.scanner.Book.Outcomes(book.Key{EventID: "evt-1", MarketType: "moneyline"})
	if len(got) != 2 || got[0] != "home" || got[1] != "away" {
		t.Errorf("book outcomes = %v", got)
	}
}

func TestIngestRejectsInvalid(t *testing.T) {
	f := newFixture(t, Config{TotalStake: 100}, nil, nil)
	ctx := context.Background()

	bad := []quotes.Quote{
		quote("A", "home", 1.0),
		quote("A", "", 2.0),
		{ProviderID: "A", Outcome: "home", OddsDecimal: 2.0},
	}
	for _, q := range bad {
		if _, err := f.scanner.Ingest(ctx, q); err == nil {
			t.Errorf("Ingest(%+v) should fail", q)
		}
	}

	if f.scanner.Book.Len() != 0 {
		t.Errorf("book holds %d quotes, want 0", f.scanner.Book.Len())
	}
	if got := testutil.ToFloat64(f.metrics.QuotesRejected); got != 3 {
		t.Errorf("rejected = %v, want 3", got)
	}
}

func TestStaleQuotesIgnored(t *testing.T) {
	f := newFixture(t, Config{TotalStake: 100, MaxQuoteAge: time.Minute}, nil, nil)
	ctx := context.Background()

	stale := quote("A", "home", 2.10)
	stale.UpdatedAt = testNow.Add(-5 * time.Minute)
	f.scanner.Ingest(ctx, stale)
	report, _ := f.scanner.Ingest(ctx, quote("B", "away", 2.10))

	if report.Arbitrage != nil {
		t.Errorf("stale quote should leave the market incomplete, got %+v", report.Arbitrage)
	}

	f.scanner.cleanup(context.Background())
	if f.scanner.Book.Len() != 1 {
		t.Errorf("book holds %d quotes after prune, want 1", f.scanner.Book.Len())
	}
}

func TestIngestFindsHedge(t *testing.T) {
	src := &fakeBets{open: []bets.Bet{
		{ID: "bet-1", EventID: "evt-1", MarketType: "moneyline", Outcome: "home", Stake: 100, OddsDecimal: 3.0},
		{ID: "bet-2", EventID: "evt-1", MarketType: "spread", Outcome: "home", Stake: 100, OddsDecimal: 3.0},
	}}
	f := newFixture(t, Config{TotalStake: 100, MinProfitPct: 0.5}, nil, src)
	ctx := context.Background()

	report, err := f.scanner.Ingest(ctx, quote("B", "away", 2.0))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(report.Hedges) != 1 {
		t.Fatalf("got %d hedges, want 1", len(report.Hedges))
	}
	h := report.Hedges[0]
	if h.Bet.ID != "bet-1" || math.Abs(h.HedgeStake-150) > 1e-9 || math.Abs(h.GuaranteedProfit-50) > 1e-9 {
		t.Errorf("hedge = %+v", h)
	}
	if len(f.pub.byType(publish.TypeHedge)) != 1 {
		t.Errorf("published %d hedge events, want 1", len(f.pub.byType(publish.TypeHedge)))
	}

	// A worse price that only limits the loss is not reported
	f2 := newFixture(t, Config{TotalStake: 100}, nil, src)
	report, _ = f2.scanner.Ingest(ctx, quote("B", "away", 1.4))
	if len(report.Hedges) != 0 {
		t.Errorf("unprofitable hedge reported: %+v", report.Hedges)
	}
}

func TestBetSourceFailureCounted(t *testing.T) {
	f := newFixture(t, Config{TotalStake: 100}, nil, &fakeBets{err: errors.New("db locked")})

	f.scanner.Ingest(context.Background(), quote("A", "home", 2.0))

	if got := testutil.ToFloat64(f.metrics.Errors.WithLabelValues("bets")); got != 1 {
		t.Errorf("bets errors = %v, want 1", got)
	}
}

func TestArbitrageAndHedgeQueries(t *testing.T) {
	f := newFixture(t, Config{TotalStake: 100}, nil, nil)
	ctx := context.Background()
	f.scanner.Ingest(ctx, quote("A", "home", 2.10))
	f.scanner.Ingest(ctx, quote("B", "away", 2.10))

	res, err := f.scanner.Arbitrage(book.Key{EventID: "evt-1", MarketType: "moneyline"}, 1000)
	if err != nil {
		t.Fatalf("Arbitrage: %v", err)
	}
	if res.Status != arbitrage.Found || math.Abs(res.Opportunity.GuaranteedProfit-50) > 1e-6 {
		t.Errorf("Arbitrage = %+v", res)
	}

	if _, err := f.scanner.Arbitrage(book.Key{EventID: "evt-9", MarketType: "moneyline"}, 100); err == nil {
		t.Error("empty market should error")
	}

	hres, err := f.scanner.Hedge(hedge.Bet{EventID: "evt-1", MarketType: "moneyline", Outcome: "home", Stake: 100, OddsDecimal: 3.0})
	if err != nil {
		t.Fatalf("Hedge: %v", err)
	}
	if hres.Status != hedge.Found || math.Abs(hres.Opportunity.HedgeStake-300/2.10) > 1e-9 {
		t.Errorf("Hedge = %+v", hres)
	}
}

func TestRun(t *testing.T) {
	f := newFixture(t, Config{TotalStake: 100}, nil, nil)

	in := make(chan quotes.Quote, 2)
	in <- quote("A", "home", 2.10)
	in <- quote("B", "away", 2.10)
	close(in)

	if err := f.scanner.Run(context.Background(), in); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := len(f.pub.byType(publish.TypeArbitrage)); n != 1 {
		t.Errorf("published %d events, want 1", n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.scanner.Run(ctx, make(chan quotes.Quote)); !errors.Is(err, context.Canceled) {
		t.Errorf("Run after cancel = %v, want context.Canceled", err)
	}
}

func TestBetOutcomeMatchedCaseInsensitively(t *testing.T) {
	src := &fakeBets{open: []bets.Bet{
		{ID: "bet-1", EventID: "evt-1", MarketType: "moneyline", Outcome: "Home", Stake: 100, OddsDecimal: 3.0},
	}}
	f := newFixture(t, Config{TotalStake: 100}, nil, src)
	ctx := context.Background()

	f.scanner.Ingest(ctx, quote("A", "home", 2.2))
	report, err := f.scanner.Ingest(ctx, quote("B", "away", 2.2))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(report.Hedges) != 1 {
		t.Fatalf("got %d hedges, want 1", len(report.Hedges))
	}
	h := report.Hedges[0]
	if len(h.Legs) != 1 || h.Legs[0].Quote.Outcome != "away" {
		t.Fatalf("legs = %+v, want a single leg on away", h.Legs)
	}
	if math.Abs(h.HedgeStake-300/2.2) > 1e-9 {
		t.Errorf("HedgeStake = %v, want %v", h.HedgeStake, 300/2.2)
	}

	res, err := f.scanner.Hedge(hedge.Bet{EventID: "evt-1", MarketType: "moneyline", Outcome: " HOME ", Stake: 100, OddsDecimal: 3.0})
	if err != nil {
		t.Fatalf("Hedge: %v", err)
	}
	if len(res.Opportunity.Legs) != 1 || res.Opportunity.Legs[0].Quote.Outcome != "away" {
		t.Errorf("Hedge legs = %+v, want a single leg on away", res.Opportunity.Legs)
	}
}

func TestPartialThreeWayMarketNotReported(t *testing.T) {
	f := newFixture(t, Config{TotalStake: 100}, nil, nil)
	ctx := context.Background()
	key := book.Key{EventID: "evt-1", MarketType: "1x2"}

	f.scanner.Ingest(ctx, marketQuote("1x2", "A", "home", 2.6))
	report, err := f.scanner.Ingest(ctx, marketQuote("1x2", "B", "away", 3.1))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Arbitrage != nil {
		t.Errorf("market without a draw quote evaluated: %+v", report.Arbitrage)
	}
	if n := len(f.pub.byType(publish.TypeArbitrage)); n != 0 {
		t.Errorf("published %d arbitrage events, want 0", n)
	}
	if _, err := f.scanner.Arbitrage(key, 100); !errors.Is(err, quotes.ErrIncompleteMarket) {
		t.Errorf("Arbitrage error = %v, want ErrIncompleteMarket", err)
	}

	report, _ = f.scanner.Ingest(ctx, marketQuote("1x2", "C", "X", 5.0))
	if report.Arbitrage == nil || report.Arbitrage.Status != arbitrage.Found {
		t.Fatalf("Arbitrage = %+v, want found once the draw is quoted", report.Arbitrage)
	}
	if got := len(report.Arbitrage.Opportunity.Legs); got != 3 {
		t.Errorf("got %d legs, want 3", got)
	}
}

func TestMarketWithoutOutcomeSetSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := newFixture(t, Config{TotalStake: 100}, nil, nil)
	f.scanner.Log = zap.New(core)
	ctx := context.Background()

	f.scanner.Ingest(ctx, marketQuote("player_points", "A", "over", 2.5))
	report, err := f.scanner.Ingest(ctx, marketQuote("player_points", "B", "under", 2.5))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if report.Arbitrage != nil || len(f.pub.byType(publish.TypeArbitrage)) != 0 {
		t.Errorf("market without an outcome set was evaluated: %+v", report.Arbitrage)
	}

	key := book.Key{EventID: "evt-1", MarketType: "player_points"}
	if _, err := f.scanner.Arbitrage(key, 100); !errors.Is(err, quotes.ErrIncompleteMarket) {
		t.Errorf("Arbitrage error = %v, want ErrIncompleteMarket", err)
	}
	_, err = f.scanner.Hedge(hedge.Bet{EventID: "evt-1", MarketType: "player_points", Outcome: "over", Stake: 10, OddsDecimal: 2.5})
	if !errors.Is(err, quotes.ErrIncompleteMarket) {
		t.Errorf("Hedge error = %v, want ErrIncompleteMarket", err)
	}

	skipped := logs.FilterMessage("market has no outcome set").All()
	if len(skipped) != 2 {
		t.Fatalf("logged %d skips, want 2", len(skipped))
	}
	if skipped[1].ContextMap()["market"] != "player_points" {
		t.Errorf("fields = %v", skipped[1].ContextMap())
	}
}

func TestCleanupSweepsMarkets(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	src := &fakeBets{}
	f := newFixture(t, Config{TotalStake: 100}, nil, src)
	f.scanner.Notifier = alerts.NewNotifier(zap.New(core), time.Minute)
	ctx := context.Background()

	f.scanner.Ingest(ctx, quote("A", "home", 2.2))
	f.scanner.Ingest(ctx, quote("B", "away", 2.2))
	if n := len(f.pub.byType(publish.TypeHedge)); n != 0 {
		t.Fatalf("published %d hedge events before any bet, want 0", n)
	}

	// Bet placed after the last quote: only the sweep can find its hedge
	src.open = []bets.Bet{{ID: "bet-1", EventID: "evt-1", MarketType: "moneyline", Outcome: "home", Stake: 100, OddsDecimal: 3.0}}
	f.scanner.cleanup(ctx)

	if n := len(f.pub.byType(publish.TypeHedge)); n != 1 {
		t.Errorf("published %d hedge events, want 1", n)
	}

	scans := logs.FilterMessage("scan complete").All()
	if len(scans) != 1 {
		t.Fatalf("logged %d scan summaries, want 1", len(scans))
	}
	fields := scans[0].ContextMap()
	if fields["markets"] != int64(1) || fields["arbs"] != int64(1) || fields["hedges"] != int64(1) {
		t.Errorf("scan summary = %v", fields)
	}
}
