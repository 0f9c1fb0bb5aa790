package alerts

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"sports-arb-engine/internal/arbitrage"
	"sports-arb-engine/internal/hedge"
	"sports-arb-engine/internal/quotes"
)

func TestCheckCooldownSuppresses(t *testing.T) {
	n := NewNotifier(zap.NewNop(), 1*time.Second)

	// First call should not suppress
	if n.checkCooldown("test-key") {
		t.Error("first call should not be suppressed")
	}

	// Immediate second call should suppress
	if !n.checkCooldown("test-key") {
		t.Error("second call within cooldown should be suppressed")
	}
}

func TestCheckCooldownExpires(t *testing.T) {
	n := NewNotifier(zap.NewNop(), 10*time.Second)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }

	if n.checkCooldown("test-key") {
		t.Error("first call should not be suppressed")
	}

	now = now.Add(11 * time.Second)

	if n.checkCooldown("test-key") {
		t.Error("call after cooldown should not be suppressed")
	}
}

func TestCheckCooldownDifferentKeys(t *testing.T) {
	n := NewNotifier(zap.NewNop(), 1*time.Second)

	if n.checkCooldown("key-a") {
		t.Error("first call for key-a should not be suppressed")
	}

	// Different key should not be suppressed
	if n.checkCooldown("key-b") {
		t.Error("first call for key-b should not be suppressed")
	}

	// Same key should be suppressed
	if !n.checkCooldown("key-a") {
		t.Error("second call for key-a should be suppressed")
	}
}

func TestAlertArbitrageCooldown(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewNotifier(zap.New(core), time.Minute)

	opp := &arbitrage.Opportunity{
		MarketType:       "moneyline",
		ProfitPercentage: 5,
		TotalStake:       100,
		GuaranteedProfit: 5,
		Legs: []arbitrage.Leg{
			{ProviderID: "A", Outcome: "home", OddsDecimal: 2.1, Stake: 50},
			{ProviderID: "B", Outcome: "away", OddsDecimal: 2.1, Stake: 50},
		},
	}

	if !n.AlertArbitrage("evt-1", opp) {
		t.Error("first alert should be sent")
	}
	if n.AlertArbitrage("evt-1", opp) {
		t.Error("repeat alert should be suppressed")
	}
	if !n.AlertArbitrage("evt-2", opp) {
		t.Error("other event should alert")
	}

	if logs.FilterMessage("ARB").Len() != 2 {
		t.Errorf("logged %d ARB entries, want 2", logs.FilterMessage("ARB").Len())
	}
	entry := logs.All()[0]
	if entry.ContextMap()["event_id"] != "evt-1" {
		t.Errorf("fields = %v", entry.ContextMap())
	}
}

func TestAlertHedge(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewNotifier(zap.New(core), time.Minute)

	opp := hedge.Opportunity{
		Bet:              hedge.Bet{ID: "bet-1", EventID: "evt-1", Outcome: "home", Stake: 100, OddsDecimal: 3},
		Legs:             []hedge.Leg{{Quote: quotes.Quote{ProviderID: "B", Outcome: "away", OddsDecimal: 2}, Stake: 150}},
		HedgeStake:       150,
		GuaranteedProfit: 50,
	}

	if !n.AlertHedge(opp) {
		t.Error("first hedge alert should be sent")
	}
	if n.AlertHedge(opp) {
		t.Error("repeat hedge alert should be suppressed")
	}

	// A different hedging book is a new alert
	opp.Legs[0].Quote.ProviderID = "C"
	if !n.AlertHedge(opp) {
		t.Error("hedge at another provider should alert")
	}

	if logs.FilterMessage("HEDGE").Len() != 2 {
		t.Errorf("logged %d HEDGE entries, want 2", logs.FilterMessage("HEDGE").Len())
	}
}

func TestLogError(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewNotifier(zap.New(core), time.Minute)

	n.LogError("publish", errors.New("broker down"))

	if logs.FilterMessage("ERROR").Len() != 1 {
		t.Fatal("error not logged")
	}
	if logs.All()[0].ContextMap()["context"] != "publish" {
		t.Errorf("fields = %v", logs.All()[0].ContextMap())
	}
}

func TestCleanupOldAlerts(t *testing.T) {
	n := NewNotifier(zap.NewNop(), 1*time.Hour)

	// Manually insert an old alert
	n.mu.Lock()
	n.lastAlerts["old-key"] = time.Now().Add(-2 * time.Hour)
	n.lastAlerts["fresh-key"] = time.Now()
	n.mu.Unlock()

	n.CleanupOldAlerts()

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.lastAlerts["old-key"]; ok {
		t.Error("old alert should have been cleaned up")
	}
	if _, ok := n.lastAlerts["fresh-key"]; !ok {
		t.Error("fresh alert should not have been cleaned up")
	}
}
