package alerts

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"sports-arb-engine/internal/arbitrage"
	"sports-arb-engine/internal/hedge"
)

// Notifier handles alert notifications
type Notifier struct {
	log        *zap.Logger
	mu         sync.Mutex
	lastAlerts map[string]time.Time // Dedupe alerts
	cooldown   time.Duration        // Minimum time between same alerts
	now        func() time.Time
}

// NewNotifier creates a new notifier
func NewNotifier(log *zap.Logger, cooldown time.Duration) *Notifier {
	return &Notifier{
		log:        log,
		lastAlerts: make(map[string]time.Time),
		cooldown:   cooldown,
		now:        time.Now,
	}
}

// checkCooldown reports whether key was alerted within the cooldown, and
// records the alert when it was not.
func (n *Notifier) checkCooldown(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	if lastTime, ok := n.lastAlerts[key]; ok && now.Sub(lastTime) < n.cooldown {
		return true
	}
	n.lastAlerts[key] = now
	return false
}

// AlertArbitrage logs an arbitrage opportunity. The same combination of
// providers on the same market alerts at most once per cooldown; it returns
// false when suppressed.
func (n *Notifier) AlertArbitrage(eventID string, opp *arbitrage.Opportunity) bool {
	providers := make([]string, 0, len(opp.Legs))
	legs := make([]string, 0, len(opp.Legs))
	for _, leg := range opp.Legs {
		providers = append(providers, leg.ProviderID)
		legs = append(legs, fmt.Sprintf("%s@%s %.2f stake=%.2f", leg.Outcome, leg.ProviderID, leg.OddsDecimal, leg.Stake))
	}

	key := fmt.Sprintf("arb-%s-%s-%s", eventID, opp.MarketType, strings.Join(providers, ","))
	if n.checkCooldown(key) {
		return false
	}

	n.log.Info("ARB",
		zap.String("event_id", eventID),
		zap.String("market_type", opp.MarketType),
		zap.Float64("profit_pct", opp.ProfitPercentage),
		zap.Float64("total_implied_prob", opp.TotalImpliedProbability),
		zap.Float64("total_stake", opp.TotalStake),
		zap.Float64("guaranteed_profit", opp.GuaranteedProfit),
		zap.Strings("legs", legs),
	)
	return true
}

// AlertHedge logs a hedge opportunity for a tracked bet.
func (n *Notifier) AlertHedge(opp hedge.Opportunity) bool {
	providers := make([]string, 0, len(opp.Legs))
	legs := make([]string, 0, len(opp.Legs))
	for _, leg := range opp.Legs {
		providers = append(providers, leg.Quote.ProviderID)
		legs = append(legs, fmt.Sprintf("%s@%s %.2f stake=%.2f",
			leg.Quote.Outcome, leg.Quote.ProviderID, leg.Quote.OddsDecimal, leg.Stake))
	}

	key := fmt.Sprintf("hedge-%s-%s", opp.Bet.ID, strings.Join(providers, ","))
	if n.checkCooldown(key) {
		return false
	}

	n.log.Info("HEDGE",
		zap.String("bet_id", opp.Bet.ID),
		zap.String("event_id", opp.Bet.EventID),
		zap.String("market_type", opp.Bet.MarketType),
		zap.String("outcome", opp.Bet.Outcome),
		zap.Float64("entry_stake", opp.Bet.Stake),
		zap.Float64("entry_odds", opp.Bet.OddsDecimal),
		zap.Float64("hedge_stake", opp.HedgeStake),
		zap.Float64("guaranteed_profit", opp.GuaranteedProfit),
		zap.Float64("profit_pct", opp.ProfitPercentage),
		zap.Strings("legs", legs),
	)
	return true
}

// LogScan logs a scan summary
func (n *Notifier) LogScan(markets, arbs, hedges int) {
	n.log.Debug("scan complete",
		zap.Int("markets", markets),
		zap.Int("arbs", arbs),
		zap.Int("hedges", hedges),
	)
}

// LogError logs an error
func (n *Notifier) LogError(context string, err error) {
	n.log.Error("ERROR", zap.String("context", context), zap.Error(err))
}

// CleanupOldAlerts removes stale alert records
func (n *Notifier) CleanupOldAlerts() {
	n.mu.Lock()
	defer n.mu.Unlock()
	cutoff := n.now().Add(-max(n.cooldown, time.Hour))
	for key, t := range n.lastAlerts {
		if t.Before(cutoff) {
			delete(n.lastAlerts, key)
		}
	}
}
