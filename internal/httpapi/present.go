package httpapi

import (
	"github.com/shopspring/decimal"

	"sports-arb-engine/internal/arbitrage"
	"sports-arb-engine/internal/hedge"
	"sports-arb-engine/internal/quotes"
)

// Money is rounded to cents and probabilities to six places only here, at
// the edge. The calculators work in float64 throughout.
func money(v float64) decimal.Decimal { return decimal.NewFromFloat(v).Round(2) }
func prob(v float64) decimal.Decimal  { return decimal.NewFromFloat(v).Round(6) }
func pct(v float64) decimal.Decimal   { return decimal.NewFromFloat(v).Round(4) }

type arbitrageLeg struct {
	ProviderID         string          `json:"provider_id"`
	ProviderName       string          `json:"provider_name,omitempty"`
	Outcome            string          `json:"outcome"`
	OddsDecimal        float64         `json:"odds_decimal"`
	ImpliedProbability decimal.Decimal `json:"implied_probability"`
	StakePercentage    decimal.Decimal `json:"stake_percentage"`
	Stake              decimal.Decimal `json:"stake"`
	Payout             decimal.Decimal `json:"payout"`
}

type arbitrageOpportunity struct {
	MarketType              string          `json:"market_type"`
	Legs                    []arbitrageLeg  `json:"legs"`
	TotalImpliedProbability decimal.Decimal `json:"total_implied_probability"`
	ProfitPercentage        decimal.Decimal `json:"profit_percentage"`
	TotalStake              decimal.Decimal `json:"total_stake"`
	GuaranteedProfit        decimal.Decimal `json:"guaranteed_profit"`
	Payout                  decimal.Decimal `json:"payout"`
}

type arbitrageResponse struct {
	Status                  string                `json:"status"`
	TotalImpliedProbability decimal.Decimal       `json:"total_implied_probability"`
	Opportunity             *arbitrageOpportunity `json:"opportunity,omitempty"`
}

func presentArbitrage(res arbitrage.Result) arbitrageResponse {
	out := arbitrageResponse{
		Status:                  res.Status.String(),
		TotalImpliedProbability: prob(res.TotalImpliedProbability),
	}
	if res.Opportunity == nil {
		return out
	}

	opp := res.Opportunity
	legs := make([]arbitrageLeg, len(opp.Legs))
	for i, l := range opp.Legs {
		legs[i] = arbitrageLeg{
			ProviderID:         l.ProviderID,
			ProviderName:       l.ProviderName,
			Outcome:            l.Outcome,
			OddsDecimal:        l.OddsDecimal,
			ImpliedProbability: prob(l.ImpliedProbability),
			StakePercentage:    prob(l.StakePercentage),
			Stake:              money(l.Stake),
			Payout:             money(l.Payout),
		}
	}
	out.Opportunity = &arbitrageOpportunity{
		MarketType:              opp.MarketType,
		Legs:                    legs,
		TotalImpliedProbability: prob(opp.TotalImpliedProbability),
		ProfitPercentage:        pct(opp.ProfitPercentage),
		TotalStake:              money(opp.TotalStake),
		GuaranteedProfit:        money(opp.GuaranteedProfit),
		Payout:                  money(opp.Payout),
	}
	return out
}

type hedgeLeg struct {
	Quote  quotes.Quote    `json:"quote"`
	Stake  decimal.Decimal `json:"stake"`
	Payout decimal.Decimal `json:"payout"`
}

type hedgeOpportunity struct {
	Bet              hedge.Bet       `json:"bet"`
	Legs             []hedgeLeg      `json:"legs"`
	PotentialPayout  decimal.Decimal `json:"potential_payout"`
	HedgeStake       decimal.Decimal `json:"hedge_stake"`
	TotalStake       decimal.Decimal `json:"total_stake"`
	GuaranteedProfit decimal.Decimal `json:"guaranteed_profit"`
	ProfitPercentage decimal.Decimal `json:"profit_percentage"`
}

type hedgeResponse struct {
	Status      string           `json:"status"`
	Opportunity hedgeOpportunity `json:"opportunity"`
}

func presentHedge(res hedge.Result) hedgeResponse {
	opp := res.Opportunity
	legs := make([]hedgeLeg, len(opp.Legs))
	for i, l := range opp.Legs {
		legs[i] = hedgeLeg{Quote: l.Quote, Stake: money(l.Stake), Payout: money(l.Payout)}
	}
	return hedgeResponse{
		Status: res.Status.String(),
		Opportunity: hedgeOpportunity{
			Bet:              opp.Bet,
			Legs:             legs,
			PotentialPayout:  money(opp.PotentialPayout),
			HedgeStake:       money(opp.HedgeStake),
			TotalStake:       money(opp.TotalStake),
			GuaranteedProfit: money(opp.GuaranteedProfit),
			ProfitPercentage: pct(opp.ProfitPercentage),
		},
	}
}
