package arbitrage

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"sports-arb-engine/internal/odds"
	"sports-arb-engine/internal/quotes"
)

func q(provider, outcome string, decimal float64) quotes.Quote {
	return quotes.Quote{
		ProviderID:   provider,
		ProviderName: "Book " + provider,
		EventID:      "evt-1",
		MarketType:   "moneyline",
		Outcome:      outcome,
		OddsDecimal:  decimal,
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name       string
		quotes     []quotes.Quote
		outcomes   []string
		wantStatus Status
		wantProfit float64 // percent
		wantTotal  float64
	}{
		{
			name:       "clear two-way arb 2.10/2.10",
			quotes:     []quotes.Quote{q("A", "home", 2.10), q("B", "away", 2.10)},
			wantStatus: Found,
			wantProfit: 5.0,
			wantTotal:  0.9524,
		},
		{
			name:       "no arb 1.80/1.80",
			quotes:     []quotes.Quote{q("A", "home", 1.80), q("B", "away", 1.80)},
			wantStatus: NotFound,
			wantTotal:  1.1111,
		},
		{
			name:       "break-even is not arb",
			quotes:     []quotes.Quote{q("A", "home", 2.0), q("B", "away", 2.0)},
			wantStatus: NotFound,
			wantTotal:  1.0,
		},
		{
			name: "best per outcome across books",
			quotes: []quotes.Quote{
				q("A", "home", 1.90), q("B", "home", 2.20),
				q("A", "away", 2.05), q("B", "away", 1.70),
			},
			wantStatus: Found,
			wantProfit: 6.12,
			wantTotal:  0.9424,
		},
		{
			name: "three-way market",
			quotes: []quotes.Quote{
				q("A", "home", 2.6), q("B", "draw", 3.4), q("C", "away", 3.9),
			},
			outcomes:   []string{"home", "draw", "away"},
			wantStatus: Found,
			wantProfit: 6.93,
			wantTotal:  0.9351,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Detect(tt.outcomes, tt.quotes, 100)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Status != tt.wantStatus {
				t.Fatalf("Status = %v, want %v", res.Status, tt.wantStatus)
			}
			if math.Abs(res.TotalImpliedProbability-tt.wantTotal) > 0.001 {
				t.Errorf("TotalImpliedProbability = %.4f, want %.4f", res.TotalImpliedProbability, tt.wantTotal)
			}

			if tt.wantStatus == NotFound {
				if res.Opportunity != nil {
					t.Errorf("NotFound result carries opportunity %+v", res.Opportunity)
				}
				return
			}
			if math.Abs(res.Opportunity.ProfitPercentage-tt.wantProfit) > 0.05 {
				t.Errorf("ProfitPercentage = %.3f, want ~%.2f", res.Opportunity.ProfitPercentage, tt.wantProfit)
			}
		})
	}
}

func TestDetectEqualPayout(t *testing.T) {
	qs := []quotes.Quote{
		q("A", "home", 2.75), q("B", "draw", 3.9), q("C", "away", 3.4),
		q("D", "home", 2.60), q("E", "away", 3.55),
	}

	for _, stake := range []float64{1, 100, 1234.56, 1e6} {
		res, err := Detect([]string{"home", "draw", "away"}, qs, stake)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Status != Found {
			t.Fatalf("expected arbitrage, total implied %.4f", res.TotalImpliedProbability)
		}

		opp := res.Opportunity
		var stakeSum, shareSum float64
		for _, leg := range opp.Legs {
			p := leg.Stake * leg.OddsDecimal
			if math.Abs(p-opp.Payout)/opp.Payout > 1e-6 {
				t.Errorf("leg %s payout %.6f differs from %.6f", leg.Outcome, p, opp.Payout)
			}
			stakeSum += leg.Stake
			shareSum += leg.StakePercentage
		}
		if math.Abs(stakeSum-stake)/stake > 1e-9 {
			t.Errorf("leg stakes sum to %v, want %v", stakeSum, stake)
		}
		if math.Abs(shareSum-1) > 1e-9 {
			t.Errorf("stake percentages sum to %v, want 1", shareSum)
		}
		if math.Abs(opp.GuaranteedProfit-(opp.Payout-stake)) > 1e-9 {
			t.Errorf("GuaranteedProfit = %v, want payout - stake = %v", opp.GuaranteedProfit, opp.Payout-stake)
		}
	}
}

func TestDetectLegOrderFollowsOutcomes(t *testing.T) {
	qs := []quotes.Quote{q("A", "home", 2.1), q("B", "away", 2.1)}

	res, err := Detect([]string{"away", "home"}, qs, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Opportunity.Legs[0].Outcome != "away" || res.Opportunity.Legs[1].Outcome != "home" {
		t.Errorf("legs ordered %s,%s, want away,home",
			res.Opportunity.Legs[0].Outcome, res.Opportunity.Legs[1].Outcome)
	}
}

func TestDetectIdempotent(t *testing.T) {
	qs := []quotes.Quote{
		q("A", "home", 2.2), q("B", "home", 2.15),
		q("C", "away", 2.05), q("D", "away", 2.05),
	}

	first, err := Detect(nil, qs, 250)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Detect(nil, qs, 250)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Detect is not deterministic:\n%+v\n%+v", first.Opportunity, second.Opportunity)
	}
}

func TestDetectErrors(t *testing.T) {
	tests := []struct {
		name     string
		quotes   []quotes.Quote
		outcomes []string
		stake    float64
		want     error
	}{
		{
			name:     "missing outcome",
			quotes:   []quotes.Quote{q("A", "home", 2.5), q("B", "away", 2.5)},
			outcomes: []string{"home", "draw", "away"},
			stake:    100,
			want:     quotes.ErrIncompleteMarket,
		},
		{
			name:   "one outcome only",
			quotes: []quotes.Quote{q("A", "home", 2.5), q("B", "home", 2.6)},
			stake:  100,
			want:   quotes.ErrIncompleteMarket,
		},
		{
			name:   "invalid odds",
			quotes: []quotes.Quote{q("A", "home", 1.0), q("B", "away", 3.0)},
			stake:  100,
			want:   odds.ErrInvalidOdds,
		},
		{
			name:   "zero stake",
			quotes: []quotes.Quote{q("A", "home", 2.1), q("B", "away", 2.1)},
			stake:  0,
			want:   odds.ErrInvalidStake,
		},
		{
			name: "mixed markets",
			quotes: []quotes.Quote{
				q("A", "home", 2.1),
				{ProviderID: "B", MarketType: "spread", Outcome: "away", OddsDecimal: 2.1},
			},
			stake: 100,
			want:  ErrMixedMarkets,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Detect(tt.outcomes, tt.quotes, tt.stake)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}
