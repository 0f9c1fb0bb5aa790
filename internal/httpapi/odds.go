package httpapi

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"sports-arb-engine/internal/odds"
)

// price is a price in any supported format. Format defaults to american.
type price struct {
	Value  string `json:"value"`
	Format string `json:"format"`
}

func (p price) toDecimal() (float64, error) {
	format, err := odds.ParseFormat(p.Format)
	if err != nil {
		return 0, err
	}
	return odds.ToDecimal(p.Value, format)
}

type convertResponse struct {
	Decimal            float64         `json:"decimal"`
	American           string          `json:"american"`
	Fractional         string          `json:"fractional"`
	ImpliedProbability decimal.Decimal `json:"implied_probability"`
}

func convertAll(d float64) (convertResponse, error) {
	american, err := odds.FormatOdds(d, odds.FormatAmerican)
	if err != nil {
		return convertResponse{}, err
	}
	fractional, err := odds.FormatOdds(d, odds.FormatFractional)
	if err != nil {
		return convertResponse{}, err
	}
	implied, err := odds.ImpliedProbability(d)
	if err != nil {
		return convertResponse{}, err
	}
	return convertResponse{
		Decimal:            d,
		American:           american,
		Fractional:         fractional,
		ImpliedProbability: prob(implied),
	}, nil
}

// ConvertOdds renders one price in every format.
func (h *Handler) ConvertOdds(w http.ResponseWriter, r *http.Request) {
	var req price
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	d, err := req.toDecimal()
	if err != nil {
		h.fail(w, err)
		return
	}
	resp, err := convertAll(d)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

type payoutRequest struct {
	Stake float64 `json:"stake"`
	price
}

type payoutResponse struct {
	Stake       decimal.Decimal `json:"stake"`
	OddsDecimal float64         `json:"odds_decimal"`
	Payout      decimal.Decimal `json:"payout"`
	Profit      decimal.Decimal `json:"profit"`
}

// Payout returns what a stake returns at a price.
func (h *Handler) Payout(w http.ResponseWriter, r *http.Request) {
	var req payoutRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	d, err := req.toDecimal()
	if err != nil {
		h.fail(w, err)
		return
	}
	payout, err := odds.Payout(req.Stake, d)
	if err != nil {
		h.fail(w, err)
		return
	}
	profit, err := odds.Profit(req.Stake, d)
	if err != nil {
		h.fail(w, err)
		return
	}

	respondJSON(w, http.StatusOK, payoutResponse{
		Stake:       money(req.Stake),
		OddsDecimal: d,
		Payout:      money(payout),
		Profit:      money(profit),
	})
}

type marginRequest struct {
	Prices []string `json:"prices"`
	Format string   `json:"format"`
}

type marginResponse struct {
	ImpliedTotal      decimal.Decimal   `json:"implied_total"`
	Overround         decimal.Decimal   `json:"overround"`
	MarginPct         decimal.Decimal   `json:"margin_pct"`
	FairProbabilities []decimal.Decimal `json:"fair_probabilities"`
	// Power-method probabilities, two-way markets only
	FairProbabilitiesPower []decimal.Decimal `json:"fair_probabilities_power,omitempty"`
}

// Margin reports the bookmaker margin of a full market and its vig-free
// probabilities.
func (h *Handler) Margin(w http.ResponseWriter, r *http.Request) {
	var req marginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	decimals := make([]float64, len(req.Prices))
	for i, v := range req.Prices {
		d, err := price{Value: v, Format: req.Format}.toDecimal()
		if err != nil {
			h.fail(w, fmt.Errorf("price %d: %w", i, err))
			return
		}
		decimals[i] = d
	}

	overround, err := odds.Overround(decimals)
	if err != nil {
		h.fail(w, err)
		return
	}
	fair, err := odds.FairProbabilities(decimals)
	if err != nil {
		h.fail(w, err)
		return
	}

	resp := marginResponse{
		ImpliedTotal: prob(overround + 1),
		Overround:    prob(overround),
		MarginPct:    pct(overround * 100),
	}
	for _, p := range fair {
		resp.FairProbabilities = append(resp.FairProbabilities, prob(p))
	}
	if len(decimals) == 2 {
		a, b, err := odds.FairProbabilitiesPower(decimals[0], decimals[1])
		if err == nil {
			resp.FairProbabilitiesPower = []decimal.Decimal{prob(a), prob(b)}
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
