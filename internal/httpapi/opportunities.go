package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sports-arb-engine/internal/arbitrage"
	"sports-arb-engine/internal/book"
	"sports-arb-engine/internal/hedge"
	"sports-arb-engine/internal/quotes"
)

type arbitrageRequest struct {
	Quotes     []quotes.Quote `json:"quotes"`
	Outcomes   []string       `json:"outcomes"`
	TotalStake float64        `json:"total_stake"`
}

// DetectArbitrage checks a caller-supplied set of quotes for one market.
func (h *Handler) DetectArbitrage(w http.ResponseWriter, r *http.Request) {
	var req arbitrageRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.TotalStake == 0 {
		req.TotalStake = h.defaultStake
	}

	res, err := arbitrage.Detect(req.Outcomes, req.Quotes, req.TotalStake)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, presentArbitrage(res))
}

type hedgeRequest struct {
	Bet      hedge.Bet      `json:"bet"`
	Quotes   []quotes.Quote `json:"quotes"`
	Outcomes []string       `json:"outcomes"`
}

// CalculateHedge hedges a caller-supplied bet with the best of the supplied
// quotes.
func (h *Handler) CalculateHedge(w http.ResponseWriter, r *http.Request) {
	var req hedgeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	res, err := hedge.FindForBet(req.Bet, req.Outcomes, req.Quotes)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, presentHedge(res))
}

// LiveArbitrage checks one market of the live book.
// Query params: stake
func (h *Handler) LiveArbitrage(w http.ResponseWriter, r *http.Request) {
	if h.live == nil {
		h.respondError(w, http.StatusServiceUnavailable, "live book unavailable", nil)
		return
	}

	stake := h.defaultStake
	if v := r.URL.Query().Get("stake"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid stake", err)
			return
		}
		stake = f
	}

	key := book.Key{EventID: chi.URLParam(r, "eventID"), MarketType: chi.URLParam(r, "market")}
	res, err := h.live.Arbitrage(key, stake)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, presentArbitrage(res))
}
