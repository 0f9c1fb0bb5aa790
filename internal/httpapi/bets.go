package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sports-arb-engine/internal/bets"
)

type createBetRequest struct {
	EventID      string    `json:"event_id"`
	MarketType   string    `json:"market_type"`
	Outcome      string    `json:"outcome"`
	ProviderID   string    `json:"provider_id"`
	ProviderName string    `json:"provider_name"`
	Stake        float64   `json:"stake"`
	OddsDecimal  float64   `json:"odds_decimal"`
	Odds         *price    `json:"odds,omitempty"` // alternative to odds_decimal
	Notes        string    `json:"notes"`
	PlacedAt     time.Time `json:"placed_at"`
}

type settleRequest struct {
	Status  bets.Status `json:"status"`
	CashOut float64     `json:"cash_out"`
}

func (h *Handler) betStore(w http.ResponseWriter) bool {
	if h.bets == nil {
		h.respondError(w, http.StatusServiceUnavailable, "bet tracking unavailable", nil)
		return false
	}
	return true
}

// CreateBet tracks a bet placed elsewhere.
func (h *Handler) CreateBet(w http.ResponseWriter, r *http.Request) {
	if !h.betStore(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var req createBetRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	d := req.OddsDecimal
	if req.Odds != nil {
		var err error
		if d, err = req.Odds.toDecimal(); err != nil {
			h.fail(w, err)
			return
		}
	}

	b, err := h.bets.Add(ctx, bets.Bet{
		EventID:      req.EventID,
		MarketType:   req.MarketType,
		Outcome:      req.Outcome,
		ProviderID:   req.ProviderID,
		ProviderName: req.ProviderName,
		Stake:        req.Stake,
		OddsDecimal:  d,
		Notes:        req.Notes,
		PlacedAt:     req.PlacedAt,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, b)
}

// ListBets returns tracked bets, newest first.
// Query params: status
func (h *Handler) ListBets(w http.ResponseWriter, r *http.Request) {
	if !h.betStore(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.bets.List(ctx, bets.Status(r.URL.Query().Get("status")))
	if err != nil {
		h.fail(w, err)
		return
	}
	if list == nil {
		list = []bets.Bet{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"bets":  list,
		"count": len(list),
	})
}

// GetBet returns one bet.
func (h *Handler) GetBet(w http.ResponseWriter, r *http.Request) {
	if !h.betStore(w) {
		return
	}
	b, err := h.bets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

// DeleteBet stops tracking a bet.
func (h *Handler) DeleteBet(w http.ResponseWriter, r *http.Request) {
	if !h.betStore(w) {
		return
	}
	if err := h.bets.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SettleBet records the result of a bet.
func (h *Handler) SettleBet(w http.ResponseWriter, r *http.Request) {
	if !h.betStore(w) {
		return
	}

	var req settleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	b, err := h.bets.Settle(r.Context(), chi.URLParam(r, "id"), req.Status, req.CashOut)
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

// BetHedge evaluates the best hedge for a pending bet against the live book.
func (h *Handler) BetHedge(w http.ResponseWriter, r *http.Request) {
	if !h.betStore(w) {
		return
	}
	if h.live == nil {
		h.respondError(w, http.StatusServiceUnavailable, "live book unavailable", nil)
		return
	}

	b, err := h.bets.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if b.Status != bets.StatusPending {
		h.respondError(w, http.StatusConflict, "bet is already settled", nil)
		return
	}

	res, err := h.live.Hedge(b.Position())
	if err != nil {
		h.fail(w, err)
		return
	}
	respondJSON(w, http.StatusOK, presentHedge(res))
}
