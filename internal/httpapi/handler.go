// Package httpapi exposes the odds tools, arbitrage and hedge calculators,
// the live book and the bet tracker over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"sports-arb-engine/internal/arbitrage"
	"sports-arb-engine/internal/bets"
	"sports-arb-engine/internal/book"
	"sports-arb-engine/internal/hedge"
	"sports-arb-engine/internal/odds"
	"sports-arb-engine/internal/quotes"
)

// LiveMarkets answers questions against the live quote book.
type LiveMarkets interface {
	Arbitrage(key book.Key, totalStake float64) (arbitrage.Result, error)
	Hedge(b hedge.Bet) (hedge.Result, error)
}

// BetStore is the bet tracker.
type BetStore interface {
	Add(ctx context.Context, b bets.Bet) (bets.Bet, error)
	Get(ctx context.Context, id string) (bets.Bet, error)
	List(ctx context.Context, status bets.Status) ([]bets.Bet, error)
	Settle(ctx context.Context, id string, status bets.Status, cashOut float64) (bets.Bet, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	live         LiveMarkets
	bets         BetStore
	log          *zap.Logger
	defaultStake float64
}

// NewHandler creates a handler. live and store may be nil, in which case
// their routes answer 503.
func NewHandler(live LiveMarkets, store BetStore, log *zap.Logger, defaultStake float64) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{live: live, bets: store, log: log, defaultStake: defaultStake}
}

// Routes builds the router.
func (h *Handler) Routes(corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/odds/convert", h.ConvertOdds)
		r.Post("/odds/payout", h.Payout)
		r.Post("/odds/margin", h.Margin)

		r.Post("/arbitrage", h.DetectArbitrage)
		r.Post("/hedge", h.CalculateHedge)
		r.Get("/events/{eventID}/markets/{market}/arbitrage", h.LiveArbitrage)

		r.Post("/bets", h.CreateBet)
		r.Get("/bets", h.ListBets)
		r.Get("/bets/{id}", h.GetBet)
		r.Delete("/bets/{id}", h.DeleteBet)
		r.Post("/bets/{id}/settle", h.SettleBet)
		r.Get("/bets/{id}/hedge", h.BetHedge)
	})

	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}

// HealthCheck reports liveness and, when a bet store is wired, its health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.bets != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.bets.Ping(ctx); err != nil {
			h.respondError(w, http.StatusServiceUnavailable, "database unhealthy", err)
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, bets.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, bets.ErrAlreadySettled):
		return http.StatusConflict
	case errors.Is(err, quotes.ErrIncompleteMarket), errors.Is(err, quotes.ErrNoQuotes):
		return http.StatusUnprocessableEntity
	case errors.Is(err, odds.ErrInvalidOdds), errors.Is(err, odds.ErrParse),
		errors.Is(err, odds.ErrInvalidStake), errors.Is(err, hedge.ErrInvalidHedge),
		errors.Is(err, arbitrage.ErrMixedMarkets), errors.Is(err, bets.ErrInvalidStatus),
		errors.Is(err, bets.ErrInvalidBet):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	h.respondError(w, status, message, err)
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil && status >= http.StatusInternalServerError {
		h.log.Error(message, zap.Error(err))
	}
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
