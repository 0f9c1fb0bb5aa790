// Package metrics exposes scanner counters for Prometheus.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the scanner's collectors.
type Metrics struct {
	QuotesConsumed prometheus.Counter
	QuotesRejected prometheus.Counter
	Errors         *prometheus.CounterVec
	Opportunities  *prometheus.CounterVec
	ProfitPct      *prometheus.HistogramVec
	BookQuotes     prometheus.Gauge
	ScanDuration   prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QuotesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arb_quotes_consumed_total",
			Help: "Quotes received from the feed.",
		}),
		QuotesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "arb_quotes_rejected_total",
			Help: "Quotes dropped by validation.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arb_errors_total",
			Help: "Errors by stage.",
		}, []string{"stage"}),
		Opportunities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "arb_opportunities_total",
			Help: "Opportunities found by type.",
		}, []string{"type"}),
		ProfitPct: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arb_opportunity_profit_pct",
			Help:    "Profit percentage of found opportunities.",
			Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 10},
		}, []string{"type"}),
		BookQuotes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "arb_book_quotes",
			Help: "Quotes currently held in the book.",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "arb_market_scan_seconds",
			Help:    "Time to re-evaluate one market.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
	}

	reg.MustRegister(m.QuotesConsumed, m.QuotesRejected, m.Errors, m.Opportunities,
		m.ProfitPct, m.BookQuotes, m.ScanDuration)
	return m
}

// OnError counts an error for stage. It matches the feed's error hook.
func (m *Metrics) OnError(stage string) {
	m.Errors.WithLabelValues(stage).Inc()
}

// ObserveOpportunity records a found opportunity.
func (m *Metrics) ObserveOpportunity(typ string, profitPct float64) {
	m.Opportunities.WithLabelValues(typ).Inc()
	m.ProfitPct.WithLabelValues(typ).Observe(profitPct)
}

// HealthFunc reports whether the service can do its job.
type HealthFunc func(ctx context.Context) error

// Handler serves /metrics from gatherer and /healthz from healthFn.
func Handler(gatherer prometheus.Gatherer, healthFn HealthFunc) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if healthFn != nil {
			if err := healthFn(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(fmt.Sprintf("unhealthy: %v", err)))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

// StartServer serves Handler on port in a goroutine. The caller shuts the
// returned server down.
func StartServer(port string, gatherer prometheus.Gatherer, healthFn HealthFunc) *http.Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           Handler(gatherer, healthFn),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		_ = srv.ListenAndServe()
	}()

	return srv
}
