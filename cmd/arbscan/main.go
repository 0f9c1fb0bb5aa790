package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"sports-arb-engine/internal/alerts"
	"sports-arb-engine/internal/bets"
	"sports-arb-engine/internal/config"
	"sports-arb-engine/internal/feed"
	"sports-arb-engine/internal/httpapi"
	"sports-arb-engine/internal/logger"
	"sports-arb-engine/internal/metrics"
	"sports-arb-engine/internal/outcomes"
	"sports-arb-engine/internal/publish"
	"sports-arb-engine/internal/quotes"
	"sports-arb-engine/internal/scanner"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := config.Validate(cfg); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, err := bets.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("opening bet store", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer store.Close()

	mapper, mapSource := outcomes.Default(), "built-in"
	if cfg.OutcomeMapPath != "" {
		if mapper, err = outcomes.Load(cfg.OutcomeMapPath); err != nil {
			log.Fatal("loading outcome map", zap.Error(err))
		}
		mapSource = cfg.OutcomeMapPath
	}

	publisher, closePublishers, err := buildPublisher(ctx, cfg, log)
	if err != nil {
		log.Fatal("publisher setup", zap.Error(err))
	}
	defer closePublishers()

	source, closeSource := buildSource(cfg, log, m)
	defer closeSource()

	notifier := alerts.NewNotifier(log, cfg.AlertCooldown)
	sc := scanner.New(scanner.Deps{
		Mapper:    mapper,
		Bets:      store,
		Notifier:  notifier,
		Publisher: publisher,
		Metrics:   m,
		Log:       log,
	}, scanner.Config{
		MaxQuoteAge:  cfg.MaxQuoteAge,
		TotalStake:   cfg.DefaultTotalStake,
		MinProfitPct: cfg.MinProfitPct,
	})

	metricsSrv := metrics.StartServer(cfg.MetricsPort, reg, store.Ping)

	api := httpapi.NewHandler(sc, store, log, cfg.DefaultTotalStake)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Routes(cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api server", zap.Error(err))
			cancel()
		}
	}()

	log.Info("arbscan started",
		zap.String("feed", cfg.FeedKind),
		zap.String("max_quote_age", config.FormatMaxQuoteAge(cfg.MaxQuoteAge)),
		zap.Float64("total_stake", cfg.DefaultTotalStake),
		zap.Float64("min_profit_pct", cfg.MinProfitPct),
		zap.String("outcome_map", mapSource),
	)

	quoteCh := make(chan quotes.Quote, 256)
	go func() {
		if err := source.Run(ctx, quoteCh); err != nil && ctx.Err() == nil {
			log.Error("feed stopped", zap.Error(err))
			cancel()
		}
	}()

	if err := sc.Run(ctx, quoteCh); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("scanner stopped", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("arbscan stopped")
}

func buildSource(cfg config.Config, log *zap.Logger, m *metrics.Metrics) (feed.Source, func()) {
	switch cfg.FeedKind {
	case config.FeedWS:
		return &feed.WSSource{URL: cfg.FeedWSURL, Log: log, OnError: m.OnError}, func() {}
	case config.FeedREST:
		return &feed.RESTSource{
			URL:      cfg.FeedRESTURL,
			Interval: cfg.FeedPollInterval,
			Client:   feed.NewRateLimitedClient(cfg.FeedRequestsPerMinute, 10*time.Second, 3),
			Log:      log,
			OnError:  m.OnError,
		}, func() {}
	default:
		reader := feed.NewKafkaReader(cfg.KafkaBrokers, cfg.KafkaTopicQuotes, cfg.KafkaGroupID)
		return &feed.KafkaSource{Reader: reader, Log: log, OnError: m.OnError}, func() { reader.Close() }
	}
}

// buildPublisher wires every configured sink. With none configured,
// opportunities are only logged.
func buildPublisher(ctx context.Context, cfg config.Config, log *zap.Logger) (publish.Publisher, func(), error) {
	var (
		sinks   publish.Multi
		closers []func()
	)

	if cfg.KafkaTopicOpportunities != "" && len(cfg.KafkaBrokers) > 0 {
		w := publish.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopicOpportunities)
		sinks = append(sinks, &publish.KafkaPublisher{Writer: w})
		closers = append(closers, func() { w.Close() })
		log.Info("publishing to kafka", zap.String("topic", cfg.KafkaTopicOpportunities))
	}

	if cfg.RedisAddr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		rdb, err := publish.ConnectRedis(pingCtx, cfg.RedisAddr)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, err
		}
		sinks = append(sinks, &publish.RedisPublisher{Client: rdb, Channel: cfg.RedisChannel})
		closers = append(closers, func() { rdb.Close() })
		log.Info("publishing to redis", zap.String("channel", cfg.RedisChannel))
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(sinks) == 0 {
		return nil, closeAll, nil
	}
	return sinks, closeAll, nil
}
