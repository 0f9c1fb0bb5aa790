package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Feed kinds.
const (
	FeedKafka = "kafka"
	FeedWS    = "ws"
	FeedREST  = "rest"
)

// Defaults for configuration values.
const (
	DefaultEnv                     = "local"
	DefaultServiceName             = "arbscan"
	DefaultPort                    = "8080"
	DefaultMetricsPort             = "9090"
	DefaultDBPath                  = "/data/bets.db"
	DefaultFeedKind                = FeedKafka
	DefaultKafkaBrokers            = "localhost:9092"
	DefaultKafkaTopicQuotes        = "odds.quotes"
	DefaultKafkaTopicOpportunities = "arb.opportunities"
	DefaultKafkaGroupID            = "arbscan"
	DefaultFeedPollInterval        = 2 * time.Second
	DefaultFeedRequestsPerMinute   = 600
	DefaultRedisChannel            = "opportunities"
	DefaultMaxQuoteAge             = 60 * time.Second
	DefaultTotalStake              = 100.0
	DefaultMinProfitPct            = 0.5
	DefaultAlertCooldown           = 5 * time.Minute
	DefaultCORSAllowedOrigins      = "*"
)

// Config holds all application configuration.
type Config struct {
	Env         string
	ServiceName string
	Port        string
	MetricsPort string
	DBPath      string

	// Quote feed
	FeedKind              string
	KafkaBrokers          []string
	KafkaTopicQuotes      string
	KafkaGroupID          string
	FeedWSURL             string
	FeedRESTURL           string
	FeedPollInterval      time.Duration
	FeedRequestsPerMinute int

	// Opportunity publishing; an empty topic or address disables the sink
	KafkaTopicOpportunities string
	RedisAddr               string
	RedisChannel            string

	OutcomeMapPath string // optional YAML alias file

	// Detection
	MaxQuoteAge       time.Duration
	DefaultTotalStake float64
	MinProfitPct      float64
	AlertCooldown     time.Duration

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables (and .env file if present).
func Load() Config {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	cfg := Config{
		Env:         envOr("ENV", DefaultEnv),
		ServiceName: envOr("SERVICE_NAME", DefaultServiceName),
		Port:        envOr("PORT", DefaultPort),
		MetricsPort: envOr("METRICS_PORT", DefaultMetricsPort),
		DBPath:      envOr("DB_PATH", DefaultDBPath),

		FeedKind:              strings.ToLower(envOr("FEED_KIND", DefaultFeedKind)),
		KafkaBrokers:          splitList(envOr("KAFKA_BROKERS", DefaultKafkaBrokers)),
		KafkaTopicQuotes:      envOr("KAFKA_TOPIC_QUOTES", DefaultKafkaTopicQuotes),
		KafkaGroupID:          envOr("KAFKA_GROUP_ID", DefaultKafkaGroupID),
		FeedWSURL:             os.Getenv("FEED_WS_URL"),
		FeedRESTURL:           os.Getenv("FEED_REST_URL"),
		FeedPollInterval:      DefaultFeedPollInterval,
		FeedRequestsPerMinute: DefaultFeedRequestsPerMinute,

		KafkaTopicOpportunities: envOr("KAFKA_TOPIC_OPPORTUNITIES", DefaultKafkaTopicOpportunities),
		RedisAddr:               os.Getenv("REDIS_ADDR"),
		RedisChannel:            envOr("REDIS_CHANNEL", DefaultRedisChannel),

		OutcomeMapPath: os.Getenv("OUTCOME_MAP_PATH"),

		MaxQuoteAge:       DefaultMaxQuoteAge,
		DefaultTotalStake: DefaultTotalStake,
		MinProfitPct:      DefaultMinProfitPct,
		AlertCooldown:     DefaultAlertCooldown,

		CORSAllowedOrigins: splitList(envOr("CORS_ALLOWED_ORIGINS", DefaultCORSAllowedOrigins)),
	}

	if v := os.Getenv("FEED_POLL_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.FeedPollInterval = time.Duration(ms) * time.Millisecond
		}
	}

	if v := os.Getenv("FEED_REQUESTS_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FeedRequestsPerMinute = n
		}
	}

	if v := os.Getenv("MAX_QUOTE_AGE_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxQuoteAge = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("DEFAULT_TOTAL_STAKE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.DefaultTotalStake = f
		}
	}

	if v := os.Getenv("MIN_PROFIT_PCT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MinProfitPct = f
		}
	}

	if v := os.Getenv("ALERT_COOLDOWN_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AlertCooldown = time.Duration(n) * time.Second
		}
	}

	return cfg
}

// Validate checks that configuration values are within acceptable ranges.
func Validate(cfg Config) error {
	switch cfg.FeedKind {
	case FeedKafka:
		if len(cfg.KafkaBrokers) == 0 || cfg.KafkaTopicQuotes == "" {
			return fmt.Errorf("FEED_KIND=kafka requires KAFKA_BROKERS and KAFKA_TOPIC_QUOTES")
		}
	case FeedWS:
		if cfg.FeedWSURL == "" {
			return fmt.Errorf("FEED_KIND=ws requires FEED_WS_URL")
		}
	case FeedREST:
		if cfg.FeedRESTURL == "" {
			return fmt.Errorf("FEED_KIND=rest requires FEED_REST_URL")
		}
	default:
		return fmt.Errorf("FEED_KIND must be kafka, ws or rest, got %q", cfg.FeedKind)
	}

	if cfg.FeedPollInterval < 10*time.Millisecond {
		return fmt.Errorf("FEED_POLL_INTERVAL_MS must be at least 10ms, got %v", cfg.FeedPollInterval)
	}
	if cfg.FeedRequestsPerMinute <= 0 {
		return fmt.Errorf("FEED_REQUESTS_PER_MINUTE must be positive, got %d", cfg.FeedRequestsPerMinute)
	}
	if cfg.MaxQuoteAge < 0 {
		return fmt.Errorf("MAX_QUOTE_AGE_SEC must be non-negative, got %v", cfg.MaxQuoteAge)
	}
	if cfg.DefaultTotalStake <= 0 {
		return fmt.Errorf("DEFAULT_TOTAL_STAKE must be positive, got %f", cfg.DefaultTotalStake)
	}
	if cfg.MinProfitPct < 0 || cfg.MinProfitPct > 100 {
		return fmt.Errorf("MIN_PROFIT_PCT must be between 0 and 100, got %f", cfg.MinProfitPct)
	}
	if cfg.AlertCooldown < 0 {
		return fmt.Errorf("ALERT_COOLDOWN_SEC must be non-negative, got %v", cfg.AlertCooldown)
	}
	return nil
}

// FormatMaxQuoteAge returns a human-readable string for the staleness setting.
func FormatMaxQuoteAge(maxAge time.Duration) string {
	if maxAge <= 0 {
		return "no limit"
	}
	return maxAge.String()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
