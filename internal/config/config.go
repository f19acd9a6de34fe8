package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/guna684/book-shop-project-sub001/internal/pricing"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	MigrationsAuto     bool
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	CORSAllowedOrigins []string

	CurrencyCode string
	Pricing      pricing.Config

	PromoCacheTTL     time.Duration
	PromoValidateRate string
	IdempotencyTTL    time.Duration
	LockTTL           time.Duration
	LockRetryBackoff  time.Duration

	AnalyticsCacheTTL     time.Duration
	AnalyticsDefaultRange int

	KafkaBrokers     []string
	KafkaEventsTopic string

	WorkerConcurrency int
	WorkerMetricsAddr string
	PromoRedeemRetry  int

	CheckoutRate          string
	PaymentServiceKeyHash string
	ShutdownTimeout       time.Duration
	HealthDBTimeout       time.Duration
	HealthRedisTimeout    time.Duration

	AccessCookieName string
	BodyLimitBytes   int64
	SecurityHeaders  bool
	EnableHSTS       bool
	PprofUser        string
	PprofPass        string

	Obs ObsConfig
}

// ObsConfig controls logging, metrics and tracing.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	MetricsEnabled   bool
	MetricsNamespace string
	MetricsBuckets   string
	PprofEnabled     bool
	TracingEnabled   bool
	TracingExporter  string
	OTLPEndpoint     string
	SamplingRatio    float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	taxRate, err := parseDecimal(k.String("PRICING_TAX_RATE"), "0.18")
	if err != nil {
		return nil, fmt.Errorf("PRICING_TAX_RATE: %w", err)
	}
	threshold, err := parseDecimal(k.String("PRICING_FREE_SHIPPING_THRESHOLD"), "500")
	if err != nil {
		return nil, fmt.Errorf("PRICING_FREE_SHIPPING_THRESHOLD: %w", err)
	}
	fee, err := parseDecimal(k.String("PRICING_SHIPPING_FEE"), "50")
	if err != nil {
		return nil, fmt.Errorf("PRICING_SHIPPING_FEE: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		MigrationsAuto:     parseBool(k.String("MIGRATIONS_AUTO")),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          valueOrDefault(k.String("JWT_ISSUER"), "bookstore-api"),
		JWTAudience:        valueOrDefault(k.String("JWT_AUDIENCE"), "bookstore-web"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		CurrencyCode:       strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "INR")),
		Pricing: pricing.Config{
			FreeShippingThreshold: threshold,
			ShippingFee:           fee,
			TaxRate:               taxRate,
		},
		PromoCacheTTL:         parseDuration(k.String("PROMO_CACHE_TTL"), "5m"),
		PromoValidateRate:     valueOrDefault(k.String("PROMO_VALIDATE_RATE"), "20-M"),
		IdempotencyTTL:        parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		LockTTL:               parseDuration(k.String("LOCK_TTL"), "10s"),
		LockRetryBackoff:      parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),
		AnalyticsCacheTTL:     parseDuration(k.String("ANALYTICS_CACHE_TTL"), "5m"),
		AnalyticsDefaultRange: parseInt(k.String("ANALYTICS_DEFAULT_RANGE_DAYS"), 30),
		KafkaBrokers:          splitAndTrim(k.String("KAFKA_BROKERS")),
		KafkaEventsTopic:      valueOrDefault(k.String("KAFKA_EVENTS_TOPIC"), "bookstore.events"),
		WorkerConcurrency:     parseInt(k.String("WORKER_CONCURRENCY"), 5),
		WorkerMetricsAddr:     valueOrDefault(k.String("WORKER_METRICS_ADDR"), ":9091"),
		PromoRedeemRetry:      parseInt(k.String("PROMO_REDEEM_MAX_RETRY"), 10),
		CheckoutRate:          valueOrDefault(k.String("CHECKOUT_RATE"), "10-M"),
		PaymentServiceKeyHash: strings.TrimSpace(k.String("PAYMENT_SERVICE_KEY_HASH")),
		ShutdownTimeout:       parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),
		HealthDBTimeout:       parseDuration(k.String("HEALTH_READY_DB_TIMEOUT"), "500ms"),
		HealthRedisTimeout:    parseDuration(k.String("HEALTH_READY_REDIS_TIMEOUT"), "300ms"),
		AccessCookieName:      valueOrDefault(k.String("ACCESS_COOKIE_NAME"), "access_token"),
		BodyLimitBytes:        int64(parseInt(k.String("HTTP_BODY_LIMIT_BYTES"), 1<<20)),
		SecurityHeaders:       parseBoolDefault(k.String("SECURITY_HEADERS_ENABLED"), true),
		EnableHSTS:            parseBoolDefault(k.String("SECURITY_HSTS_ENABLED"), false),
		PprofUser:             strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
		PprofPass:             strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),
		Obs: ObsConfig{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsEnabled:   parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "bookstore"),
			MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
			PprofEnabled:     parseBoolDefault(k.String("OBS_ENABLE_PPROF"), false),
			TracingEnabled:   parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
			TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		},
	}

	if cfg.Pricing.TaxRate.IsNegative() || cfg.Pricing.ShippingFee.IsNegative() || cfg.Pricing.FreeShippingThreshold.IsNegative() {
		return nil, errors.New("pricing constants must not be negative")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseDecimal(value, fallback string) (decimal.Decimal, error) {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	return decimal.NewFromString(base)
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
