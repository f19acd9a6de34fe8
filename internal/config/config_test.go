package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":                    "postgres://localhost/bookstore",
		"REDIS_URL":                       "redis://localhost:6379/0",
		"JWT_SECRET":                      "secret",
		"PRICING_TAX_RATE":                "",
		"PRICING_FREE_SHIPPING_THRESHOLD": "",
		"PRICING_SHIPPING_FEE":            "",
		"PROMO_CACHE_TTL":                 "",
		"CORS_ALLOWED_ORIGINS":            "",
		"OBS_ENABLE_PROMETHEUS":           "",
		"OBS_TRACING_SAMPLING_RATIO":      "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, "0.18", cfg.Pricing.TaxRate.String())
	require.Equal(t, "500", cfg.Pricing.FreeShippingThreshold.String())
	require.Equal(t, "50", cfg.Pricing.ShippingFee.String())
	require.Equal(t, 5*time.Minute, cfg.PromoCacheTTL)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.True(t, cfg.Obs.MetricsEnabled)
	require.Equal(t, 1.0, cfg.Obs.SamplingRatio)
	require.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PRICING_TAX_RATE"] = "0.05"
	env["PRICING_FREE_SHIPPING_THRESHOLD"] = "999.99"
	env["PROMO_CACHE_TTL"] = "30s"
	env["CORS_ALLOWED_ORIGINS"] = "https://shop.example, https://admin.example"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, "0.05", cfg.Pricing.TaxRate.String())
	require.Equal(t, "999.99", cfg.Pricing.FreeShippingThreshold.String())
	require.Equal(t, 30*time.Second, cfg.PromoCacheTTL)
	require.Equal(t, []string{"https://shop.example", "https://admin.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadObservabilityOverrides(t *testing.T) {
	env := baseEnv()
	env["OBS_ENABLE_PROMETHEUS"] = "off"
	env["OBS_TRACING_SAMPLING_RATIO"] = "0.25"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.False(t, cfg.Obs.MetricsEnabled)
	require.Equal(t, 0.25, cfg.Obs.SamplingRatio)
}

func TestLoadRejectsBadPricing(t *testing.T) {
	env := baseEnv()
	env["PRICING_TAX_RATE"] = "eighteen"
	_, err := LoadForTests(env)
	require.Error(t, err)

	env["PRICING_TAX_RATE"] = "-0.1"
	_, err = LoadForTests(env)
	require.Error(t, err)
}

func TestLoadRequiresDatabase(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""
	_, err := LoadForTests(env)
	require.EqualError(t, err, "DATABASE_URL is required")
}
