package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Plan identifies a subscription billing interval.
type Plan string

const (
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
)

// ParsePlan normalizes a user-supplied plan name. Unknown values fall back
// to monthly, matching the default selection on the subscribe form.
func ParsePlan(raw string) Plan {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(PlanYearly):
		return PlanYearly
	default:
		return PlanMonthly
	}
}

// Config holds all configuration for the server. It is loaded once at
// startup and never mutated afterwards.
type Config struct {
	BindAddress string
	Port        int

	StripeSecretKey      string
	StripePriceIDMonthly string
	StripePriceIDYearly  string
	BaseURL              string
	BillingReturnURL     string // defaults to BaseURL

	AdminEmail        string
	AdminPassword     string
	AdminPasswordHash string // bcrypt; takes precedence over AdminPassword

	PolygonAPIKey string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables.
// A .env file is loaded if present but not required.
func Load() (*Config, error) {
	// Best-effort .env loading (not required)
	_ = godotenv.Load()

	port, err := envOrDefaultInt("PORT", 8099)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BindAddress:          envOrDefault("BIND_ADDRESS", "0.0.0.0"),
		Port:                 port,
		StripeSecretKey:      strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
		StripePriceIDMonthly: strings.TrimSpace(os.Getenv("STRIPE_PRICE_ID_MONTHLY")),
		StripePriceIDYearly:  strings.TrimSpace(os.Getenv("STRIPE_PRICE_ID_YEARLY")),
		BaseURL:              strings.TrimRight(strings.TrimSpace(os.Getenv("APP_BASE_URL")), "/"),
		BillingReturnURL:     strings.TrimSpace(os.Getenv("BILLING_PORTAL_RETURN_URL")),
		AdminEmail:           strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),
		AdminPassword:        os.Getenv("ADMIN_PASSWORD"),
		AdminPasswordHash:    strings.TrimSpace(os.Getenv("ADMIN_PASSWORD_HASH")),
		PolygonAPIKey:        strings.TrimSpace(os.Getenv("POLYGON_API_KEY")),
		LogLevel:             envOrDefault("LOG_LEVEL", "info"),
		LogFormat:            envOrDefault("LOG_FORMAT", "auto"),
	}
	if cfg.BillingReturnURL == "" {
		cfg.BillingReturnURL = cfg.BaseURL
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// BillingConfigured reports whether the payment integration can be enforced
// at all: secret key, base URL and both price IDs must be present. When it
// returns false the paywall falls back to dev mode.
func (c *Config) BillingConfigured() bool {
	return c.StripeSecretKey != "" &&
		c.BaseURL != "" &&
		c.StripePriceIDMonthly != "" &&
		c.StripePriceIDYearly != ""
}

// PriceID returns the Stripe price ID for the given plan, or "" when that
// plan is not configured.
func (c *Config) PriceID(plan Plan) string {
	switch plan {
	case PlanYearly:
		return c.StripePriceIDYearly
	default:
		return c.StripePriceIDMonthly
	}
}

// AdminPasswordConfigured reports whether an admin unlock path exists.
func (c *Config) AdminPasswordConfigured() bool {
	return c.AdminPasswordHash != "" || c.AdminPassword != ""
}

func (c *Config) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.BaseURL != "" {
		parsed, err := url.Parse(c.BaseURL)
		if err != nil {
			return fmt.Errorf("APP_BASE_URL must be a valid URL: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("APP_BASE_URL must use http or https scheme")
		}
		if parsed.Host == "" {
			return fmt.Errorf("APP_BASE_URL must include a host")
		}
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) (int, error) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
		}
		return n, nil
	}
	return fallback, nil
}
