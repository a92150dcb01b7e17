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

	"github.com/noah-isme/fidelia-cart/internal/pricing"
	"github.com/noah-isme/fidelia-cart/internal/promo"
)

// Cart store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	CartStore          string
	RedisURL           string
	CartTTL            time.Duration
	DeliveryFee        pricing.Money
	ServiceFee         pricing.Money
	CurrencyCode       string
	Promos             promo.Catalog
	CORSAllowedOrigins []string
	PromoRateLimit     string
	IdempotencyTTL     time.Duration
	BodyLimitBytes     int64
	EventsChannel      string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		CartStore:          strings.ToLower(valueOrDefault(k.String("CART_STORE"), StoreMemory)),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CartTTL:            parseDuration(k.String("CART_TTL"), "72h"),
		CurrencyCode:       valueOrDefault(k.String("CURRENCY_CODE"), "IDR"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		PromoRateLimit:     valueOrDefault(k.String("PROMO_RATE_LIMIT"), "10-M"),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		EventsChannel:      valueOrDefault(k.String("EVENTS_CHANNEL"), "fidelia:events"),
	}

	var err error
	if cfg.DeliveryFee, err = parseMoney(k.String("PRICING_DELIVERY_FEE"), 500); err != nil {
		return nil, fmt.Errorf("PRICING_DELIVERY_FEE: %w", err)
	}
	if cfg.ServiceFee, err = parseMoney(k.String("PRICING_SERVICE_FEE"), 200); err != nil {
		return nil, fmt.Errorf("PRICING_SERVICE_FEE: %w", err)
	}
	if cfg.BodyLimitBytes, err = parseMoney(k.String("SECURITY_BODY_LIMIT_BYTES"), 64<<10); err != nil {
		return nil, fmt.Errorf("SECURITY_BODY_LIMIT_BYTES: %w", err)
	}
	if cfg.Promos, err = promo.ParseCatalog(valueOrDefault(k.String("PROMO_CODES"), promo.DefaultCatalog)); err != nil {
		return nil, fmt.Errorf("PROMO_CODES: %w", err)
	}

	switch cfg.CartStore {
	case StoreMemory:
	case StoreRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("REDIS_URL is required when CART_STORE=redis")
		}
	default:
		return nil, fmt.Errorf("unsupported CART_STORE %q", cfg.CartStore)
	}

	return cfg, nil
}

// Fees returns the configured flat order fees.
func (c *Config) Fees() pricing.Fees {
	return pricing.Fees{DeliveryFee: c.DeliveryFee, ServiceFee: c.ServiceFee}
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

func parseMoney(value string, fallback int64) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, errors.New("must not be negative")
	}
	return v, nil
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
