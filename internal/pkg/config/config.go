// Package config loads the process configuration from STOREFRONT_* environment
// variables.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

const Prefix = "STOREFRONT"

type Config struct {
	AppEnv   string     `envconfig:"APP_ENV" default:"local"`
	LogLevel slog.Level `envconfig:"LOG_LEVEL" default:"info"`

	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"sqlite"`
	StoreDSN    string `envconfig:"STORE_DSN" default:"storefront.db"`

	// RedisAddr enables the checkout idempotency cache when set.
	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	// OTLPEndpoint disables tracing when empty.
	OTLPEndpoint string `envconfig:"OTLP_ENDPOINT"`

	Currency              string          `envconfig:"CURRENCY" default:"USD"`
	TaxRate               decimal.Decimal `envconfig:"TAX_RATE" default:"0.18"`
	FreeShippingThreshold decimal.Decimal `envconfig:"FREE_SHIPPING_THRESHOLD" default:"500"`
	ShippingFee           decimal.Decimal `envconfig:"SHIPPING_FEE" default:"50"`
}

// Load reads the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := c.CurrencyUnit(); err != nil {
		return err
	}
	if c.TaxRate.IsNegative() || c.ShippingFee.IsNegative() || c.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("config: pricing values cannot be negative")
	}
	if c.StoreDSN == "" {
		return fmt.Errorf("config: %s_STORE_DSN is required", Prefix)
	}
	return nil
}

func (c Config) CurrencyUnit() (currency.Unit, error) {
	unit, err := currency.ParseISO(c.Currency)
	if err != nil {
		return currency.Unit{}, fmt.Errorf("config: currency[%s] is not valid: %w", c.Currency, err)
	}
	return unit, nil
}
