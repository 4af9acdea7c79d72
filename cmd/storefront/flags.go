package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env"
)

type Config struct {
	Address            string        `env:"RUN_ADDRESS" envDefault:"localhost:8080"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"INFO"`
	DatabaseConnection string        `env:"DATABASE_URI"`
	JWTSecret          string        `env:"JWT_SECRET"`
	GatewayAddress     string        `env:"GATEWAY_ADDRESS" envDefault:"https://sandbox.api.mxmerchant.com/checkout/v3"`
	GatewayKey         string        `env:"GATEWAY_CONSUMER_KEY"`
	GatewaySecret      string        `env:"GATEWAY_CONSUMER_SECRET"`
	GatewayMerchantID  int64         `env:"GATEWAY_MERCHANT_ID"`
	GatewayTimeout     time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"10s"`
	SweepInterval      time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	SweepWorkers       int           `env:"SWEEP_WORKERS" envDefault:"4"`
	StaleIntentAge     time.Duration `env:"STALE_INTENT_AGE" envDefault:"5m"`
}

func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	address := flag.String("a", cfg.Address, "{Host:port} for server")
	loglevel := flag.String("l", cfg.LogLevel, "Log level for server")
	databaseConnection := flag.String("d", cfg.DatabaseConnection, "Database connection string")
	jwtSecret := flag.String("s", cfg.JWTSecret, "Secret for token signature verification")
	gatewayAddress := flag.String("g", cfg.GatewayAddress, "Payment gateway base URL")
	gatewayTimeout := flag.Duration("t", cfg.GatewayTimeout, "Per-call payment gateway timeout")
	sweepInterval := flag.Duration("i", cfg.SweepInterval, "Intent reconciliation sweep interval")
	sweepWorkers := flag.Int("w", cfg.SweepWorkers, "Size of sweep worker pool")

	flag.Parse()

	cfg.Address = *address
	cfg.LogLevel = *loglevel
	cfg.DatabaseConnection = *databaseConnection
	cfg.JWTSecret = *jwtSecret
	cfg.GatewayAddress = *gatewayAddress
	cfg.GatewayTimeout = *gatewayTimeout
	cfg.SweepInterval = *sweepInterval
	cfg.SweepWorkers = *sweepWorkers

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET (or -s) must be set")
	}
	if cfg.GatewayKey == "" || cfg.GatewaySecret == "" {
		return nil, fmt.Errorf("ENV GATEWAY_CONSUMER_KEY and GATEWAY_CONSUMER_SECRET must be set")
	}

	return cfg, nil
}
