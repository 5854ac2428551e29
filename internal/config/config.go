package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store drivers accepted by STORE_DRIVER
const (
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

// Config holds the process settings read from the environment at startup
type Config struct {
	Port        string
	StoreDriver string
	BoltPath    string
	DatabaseURL string
	RetryBudget int
	// BidRateLimit is the sustained bid submissions per second; 0 disables limiting
	BidRateLimit float64
	BidRateBurst int
	SeedDemo     bool
	LogLevel     string
}

func defaults() Config {
	return Config{
		Port:         ":8080",
		StoreDriver:  DriverMemory,
		BoltPath:     "auctions.db",
		RetryBudget:  5,
		BidRateLimit: 0,
		BidRateBurst: 20,
		LogLevel:     "info",
	}
}

// Load reads the configuration from environment variables, falling back to defaults
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := defaults()

	if p := getenv("PORT"); p != "" {
		cfg.Port = fmt.Sprintf(":%s", strings.TrimPrefix(p, ":"))
	}

	if d := getenv("STORE_DRIVER"); d != "" {
		cfg.StoreDriver = strings.ToLower(d)
	}
	switch cfg.StoreDriver {
	case DriverMemory, DriverBolt, DriverPostgres:
	default:
		return Config{}, fmt.Errorf("config: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if p := getenv("BOLT_PATH"); p != "" {
		cfg.BoltPath = p
	}
	cfg.DatabaseURL = getenv("DATABASE_URL")
	if cfg.StoreDriver == DriverPostgres && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("config: DATABASE_URL is required for the postgres store")
	}

	if v := getenv("BID_RETRY_BUDGET"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("config: BID_RETRY_BUDGET must be a positive integer, got %q", v)
		}
		cfg.RetryBudget = n
	}

	if v := getenv("BID_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return Config{}, fmt.Errorf("config: BID_RATE_LIMIT must be a non-negative number, got %q", v)
		}
		cfg.BidRateLimit = f
	}

	if v := getenv("BID_RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("config: BID_RATE_BURST must be a positive integer, got %q", v)
		}
		cfg.BidRateBurst = n
	}

	if v := getenv("SEED_DEMO"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("config: SEED_DEMO must be a boolean, got %q", v)
		}
		cfg.SeedDemo = b
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	return cfg, nil
}
