package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName         = "XRPWallet"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultLedgerURL       = "wss://s.altnet.rippletest.net:51233"
	defaultSQLitePath      = "wallet.db"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultSubscribeWait   = 2 * time.Second
	defaultSubmitPoll      = time.Second
	defaultPaymentRate     = 10
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Store backends accepted by STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Signers accepted by SIGNER. The node signer sends account seeds to the
// node and is meant for a trusted local node only.
const (
	SignerLocal = "local"
	SignerNode  = "node"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName            string
	AppEnv             string
	Port               string
	LogLevel           string
	LogFormat          string
	LedgerURL          string
	StoreBackend       string
	DatabaseURL        string
	RedisURL           string
	SQLitePath         string
	ShutdownPeriod     time.Duration
	IdempotencyTTL     time.Duration
	SubscribeRetries   int
	SubscribeBackoff   time.Duration
	SubmitPollInterval time.Duration
	PaymentRateLimit   int
	Signer             string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:            getEnv("APP_NAME", defaultAppName),
		AppEnv:             getEnv("APP_ENV", defaultAppEnv),
		Port:               getEnv("PORT", defaultPort),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		LedgerURL:          getEnv("LEDGER_URL", defaultLedgerURL),
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		SQLitePath:         getEnv("SQLITE_PATH", defaultSQLitePath),
		ShutdownPeriod:     defaultShutdownDelay,
		IdempotencyTTL:     defaultIdempotencyTTL,
		SubscribeBackoff:   defaultSubscribeWait,
		SubmitPollInterval: defaultSubmitPoll,
		PaymentRateLimit:   defaultPaymentRate,
		Signer:             strings.ToLower(getEnv("SIGNER", SignerLocal)),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.SubscribeBackoff, err = durationFromEnv("", "SUBSCRIBE_BACKOFF", cfg.SubscribeBackoff); err != nil {
		return Config{}, err
	}
	if cfg.SubmitPollInterval, err = durationFromEnv("", "SUBMIT_POLL_INTERVAL", cfg.SubmitPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.SubscribeRetries, err = intFromEnv("SUBSCRIBE_RETRIES", 0); err != nil {
		return Config{}, err
	}
	if cfg.PaymentRateLimit, err = intFromEnv("PAYMENT_RATE_LIMIT", cfg.PaymentRateLimit); err != nil {
		return Config{}, err
	}

	if cfg.LedgerURL == "" {
		return Config{}, fmt.Errorf("LEDGER_URL must be set")
	}

	if cfg.Signer != SignerLocal && cfg.Signer != SignerNode {
		return Config{}, fmt.Errorf("unknown SIGNER %q", cfg.Signer)
	}

	switch cfg.StoreBackend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when STORE_BACKEND=%s", BackendRedis)
		}
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when STORE_BACKEND=%s", BackendPostgres)
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationFromEnv prefers whole seconds in secondsKey over a Go duration in
// durationKey. Either key may be empty.
func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return n, nil
}
