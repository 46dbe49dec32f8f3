package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"coinedge/internal/fair"
)

type Config struct {
	Port        string
	PublicBase  string
	AuditDBPath string

	PlatformSecret string
	AdminToken     string

	BetMin            float64
	BetMax            float64
	CurrencyPrecision int

	BettingDuration time.Duration
	RevealDuration  time.Duration
	InterRoundDelay time.Duration

	SessionTTL    time.Duration
	SweepInterval time.Duration

	ChainLength    int
	RetryAttempts  int
	RetryBaseDelay time.Duration
	CallTimeout    time.Duration

	Table fair.Table
}

func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		PublicBase:  getEnv("PUBLIC_BASE", "ws://localhost:8080"),
		AuditDBPath: getEnv("AUDIT_DB_PATH", "audit.sqlite"),

		PlatformSecret: os.Getenv("PLATFORM_SECRET"),
		AdminToken:     os.Getenv("ADMIN_TOKEN"),

		BetMin:            getFloat("BET_MIN", 0.10),
		BetMax:            getFloat("BET_MAX", 1000),
		CurrencyPrecision: getInt("CURRENCY_PRECISION", 2),

		BettingDuration: getDuration("BETTING_DURATION", 15*time.Second),
		RevealDuration:  getDuration("REVEAL_DURATION", 5*time.Second),
		InterRoundDelay: getDuration("INTER_ROUND_DELAY", 3*time.Second),

		SessionTTL:    getDuration("SESSION_TTL", 24*time.Hour),
		SweepInterval: getDuration("SWEEP_INTERVAL", time.Minute),

		ChainLength:    getInt("CHAIN_LENGTH", fair.DefaultChainLength),
		RetryAttempts:  getInt("RETRY_ATTEMPTS", 3),
		RetryBaseDelay: getDuration("RETRY_BASE_DELAY", 250*time.Millisecond),
		CallTimeout:    getDuration("CALL_TIMEOUT", 5*time.Second),
	}

	if cfg.PlatformSecret == "" || cfg.AdminToken == "" {
		log.Fatal("Missing critical environment variables")
	}

	table, err := fair.NewTable([]fair.Outcome{
		{Label: "heads", Probability: getFloat("PROB_HEADS", 48.65), Multiplier: getFloat("MULT_HEADS", 1.95)},
		{Label: "tails", Probability: getFloat("PROB_TAILS", 48.65), Multiplier: getFloat("MULT_TAILS", 1.95)},
		{Label: "edge", Probability: getFloat("PROB_EDGE", 2.7), Multiplier: getFloat("MULT_EDGE", 18.0)},
	})
	if err != nil {
		log.Fatal("invalid outcome table: ", err)
	}
	cfg.Table = table

	return cfg
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
