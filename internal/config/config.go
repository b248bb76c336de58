package config

import (
	"os"
	"strconv"
	"time"
)

// Tunables for the matching and escrow flow. Everything reads from the
// environment once per call so tests can override values; defaults match
// the production settings.

// SoftLockDuration is the exclusivity window a technician gets after the
// dealer accepts their bid.
func SoftLockDuration() time.Duration {
	return time.Duration(envInt("SOFT_LOCK_SECONDS", 45)) * time.Second
}

// PaymentWindow is how long a dealer has to pay after confirming a soft lock.
func PaymentWindow() time.Duration {
	return time.Duration(envInt("PAYMENT_WINDOW_MINUTES", 30)) * time.Minute
}

// WarrantyHoldPercent is the slice of the technician's net payout retained
// during the warranty window (0-100).
func WarrantyHoldPercent() int64 {
	return int64(envInt("WARRANTY_HOLD_PERCENT", 10))
}

// WarrantyWindow is how long the retained slice stays locked after completion.
func WarrantyWindow() time.Duration {
	return time.Duration(envInt("WARRANTY_WINDOW_DAYS", 30)) * 24 * time.Hour
}

// DefaultCommissionPercent is the platform cut when no commission rule matches.
func DefaultCommissionPercent() int64 {
	return int64(envInt("DEFAULT_COMMISSION_PERCENT", 15))
}

// SweepInterval is the tick period for the cmd/sweeper background runner.
func SweepInterval() time.Duration {
	return time.Duration(envInt("SWEEP_INTERVAL_SECONDS", 30)) * time.Second
}

// SweepToken guards the HTTP sweep endpoint. Empty means the endpoint only
// accepts admin JWTs.
func SweepToken() string {
	return os.Getenv("SWEEP_TOKEN")
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
