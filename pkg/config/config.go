// Package config loads binary configuration from environment variables,
// following the env-var-first style used across this codebase's
// cmd/*/main.go entrypoints, with an optional YAML scheduling profile
// layered on top for full-plan-mode scheduling.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full set of recognized environment variables.
type Config struct {
	Addr string
	Env  string

	RedisURL           string
	HeliusWebhookSecret string
	ActionsBaseURL     string
	RPCURL             string

	WorkerConcurrency int
	LogLevel          string

	AutoFinalizeRelease bool
	AutoFinalizeRefund  bool

	NotifyDriver         string
	NotifyDialectKey     string
	NotifyDialectBaseURL string

	SchedulingProfilePath string

	ShutdownTimeout time.Duration
	PortTimeout     time.Duration
}

// ErrMissingRequired is returned by Load when a required variable is unset.
type ErrMissingRequired struct{ Var string }

func (e *ErrMissingRequired) Error() string {
	return fmt.Sprintf("config: required environment variable %s is not set", e.Var)
}

// Load reads Config from the environment. REDIS_URL and
// HELIUS_WEBHOOK_SECRET are required; everything else has a default.
func Load() (Config, error) {
	redisURL := strings.TrimSpace(os.Getenv("REDIS_URL"))
	if redisURL == "" {
		return Config{}, &ErrMissingRequired{Var: "REDIS_URL"}
	}
	secret := strings.TrimSpace(os.Getenv("HELIUS_WEBHOOK_SECRET"))
	if secret == "" {
		return Config{}, &ErrMissingRequired{Var: "HELIUS_WEBHOOK_SECRET"}
	}

	return Config{
		Addr: getenv("ADDR", ":8080"),
		Env:  getenv("ESCROW_ENV", "local"),

		RedisURL:            redisURL,
		HeliusWebhookSecret: secret,
		ActionsBaseURL:      getenv("ACTIONS_BASEURL", ""),
		RPCURL:              getenv("RPC_URL", ""),

		WorkerConcurrency: intFromEnv("WORKER_CONCURRENCY", 5),
		LogLevel:          getenv("LOG_LEVEL", "info"),

		AutoFinalizeRelease: boolFromEnv("AUTO_FINALIZE_RELEASE", false),
		AutoFinalizeRefund:  boolFromEnv("AUTO_FINALIZE_REFUND", false),

		NotifyDriver:         getenv("NOTIFY_DRIVER", "noop"),
		NotifyDialectKey:     getenv("NOTIFY_DIALECT_KEY", ""),
		NotifyDialectBaseURL: getenv("NOTIFY_DIALECT_BASEURL", ""),

		SchedulingProfilePath: getenv("SCHEDULING_PROFILE_PATH", ""),

		ShutdownTimeout: msDuration("SHUTDOWN_TIMEOUT_MS", 10000),
		PortTimeout:     msDuration("PORT_TIMEOUT_MS", 6000),
	}, nil
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func intFromEnv(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func msDuration(k string, defMS int) time.Duration {
	ms := intFromEnv(k, defMS)
	return time.Duration(ms) * time.Millisecond
}

// boolFromEnv accepts true/1/yes/on (case-insensitive) as true; anything
// else, including unset, is false unless def is true and the variable
// is unset.
func boolFromEnv(k string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(k)))
	if v == "" {
		return def
	}
	switch v {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
