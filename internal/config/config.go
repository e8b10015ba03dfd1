// Package config loads application configuration from environment
// variables. A .env file in the working directory is applied first when
// present so local development does not need exported variables.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Catalog mode selects which persistence strategy backs the catalog store.
// Exactly one runs per process; the two are never mixed.
const (
	ModeLocal  = "local"  // collections owned outright, persisted to key-value storage
	ModeRemote = "remote" // client-side mirror of the remote booking API
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; the types reflect how the values are used.
type Config struct {
	Env         string // application environment (e.g. "dev", "prod")
	Port        string // HTTP port to listen on
	CatalogMode string // "local" or "remote"

	RedisAddr     string // host:port of the durable key-value store (local mode)
	RedisPassword string // optional Redis password
	RedisDB       int    // Redis database number

	UpstreamURL         string // base URL of the remote booking API (remote mode)
	UpstreamTimeoutSecs int    // per-request timeout against the upstream

	JWTSecret    string // secret used to sign access tokens
	AccessTTLMin int    // access token time-to-live in minutes
	BcryptCost   int    // bcrypt cost for password hashing
	AdminEmail   string // registrations with this email are granted the admin role

	AMQPURL string // RabbitMQ URL; empty disables eventing
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message. Mode-specific
// variables are only required for the selected catalog mode.
func Load() Config {
	_ = godotenv.Load() // a missing .env file is fine

	cfg := Config{
		Env:                 getenv("APP_ENV", "dev"),
		Port:                getenv("APP_PORT", "8081"),
		CatalogMode:         getenv("CATALOG_MODE", ModeLocal),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		RedisDB:             getenvInt("REDIS_DB", 0),
		UpstreamURL:         os.Getenv("UPSTREAM_URL"),
		UpstreamTimeoutSecs: getenvInt("UPSTREAM_TIMEOUT_SECS", 5),
		JWTSecret:           must("JWT_SECRET"),
		AccessTTLMin:        getenvInt("ACCESS_TOKEN_TTL_MIN", 60),
		BcryptCost:          getenvInt("BCRYPT_COST", 10),
		AdminEmail:          os.Getenv("ADMIN_EMAIL"),
		AMQPURL:             os.Getenv("RABBITMQ_URL"),
	}

	if cfg.CatalogMode != ModeLocal && cfg.CatalogMode != ModeRemote {
		log.Fatalf("invalid CATALOG_MODE: %q (want %q or %q)", cfg.CatalogMode, ModeLocal, ModeRemote)
	}
	if cfg.CatalogMode == ModeRemote && cfg.UpstreamURL == "" {
		log.Fatal("UPSTREAM_URL is required when CATALOG_MODE=remote")
	}
	if cfg.UpstreamTimeoutSecs <= 0 {
		log.Fatal("UPSTREAM_TIMEOUT_SECS must be positive")
	}
	return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
