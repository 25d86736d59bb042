// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"time"
)

// Config holds the runtime settings of the booking service.  Each field
// corresponds to an environment variable.
type Config struct {
	Env          string // application environment (dev, prod)
	Port         string // HTTP port to listen on
	DBUser       string
	DBPass       string // optional
	DBHost       string
	DBPort       string
	DBName       string
	JWTSecret    string // secret used to verify manager tokens
	AccessTTLMin int    // lifetime of issued manager tokens

	HoldTTL           time.Duration // lease length of a slot hold
	HoldSweepInterval time.Duration // 0 disables the background sweeper
	FrontendURL       string        // base of the manage link in SMS texts
	LogLevel          string
	LogJSON           bool

	AMQP AMQPConfig
	SMS  SMSConfig
}

// Load reads configuration values from environment variables.  Required
// variables are enforced by must() and a missing value exits the process.
func Load() Config {
	return Config{
		Env:          envStr("APP_ENV", "dev"),
		Port:         envStr("APP_PORT", "8080"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"),
		DBHost:       must("DB_HOST"),
		DBPort:       envStr("DB_PORT", "3306"),
		DBName:       must("DB_NAME"),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60),

		HoldTTL:           envDur("HOLD_TTL", 5*time.Minute),
		HoldSweepInterval: envDur("HOLD_SWEEP_INTERVAL", time.Minute),
		FrontendURL:       os.Getenv("FRONTEND_URL"),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		LogJSON:           envBool("LOG_JSON", false),

		AMQP: LoadAMQPConfig(),
		SMS:  LoadSMSConfig(),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
