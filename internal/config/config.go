// Package config loads application configuration from environment variables.
package config

import (
	"log"     // reports configuration errors and halts startup
	"os"      // access to environment variables
	"strconv" // converts numeric settings
	"time"    // durations for retries and shutdown

	"github.com/shopspring/decimal" // exact currency amounts
)

// Config holds the runtime settings every process needs.  Required values
// are read with must/mustInt and abort startup when missing; the rest fall
// back to defaults.
type Config struct {
	Env            string // application environment (dev, test, prod)
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (may be empty)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token lifetime in minutes
	RefreshTTLDays int    // refresh token lifetime in days
	BcryptCost     int    // bcrypt cost for password hashing

	// WalletDefaultBalance is the test credit every new wallet opens with.
	WalletDefaultBalance decimal.Decimal
	// BookingMaxAttempts bounds retries of a booking unit of work that lost
	// a row-lock race; BookingRetryBackoff is the base delay between them.
	BookingMaxAttempts  int
	BookingRetryBackoff time.Duration

	EventBuffer  int           // booking events held while the broker is slow
	EventTimeout time.Duration // budget for delivering one booking event

	ShutdownTimeout time.Duration // grace period for in-flight requests
	Log             LogConfig     // rotating process log
}

// LogConfig controls the rotating process log.
type LogConfig struct {
	File       string // path of the active log file
	MaxSizeMB  int    // rotate after this many megabytes
	MaxBackups int    // rotated files to keep
	MaxAgeDays int    // delete rotated files older than this
	Compress   bool   // gzip rotated files
}

// Load reads Config from the environment.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),                   // environment (dev/test/prod)
		Port:           must("APP_PORT"),                  // port to bind the HTTP server
		DBUser:         must("DB_USER"),                   // database user
		DBPass:         os.Getenv("DB_PASS"),              // database password (empty allowed)
		DBHost:         must("DB_HOST"),                   // database host
		DBPort:         must("DB_PORT"),                   // database port
		DBName:         must("DB_NAME"),                   // database name
		JWTSecret:      must("JWT_SECRET"),                // secret used for signing JWTs
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),   // TTL for access tokens in minutes
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"), // TTL for refresh tokens in days
		BcryptCost:     mustInt("BCRYPT_COST"),            // bcrypt cost factor

		WalletDefaultBalance: envDecimal("WALLET_DEFAULT_BALANCE", decimal.NewFromInt(500)),
		BookingMaxAttempts:   envInt("BOOKING_MAX_ATTEMPTS", 3),
		BookingRetryBackoff:  envDur("BOOKING_RETRY_BACKOFF", 50*time.Millisecond),
		EventBuffer:          envInt("EVENT_BUFFER", 256),
		EventTimeout:         envDur("EVENT_TIMEOUT", 5*time.Second),
		ShutdownTimeout:      envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
		Log:                  LoadLogConfig(),
	}
}

// LoadLogConfig reads the LOG_* variables.
func LoadLogConfig() LogConfig {
	return LogConfig{
		File:       envStr("LOG_FILE", "logs/app.log"), // relative to the working directory
		MaxSizeMB:  envInt("LOG_MAX_SIZE_MB", 5),
		MaxBackups: envInt("LOG_MAX_BACKUPS", 3),
		MaxAgeDays: envInt("LOG_MAX_AGE_DAYS", 30),
		Compress:   envBool("LOG_COMPRESS", true),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key) // fatal: startup cannot continue
	}
	return v
}

// mustInt is like must but converts the value to an int.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s) // convert to int
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
