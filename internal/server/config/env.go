package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment variable the server reads.
const EnvPrefix = "HOMESITE_"

// dotenvFiles are loaded before the environment is read. Variables already
// set in the process environment win over the files.
var dotenvFiles = []string{".env"}

// parseEnv overlays HOMESITE_* variables, e.g. HOMESITE_DATABASE_DSN.
// Durations use Go syntax ("1h"); malformed numbers are reported.
func parseEnv(config *Config) error {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	lookupString("HTTP_ADDR", &config.EndpointAddrHTTP)
	lookupString("GRPC_ADDR", &config.EndpointAddrGRPC)
	lookupString("DATABASE_DSN", &config.DatabaseDSN)
	lookupString("SECRET_KEY", &config.SecretKey)
	lookupString("LOG_LEVEL", &config.LogLevel)
	lookupString("LOG_FORMAT", &config.LogFormat)
	lookupString("REDIS_ADDR", &config.RedisAddr)
	lookupString("REDIS_PASSWORD", &config.RedisPassword)

	return errors.Join(
		lookupDuration("ACCESS_TOKEN_TTL", &config.AccessTokenValidityDuration),
		lookupInt("BCRYPT_COST", &config.BcryptCost),
		lookupInt("REDIS_DB", &config.RedisDB),
		lookupInt("AUTH_RATE_LIMIT", &config.AuthRateLimit),
		lookupDuration("AUTH_RATE_WINDOW", &config.AuthRateWindow),
		lookupDuration("SHUTDOWN_TIMEOUT", &config.ShutdownTimeout),
	)
}

func lookupString(key string, dst *string) {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok && v != "" {
		*dst = v
	}
}

func lookupInt(key string, dst *int) error {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = n
	return nil
}

func lookupDuration(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = d
	return nil
}
