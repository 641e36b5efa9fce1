// Package config handles configuration for the server, including defaults,
// a JSON file overlay, environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultSecretKey is the development signing key. The app warns when it is
// still in use at startup.
const DefaultSecretKey = "your_secret_key"

// Config holds runtime settings for the homesite server.
//
// Fields:
//   - EndpointAddrHTTP / EndpointAddrGRPC: bind addresses of the public HTTP API
//     and the internal gRPC API.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory store.
//   - SecretKey: HMAC secret for signing JWTs (HS256).
//   - AccessTokenValidityDuration: session token lifetime.
//   - BcryptCost: work factor for password hashes.
//   - RedisAddr / RedisPassword / RedisDB: backing store for the auth rate
//     limiter. Empty address keeps the limiter in process.
//   - AuthRateLimit / AuthRateWindow: requests per client allowed on the
//     register and login routes per window. Zero disables limiting.
type Config struct {
	EndpointAddrHTTP            string
	EndpointAddrGRPC            string
	DatabaseDSN                 string
	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	BcryptCost                  int
	LogLevel                    string
	LogFormat                   string
	RedisAddr                   string
	RedisPassword               string
	RedisDB                     int
	AuthRateLimit               int
	AuthRateWindow              time.Duration
	ShutdownTimeout             time.Duration
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":5050"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = ""
	c.SecretKey = DefaultSecretKey
	c.AccessTokenValidityDuration = time.Hour
	c.BcryptCost = 10
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.RedisAddr = ""
	c.RedisPassword = ""
	c.RedisDB = 0
	c.AuthRateLimit = 20
	c.AuthRateWindow = time.Minute
	c.ShutdownTimeout = 10 * time.Second
}

// LoadConfig applies defaults, then the optional JSON file, then the
// environment (including a .env file), then command-line flags. Later
// sources override earlier ones.
func LoadConfig() (*Config, error) {
	args := os.Args[1:]

	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, fmt.Errorf("json config: %w", err)
	}
	if err := parseEnv(cfg); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key must not be empty"))
	}
	if c.AccessTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("access token validity must be positive"))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("bcrypt cost must be in [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.AuthRateLimit < 0 {
		errs = append(errs, errors.New("auth rate limit must not be negative"))
	}
	if c.AuthRateLimit > 0 && c.AuthRateWindow <= 0 {
		errs = append(errs, errors.New("auth rate window must be positive"))
	}
	if c.EndpointAddrHTTP == "" {
		errs = append(errs, errors.New("http address must not be empty"))
	}
	return errors.Join(errs...)
}

// UsesDefaultSecret reports whether the development signing key is active.
func (c *Config) UsesDefaultSecret() bool {
	return c.SecretKey == DefaultSecretKey
}
