// Package config handles configuration for the server component:
// defaults, an optional JSON or YAML file, environment variables and
// command-line flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/ticketdesk/internal/logging"
)

// Config holds runtime settings for the ticketdesk auth server.
//
// Fields:
//   - EndpointAddrHTTP / EndpointAddrGRPC: bind addresses for the HTTP API and the gRPC health endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects in-memory storage.
//   - AccessTokenSecret: HMAC secret for signing access tokens (HS256). Do not use the default in prod.
//   - AccessTokenValidityDuration: access token lifetime; 0 issues tokens without exp.
//   - RefreshTokenTTLDays: refresh token lifetime in days.
//   - Cookie*: attributes of the refresh_token cookie.
//   - RedisAddr / LoginMaxAttempts / LoginWindow: login throttling; empty RedisAddr disables it.
type Config struct {
	EndpointAddrHTTP            string
	EndpointAddrGRPC            string
	DatabaseDSN                 string
	AccessTokenSecret           string
	AccessTokenValidityDuration time.Duration
	RefreshTokenTTLDays         int
	CookieSecure                bool
	CookiePath                  string
	CookieDomain                string
	BcryptCost                  int
	MaxActiveSessions           int
	RedisAddr                   string
	LoginMaxAttempts            int
	LoginWindow                 time.Duration
	Env                         string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret is insecure and must be overridden outside local runs.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = ""
	c.AccessTokenSecret = "dev-access-secret"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenTTLDays = 30
	c.CookieSecure = false
	c.CookiePath = "/api/v1/auth"
	c.CookieDomain = ""
	c.BcryptCost = bcrypt.DefaultCost
	c.MaxActiveSessions = 10
	c.RedisAddr = ""
	c.LoginMaxAttempts = 5
	c.LoginWindow = 15 * time.Minute
	c.Env = logging.EnvLocal
}

// RefreshTokenTTL is RefreshTokenTTLDays as a duration.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLDays) * 24 * time.Hour
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.AccessTokenSecret == "" {
		errs = append(errs, errors.New("access token secret is empty"))
	}
	if c.AccessTokenValidityDuration < 0 {
		errs = append(errs, errors.New("access token ttl is negative"))
	}
	if c.RefreshTokenTTLDays <= 0 {
		errs = append(errs, fmt.Errorf("refresh token ttl must be positive, got %d days", c.RefreshTokenTTLDays))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("bcrypt cost %d out of range", c.BcryptCost))
	}
	if c.MaxActiveSessions < 0 {
		errs = append(errs, errors.New("max active sessions is negative"))
	}
	if c.RedisAddr != "" {
		if c.LoginMaxAttempts <= 0 {
			errs = append(errs, fmt.Errorf("login max attempts must be positive, got %d", c.LoginMaxAttempts))
		}
		if c.LoginWindow <= 0 {
			errs = append(errs, fmt.Errorf("login window must be positive, got %s", c.LoginWindow))
		}
	}
	if c.Env != logging.EnvLocal && c.Env != logging.EnvProd {
		errs = append(errs, fmt.Errorf("unknown env %q", c.Env))
	}
	return errors.Join(errs...)
}

// LoadConfig builds a Config from os.Args and the process environment.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

// LoadFile builds a Config from path (optional) and the environment,
// ignoring command-line flags. Used by tools with their own flag parsing.
func LoadFile(path string) (*Config, error) {
	var args []string
	if path != "" {
		args = []string{"-config", path}
	}

	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
