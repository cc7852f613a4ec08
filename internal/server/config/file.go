package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/dmitrijs2005/ticketdesk/internal/flagx"
	"github.com/dmitrijs2005/ticketdesk/internal/timex"
)

// fileConfig is the DTO read by cleanenv from the config file and the
// environment. Durations go through timex.Duration so both "15m" and
// integer nanoseconds are accepted.
type fileConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http" env:"HTTP_ADDR"`
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc" env:"GRPC_ADDR"`
	DatabaseDSN                 string         `json:"database_dsn" yaml:"database_dsn" env:"DATABASE_DSN"`
	AccessTokenSecret           string         `json:"access_token_secret" yaml:"access_token_secret" env:"JWT_ACCESS_SECRET"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_ttl" yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTLDays         int            `json:"refresh_ttl_days" yaml:"refresh_ttl_days" env:"REFRESH_TTL_DAYS"`
	CookieSecure                bool           `json:"cookie_secure" yaml:"cookie_secure" env:"COOKIE_SECURE"`
	CookiePath                  string         `json:"cookie_path" yaml:"cookie_path" env:"COOKIE_PATH"`
	CookieDomain                string         `json:"cookie_domain" yaml:"cookie_domain" env:"COOKIE_DOMAIN"`
	BcryptCost                  int            `json:"bcrypt_cost" yaml:"bcrypt_cost" env:"BCRYPT_COST"`
	MaxActiveSessions           int            `json:"max_active_sessions" yaml:"max_active_sessions" env:"MAX_ACTIVE_SESSIONS"`
	RedisAddr                   string         `json:"redis_addr" yaml:"redis_addr" env:"REDIS_ADDR"`
	LoginMaxAttempts            int            `json:"login_max_attempts" yaml:"login_max_attempts" env:"LOGIN_MAX_ATTEMPTS"`
	LoginWindow                 timex.Duration `json:"login_window" yaml:"login_window" env:"LOGIN_WINDOW"`
	Env                         string         `json:"env" yaml:"env" env:"ENV"`
}

func fromConfig(c *Config) *fileConfig {
	return &fileConfig{
		EndpointAddrHTTP:            c.EndpointAddrHTTP,
		EndpointAddrGRPC:            c.EndpointAddrGRPC,
		DatabaseDSN:                 c.DatabaseDSN,
		AccessTokenSecret:           c.AccessTokenSecret,
		AccessTokenValidityDuration: timex.Duration{Duration: c.AccessTokenValidityDuration},
		RefreshTokenTTLDays:         c.RefreshTokenTTLDays,
		CookieSecure:                c.CookieSecure,
		CookiePath:                  c.CookiePath,
		CookieDomain:                c.CookieDomain,
		BcryptCost:                  c.BcryptCost,
		MaxActiveSessions:           c.MaxActiveSessions,
		RedisAddr:                   c.RedisAddr,
		LoginMaxAttempts:            c.LoginMaxAttempts,
		LoginWindow:                 timex.Duration{Duration: c.LoginWindow},
		Env:                         c.Env,
	}
}

func (f *fileConfig) apply(c *Config) {
	c.EndpointAddrHTTP = f.EndpointAddrHTTP
	c.EndpointAddrGRPC = f.EndpointAddrGRPC
	c.DatabaseDSN = f.DatabaseDSN
	c.AccessTokenSecret = f.AccessTokenSecret
	c.AccessTokenValidityDuration = f.AccessTokenValidityDuration.Duration
	c.RefreshTokenTTLDays = f.RefreshTokenTTLDays
	c.CookieSecure = f.CookieSecure
	c.CookiePath = f.CookiePath
	c.CookieDomain = f.CookieDomain
	c.BcryptCost = f.BcryptCost
	c.MaxActiveSessions = f.MaxActiveSessions
	c.RedisAddr = f.RedisAddr
	c.LoginMaxAttempts = f.LoginMaxAttempts
	c.LoginWindow = f.LoginWindow.Duration
	c.Env = f.Env
}

// parseFile overlays the file named by -c/-config (if any) and then the
// environment onto config. The DTO is seeded from config, so keys missing
// from both sources keep their current values.
func parseFile(config *Config, args []string) error {
	fc := fromConfig(config)

	path := flagx.ConfigFileFlag(args)
	if path == "" {
		if err := cleanenv.ReadEnv(fc); err != nil {
			return fmt.Errorf("read env: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, fc); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}
