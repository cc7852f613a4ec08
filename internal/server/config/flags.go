package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/ticketdesk/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-g string     gRPC health bind address
//	-d string     PostgreSQL DSN
//	-s string     access token HMAC secret
//	-t duration   access token validity (e.g., "15m"; 0 disables exp)
//	-r int        refresh token validity, days
//	-e string     environment: local or prod
//
// Args are first filtered with flagx.FilterArgs so flags owned by other
// layers (like -config) do not make parsing fail.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-s", "-t", "-r", "-e"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessTokenSecret, "s", config.AccessTokenSecret, "access token secret")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token validity")
	fs.IntVar(&config.RefreshTokenTTLDays, "r", config.RefreshTokenTTLDays, "refresh token validity (in days)")
	fs.StringVar(&config.Env, "e", config.Env, "environment (local|prod)")

	return fs.Parse(args)
}
