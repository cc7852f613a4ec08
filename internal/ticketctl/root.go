// Package ticketctl implements the operator CLI for the auth server:
// schema migrations, admin account bootstrap and session revocation.
package ticketctl

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/ticketdesk/internal/logging"
	"github.com/dmitrijs2005/ticketdesk/internal/server"
	"github.com/dmitrijs2005/ticketdesk/internal/server/config"
	"github.com/dmitrijs2005/ticketdesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ticketdesk/internal/server/services"
)

var errNoDSN = errors.New("database DSN is required (DATABASE_DSN or database_dsn in the config file)")

// Deps are the seams the commands run through.
type Deps struct {
	LoadConfig func(path string) (*config.Config, error)
	Open       func(ctx context.Context, dsn string, logger logging.Logger) (repomanager.RepositoryManager, error)
}

// DefaultDeps talks to the database named by the server configuration.
func DefaultDeps() Deps {
	return Deps{LoadConfig: config.LoadFile, Open: server.OpenRepositories}
}

type cli struct {
	deps       Deps
	configPath string
}

func NewRootCmd(deps Deps) *cobra.Command {
	c := &cli{deps: deps}

	cmd := &cobra.Command{
		Use:           "ticketctl",
		Short:         "Operator tool for the ticketdesk auth server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file path (JSON or YAML)")

	cmd.AddCommand(c.migrateCmd(), c.userCmd(), c.sessionsCmd())
	return cmd
}

// open loads the config and connects to storage. Migrations are applied as
// part of opening.
func (c *cli) open(ctx context.Context) (*config.Config, repomanager.RepositoryManager, error) {
	cfg, err := c.deps.LoadConfig(c.configPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseDSN == "" {
		return nil, nil, errNoDSN
	}

	repos, err := c.deps.Open(ctx, cfg.DatabaseDSN, logging.Nop{})
	if err != nil {
		return nil, nil, err
	}
	return cfg, repos, nil
}

func (c *cli) withSessions(ctx context.Context, fn func(repos repomanager.RepositoryManager, svc *services.SessionService) error) error {
	cfg, repos, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer repos.Close()

	svc, err := server.NewSessionService(cfg, repos, logging.Nop{})
	if err != nil {
		return err
	}
	return fn(repos, svc)
}
