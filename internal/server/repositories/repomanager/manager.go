package repomanager

import (
	"context"

	"github.com/dmitrijs2005/ticketdesk/internal/dbx"
	"github.com/dmitrijs2005/ticketdesk/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/ticketdesk/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, the
// non-transactional handle, and the Transactor for atomic work.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	Conn() dbx.DBTX
	Transactor() dbx.Transactor

	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
