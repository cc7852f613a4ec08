package repomanager

import (
	"context"

	"github.com/dmitrijs2005/ticketdesk/internal/dbx"
	"github.com/dmitrijs2005/ticketdesk/internal/server/repositories/memory"
	"github.com/dmitrijs2005/ticketdesk/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/ticketdesk/internal/server/repositories/users"
)

// InMemoryRepositoryManager serves process-local repositories. The DBTX
// arguments are ignored; every call returns the same shared instances.
type InMemoryRepositoryManager struct {
	users         *memory.UsersRepository
	refreshTokens *memory.RefreshTokensRepository
	tx            *memory.Transactor
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		users:         memory.NewUsersRepository(),
		refreshTokens: memory.NewRefreshTokensRepository(),
		tx:            &memory.Transactor{},
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context) error { return nil }
func (m *InMemoryRepositoryManager) Ping(context.Context) error          { return nil }
func (m *InMemoryRepositoryManager) Close() error                        { return nil }
func (m *InMemoryRepositoryManager) Conn() dbx.DBTX                      { return nil }
func (m *InMemoryRepositoryManager) Transactor() dbx.Transactor          { return m.tx }

func (m *InMemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return m.users
}

func (m *InMemoryRepositoryManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return m.refreshTokens
}

// UsersStore exposes the concrete users repository for test setup.
func (m *InMemoryRepositoryManager) UsersStore() *memory.UsersRepository {
	return m.users
}
