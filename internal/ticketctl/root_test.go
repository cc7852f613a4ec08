package ticketctl

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/ticketdesk/internal/logging"
	"github.com/dmitrijs2005/ticketdesk/internal/server"
	"github.com/dmitrijs2005/ticketdesk/internal/server/config"
	"github.com/dmitrijs2005/ticketdesk/internal/server/models"
	"github.com/dmitrijs2005/ticketdesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ticketdesk/internal/server/services"
)

type fixture struct {
	repos *repomanager.InMemoryRepositoryManager
	cfg   *config.Config
	deps  Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{repos: repomanager.NewInMemoryRepositoryManager()}
	f.cfg = &config.Config{}
	f.cfg.LoadDefaults()
	f.cfg.DatabaseDSN = "postgres://test"
	f.cfg.BcryptCost = bcrypt.MinCost

	f.deps = Deps{
		LoadConfig: func(string) (*config.Config, error) { return f.cfg, nil },
		Open: func(context.Context, string, logging.Logger) (repomanager.RepositoryManager, error) {
			return f.repos, nil
		},
	}
	return f
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := NewRootCmd(f.deps)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func stubPassword(t *testing.T, answers ...string) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	readPassword = func(int) ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more input")
		}
		next := answers[0]
		answers = answers[1:]
		return []byte(next), nil
	}
}

func (f *fixture) sessionService(t *testing.T) *services.SessionService {
	t.Helper()
	svc, err := server.NewSessionService(f.cfg, f.repos, logging.Nop{})
	require.NoError(t, err)
	return svc
}

func TestMigrate(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied")
}

func TestMigrate_RequiresDSN(t *testing.T) {
	f := newFixture(t)
	f.cfg.DatabaseDSN = ""

	_, err := f.run(t, "migrate")
	assert.ErrorIs(t, err, errNoDSN)
}

func TestMigrate_ConfigError(t *testing.T) {
	f := newFixture(t)
	f.deps.LoadConfig = func(string) (*config.Config, error) { return nil, errors.New("bad file") }

	_, err := f.run(t, "-c", "x.yaml", "migrate")
	assert.EqualError(t, err, "bad file")
}

func TestCreateAdmin(t *testing.T) {
	f := newFixture(t)
	stubPassword(t, "admin-pass-1", "admin-pass-1")

	out, err := f.run(t, "user", "create-admin", "--email", "root@x.com", "--name", "Root")
	require.NoError(t, err)
	assert.Contains(t, out, "created admin root@x.com")

	user, err := f.repos.UsersStore().FindByEmail(context.Background(), "root@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, "Root", user.Name)

	_, err = f.sessionService(t).AuthenticateUser(context.Background(), "root@x.com", "admin-pass-1")
	assert.NoError(t, err)
}

func TestCreateAdmin_Errors(t *testing.T) {
	t.Run("mismatch", func(t *testing.T) {
		f := newFixture(t)
		stubPassword(t, "admin-pass-1", "admin-pass-2")

		_, err := f.run(t, "user", "create-admin", "--email", "root@x.com")
		assert.ErrorIs(t, err, errPasswordMismatch)
	})

	t.Run("missing email flag", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.run(t, "user", "create-admin")
		assert.Error(t, err)
	})

	t.Run("short password", func(t *testing.T) {
		f := newFixture(t)
		stubPassword(t, "short", "short")

		_, err := f.run(t, "user", "create-admin", "--email", "root@x.com")
		assert.Error(t, err)
	})

	t.Run("duplicate", func(t *testing.T) {
		f := newFixture(t)
		stubPassword(t, "admin-pass-1", "admin-pass-1", "admin-pass-1", "admin-pass-1")

		_, err := f.run(t, "user", "create-admin", "--email", "root@x.com")
		require.NoError(t, err)
		_, err = f.run(t, "user", "create-admin", "--email", "ROOT@x.com")
		assert.ErrorContains(t, err, "already exists")
	})
}

func TestRevokeAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.sessionService(t)

	pair, user, err := svc.Register(ctx, services.RegisterInput{Email: "a@x.com", Password: "password123"})
	require.NoError(t, err)
	_, err = svc.AuthenticateUser(ctx, "a@x.com", "password123")
	require.NoError(t, err)

	out, err := f.run(t, "sessions", "revoke-all", "--email", "a@x.com")
	require.NoError(t, err)
	assert.Contains(t, out, "revoked 2 sessions for "+user.ID)

	_, err = svc.RefreshUserTokens(ctx, pair.RefreshToken)
	assert.Error(t, err)

	out, err = f.run(t, "sessions", "revoke-all", "--user-id", user.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "revoked 0 sessions")
}

func TestRevokeAll_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.run(t, "sessions", "revoke-all")
	assert.Error(t, err, "one of --user-id/--email is required")

	_, err = f.run(t, "sessions", "revoke-all", "--user-id", "x", "--email", "a@x.com")
	assert.Error(t, err)

	_, err = f.run(t, "sessions", "revoke-all", "--email", "ghost@x.com")
	assert.ErrorContains(t, err, "no user with email")
}
