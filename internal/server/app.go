// Package server wires the auth service together: storage, token store,
// session service, login throttling, the gin HTTP API and the gRPC health
// endpoint. Run blocks until SIGINT/SIGTERM, then shuts everything down.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/ticketdesk/internal/logging"
	"github.com/dmitrijs2005/ticketdesk/internal/server/auth"
	"github.com/dmitrijs2005/ticketdesk/internal/server/config"
	"github.com/dmitrijs2005/ticketdesk/internal/server/httpapi"
	"github.com/dmitrijs2005/ticketdesk/internal/server/metrics"
	"github.com/dmitrijs2005/ticketdesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ticketdesk/internal/server/services"
	"github.com/dmitrijs2005/ticketdesk/internal/server/throttle"
	"github.com/dmitrijs2005/ticketdesk/internal/server/tokenstore"

	gs "github.com/dmitrijs2005/ticketdesk/internal/server/grpc"
)

const healthProbeInterval = 10 * time.Second

type App struct {
	config   *config.Config
	logger   logging.Logger
	repos    repomanager.RepositoryManager
	redis    *redis.Client
	sessions *services.SessionService
	metrics  *metrics.Metrics
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.Env, os.Stdout)
	if err != nil {
		return nil, err
	}

	repos, err := OpenRepositories(ctx, c.DatabaseDSN, logger)
	if err != nil {
		return nil, err
	}

	sessions, err := NewSessionService(c, repos, logger)
	if err != nil {
		repos.Close()
		return nil, err
	}

	app := &App{config: c, logger: logger, repos: repos, sessions: sessions, metrics: metrics.New()}

	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		sessions.WithLimiter(throttle.New(app.redis, c.LoginMaxAttempts, c.LoginWindow))
		logger.Info(ctx, "login throttling enabled", "redis", c.RedisAddr, "max_attempts", c.LoginMaxAttempts, "window", c.LoginWindow)
	}

	return app, nil
}

// OpenRepositories connects to PostgreSQL and applies migrations, or falls
// back to in-memory storage when dsn is empty.
func OpenRepositories(ctx context.Context, dsn string, logger logging.Logger) (repomanager.RepositoryManager, error) {
	if dsn == "" {
		logger.Warn(ctx, "no database DSN configured, using in-memory storage")
		return repomanager.NewInMemoryRepositoryManager(), nil
	}

	db, err := repomanager.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := repos.RunMigrations(ctx); err != nil {
		repos.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return repos, nil
}

// NewSessionService builds the token store, access token codec and session
// service from c on top of repos.
func NewSessionService(c *config.Config, repos repomanager.RepositoryManager, logger logging.Logger) (*services.SessionService, error) {
	store := tokenstore.New(repos, tokenstore.Options{
		TTL:       c.RefreshTokenTTL(),
		Cost:      c.BcryptCost,
		MaxActive: c.MaxActiveSessions,
	}, logger)

	codec := auth.NewCodec([]byte(c.AccessTokenSecret), c.AccessTokenValidityDuration)

	return services.NewSessionService(repos.Users(repos.Conn()), store, codec, c.BcryptCost, logger)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if app.config.Env == logging.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}

	cookies := httpapi.NewCookieHelper(httpapi.CookieConfig{
		Path:   app.config.CookiePath,
		Domain: app.config.CookieDomain,
		Secure: app.config.CookieSecure,
		MaxAge: int(app.config.RefreshTokenTTL().Seconds()),
	})
	api := httpapi.New(app.sessions, cookies, app.repos, app.metrics, app.logger)

	s := httpapi.NewServer(app.config.EndpointAddrHTTP, api.Router(), app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewHealthServer(app.config.EndpointAddrGRPC, app.repos, healthProbeInterval, app.logger)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.close(context.Background())
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(ctx, "redis close failed", "error", err)
		}
	}
	if err := app.repos.Close(); err != nil {
		app.logger.Error(ctx, "storage close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
