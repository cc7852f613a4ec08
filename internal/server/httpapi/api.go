// Package httpapi is the HTTP transport of the auth server, built on gin.
// Refresh tokens travel only in the HttpOnly refresh_token cookie; access
// tokens travel in response bodies and the Authorization header.
package httpapi

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/ticketdesk/internal/logging"
	"github.com/dmitrijs2005/ticketdesk/internal/server/metrics"
	"github.com/dmitrijs2005/ticketdesk/internal/server/models"
	"github.com/dmitrijs2005/ticketdesk/internal/server/services"
)

// SessionManager is the part of services.SessionService the handlers use.
type SessionManager interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.TokenPair, *models.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshUserTokens(ctx context.Context, raw string) (*services.TokenPair, error)
	LogoutUser(ctx context.Context, raw string) error
	LogoutAll(ctx context.Context, userID string) (int64, error)
	GetUserProfile(ctx context.Context, userID string) (*services.Profile, error)
	Authenticate(ctx context.Context, accessToken string) (*services.Identity, error)
}

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type API struct {
	sessions SessionManager
	cookies  *CookieHelper
	health   Pinger
	metrics  *metrics.Metrics
	logger   logging.Logger
}

func New(sessions SessionManager, cookies *CookieHelper, health Pinger, m *metrics.Metrics, logger logging.Logger) *API {
	return &API{
		sessions: sessions,
		cookies:  cookies,
		health:   health,
		metrics:  m,
		logger:   logger.With("module", "http"),
	}
}

// Router builds the gin engine with all routes mounted.
func (s *API) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger), s.metrics.Middleware())

	r.GET("/health", s.Health)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := r.Group("/api/v1")

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", s.Register)
		authGroup.POST("/login", s.Login)
		authGroup.POST("/refresh", s.Refresh)
		authGroup.POST("/logout", s.Logout)
		authGroup.POST("/logout-all", s.RequireAuth(), s.LogoutAll)
		authGroup.GET("/me", s.RequireAuth(), s.Me)
	}

	admin := v1.Group("/admin", s.RequireAuth(), RequireRole(models.RoleAdmin))
	{
		admin.GET("/users/:id", s.GetUser)
	}

	return r
}
