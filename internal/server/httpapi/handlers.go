package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/ticketdesk/internal/server/services"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"max=200"`
	Address  string `json:"address" binding:"max=500"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type registerResponse struct {
	AccessToken string            `json:"access_token"`
	User        *services.Profile `json:"user"`
}

func (s *API) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.metrics.ObserveAuth("register", "invalid")
		abortJSON(c, http.StatusBadRequest, "invalid request")
		return
	}

	pair, user, err := s.sessions.Register(c.Request.Context(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Address:  req.Address,
	})
	s.metrics.ObserveAuth("register", outcomeFor(err))
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.cookies.SetRefreshToken(c, pair.RefreshToken)
	c.JSON(http.StatusCreated, registerResponse{
		AccessToken: pair.AccessToken,
		User:        services.NewProfile(user),
	})
}

func (s *API) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.metrics.ObserveAuth("login", "invalid")
		abortJSON(c, http.StatusBadRequest, "invalid request")
		return
	}

	pair, err := s.sessions.AuthenticateUser(c.Request.Context(), req.Email, req.Password)
	s.metrics.ObserveAuth("login", outcomeFor(err))
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.cookies.SetRefreshToken(c, pair.RefreshToken)
	c.JSON(http.StatusOK, tokenResponse{AccessToken: pair.AccessToken})
}

// Refresh rotates the cookie token. On failure the cookie is cleared so the
// client stops presenting a dead token.
func (s *API) Refresh(c *gin.Context) {
	raw := s.cookies.RefreshToken(c)
	if raw == "" {
		s.metrics.ObserveAuth("refresh", "rejected")
		s.cookies.ClearRefreshToken(c)
		abortJSON(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	pair, err := s.sessions.RefreshUserTokens(c.Request.Context(), raw)
	s.metrics.ObserveAuth("refresh", outcomeFor(err))
	if err != nil {
		s.cookies.ClearRefreshToken(c)
		s.respondError(c, err)
		return
	}

	s.cookies.SetRefreshToken(c, pair.RefreshToken)
	c.JSON(http.StatusOK, tokenResponse{AccessToken: pair.AccessToken})
}

func (s *API) Logout(c *gin.Context) {
	_ = s.sessions.LogoutUser(c.Request.Context(), s.cookies.RefreshToken(c))
	s.metrics.ObserveAuth("logout", "success")

	s.cookies.ClearRefreshToken(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (s *API) LogoutAll(c *gin.Context) {
	id, _ := identityFrom(c)

	n, err := s.sessions.LogoutAll(c.Request.Context(), id.ID)
	s.metrics.ObserveAuth("logout_all", outcomeFor(err))
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.cookies.ClearRefreshToken(c)
	c.JSON(http.StatusOK, gin.H{"revoked": n})
}

func (s *API) Me(c *gin.Context) {
	id, _ := identityFrom(c)
	s.profile(c, id.ID)
}

func (s *API) GetUser(c *gin.Context) {
	s.profile(c, c.Param("id"))
}

func (s *API) profile(c *gin.Context, userID string) {
	p, err := s.sessions.GetUserProfile(c.Request.Context(), userID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *API) Health(c *gin.Context) {
	if err := s.health.Ping(c.Request.Context()); err != nil {
		s.logger.Warn(c.Request.Context(), "health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
