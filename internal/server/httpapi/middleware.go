package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/ticketdesk/internal/common"
	"github.com/dmitrijs2005/ticketdesk/internal/logging"
	"github.com/dmitrijs2005/ticketdesk/internal/server/models"
	"github.com/dmitrijs2005/ticketdesk/internal/server/services"
)

const identityKey = "identity"

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c *gin.Context) string {
	h := c.GetHeader(common.AuthorizationHeaderName)
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth rejects requests without a valid bearer token and attaches
// the resolved identity to the context.
func (s *API) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		id, err := s.sessions.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.respondError(c, err)
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identityFrom(c)
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		if id.Role != role {
			abortJSON(c, http.StatusForbidden, "forbidden")
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) (*services.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*services.Identity)
	return id, ok
}

// requestLogger logs one line per request through the application logger.
func requestLogger(l logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		l.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
