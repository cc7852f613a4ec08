package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/ticketdesk/internal/common"
)

// CookieConfig holds the attributes of the refresh token cookie.
type CookieConfig struct {
	Path   string
	Domain string
	Secure bool
	// MaxAge in seconds, normally the refresh TTL.
	MaxAge int
}

// CookieHelper sets, reads and clears the refresh token cookie.
type CookieHelper struct {
	config CookieConfig
}

func NewCookieHelper(config CookieConfig) *CookieHelper {
	return &CookieHelper{config: config}
}

func (h *CookieHelper) SetRefreshToken(c *gin.Context, token string) {
	h.setCookie(c, token, h.config.MaxAge)
}

// ClearRefreshToken expires the cookie with the same name, path and domain
// it was set with.
func (h *CookieHelper) ClearRefreshToken(c *gin.Context) {
	h.setCookie(c, "", -1)
}

// RefreshToken returns the cookie value, or "" when absent.
func (h *CookieHelper) RefreshToken(c *gin.Context) string {
	token, err := c.Cookie(common.RefreshTokenCookieName)
	if err != nil {
		return ""
	}
	return token
}

func (h *CookieHelper) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		common.RefreshTokenCookieName,
		value,
		maxAge,
		h.config.Path,
		h.config.Domain,
		h.config.Secure,
		true,
	)
}
