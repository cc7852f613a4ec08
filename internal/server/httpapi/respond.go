package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/ticketdesk/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps service errors to an HTTP status and a generic message.
// Internal details never reach the client.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "too many attempts"
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, "already exists"
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, "invalid request"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// outcomeFor is the metrics label for err.
func outcomeFor(err error) string {
	if err == nil {
		return "success"
	}
	switch code, _ := statusFor(err); code {
	case http.StatusTooManyRequests:
		return "throttled"
	case http.StatusUnauthorized, http.StatusForbidden:
		return "rejected"
	case http.StatusConflict:
		return "conflict"
	case http.StatusBadRequest:
		return "invalid"
	case http.StatusNotFound:
		return "not_found"
	default:
		return "error"
	}
}

func (s *API) respondError(c *gin.Context, err error) {
	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(code, errorResponse{Error: msg})
}

func abortJSON(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, errorResponse{Error: msg})
}
