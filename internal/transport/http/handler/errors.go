package handler

import (
	"net/http"

	"github.com/azamatbayne/user-service/internal/domain"
	"github.com/gin-gonic/gin"
)

const errInternalServer = "Internal server error"

// statusFor maps error kinds onto HTTP statuses.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindFeatureDisabled:
		return http.StatusForbidden
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func (h *AccountHandler) writeError(c *gin.Context, err error) {
	if e, ok := domain.AsError(err); ok {
		c.JSON(statusFor(e.Kind), gin.H{"error": h.catalog.Message(e.Code)})
		return
	}

	h.logger.ErrorContext(c.Request.Context(), "account operation failed",
		"path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
}
