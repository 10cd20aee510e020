package middleware

import (
	"net/http"
	"strings"

	"github.com/azamatbayne/user-service/internal/domain"
	ctxlog "github.com/azamatbayne/user-service/internal/log"
	"github.com/gin-gonic/gin"
)

const (
	errUnauthorized = "Unauthorized"

	principalKey = "principal"
)

// tokenDecoder is the slice of the signer the middleware needs.
// Defined here (point of use) so tests can inject a fake.
type tokenDecoder interface {
	Decode(raw string) (*domain.Principal, error)
}

// Auth validates a Bearer JWT and sets the authenticated principal in the
// gin context.
func Auth(decoder tokenDecoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		principal, err := decoder.Decode(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		c.Set(principalKey, principal)
		c.Request = c.Request.WithContext(ctxlog.WithUserID(c.Request.Context(), principal.ID))
		c.Next()
	}
}

// Principal returns the authenticated principal set by Auth, or nil when the
// request is anonymous.
func Principal(c *gin.Context) *domain.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*domain.Principal)
	return p
}
