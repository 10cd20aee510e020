package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/azamatbayne/user-service/internal/domain"
	"github.com/azamatbayne/user-service/internal/signer"
	"github.com/azamatbayne/user-service/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
)

const testKey = "middleware-test-secret-32-chars!!"

func init() {
	gin.SetMode(gin.TestMode)
}

// newEngine builds a minimal gin engine with the Auth middleware protecting
// GET /protected. The handler echoes the principal's email so we can assert
// it was set.
func newEngine(s *signer.Signer) *gin.Engine {
	r := gin.New()
	r.GET("/protected", middleware.Auth(s), func(c *gin.Context) {
		p := middleware.Principal(c)
		c.String(http.StatusOK, "%s", p.Email)
	})
	return r
}

func bearerFor(t *testing.T, s *signer.Signer, user domain.PublicUser) string {
	t.Helper()
	token, err := s.Encode(user)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return "Bearer " + token
}

func TestAuth_MissingHeader_Returns401(t *testing.T) {
	s := signer.New([]byte(testKey), time.Hour)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	newEngine(s).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_NonBearerScheme_Returns401(t *testing.T) {
	s := signer.New([]byte(testKey), time.Hour)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	newEngine(s).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_InvalidToken_Returns401(t *testing.T) {
	s := signer.New([]byte(testKey), time.Hour)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	newEngine(s).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_WrongSigningKey_Returns401(t *testing.T) {
	other := signer.New([]byte("different-key-that-is-32-chars!!"), time.Hour)
	tok := bearerFor(t, other, domain.PublicUser{ID: "u1", Email: "a@b.com"})

	s := signer.New([]byte(testKey), time.Hour)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", tok)
	newEngine(s).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_ValidToken_SetsPrincipal(t *testing.T) {
	s := signer.New([]byte(testKey), time.Hour)
	tok := bearerFor(t, s, domain.PublicUser{
		ID:    "u1",
		Email: "a@b.com",
		Roles: []string{domain.RoleRegistered},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", tok)
	newEngine(s).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != "a@b.com" {
		t.Errorf("principal email = %q, want a@b.com", got)
	}
}
