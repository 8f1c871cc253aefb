package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"liveness_survey/internal/service"
	apperrors "liveness_survey/pkg/errors"
	"liveness_survey/pkg/jwt"
	"liveness_survey/pkg/logger"
)

type fakeAuthService struct {
	claims map[string]*jwt.Claims
}

func (f *fakeAuthService) Login(ctx context.Context, password string) (*service.LoginResponse, error) {
	return nil, apperrors.ErrInvalidCredentials
}

func (f *fakeAuthService) ValidateToken(ctx context.Context, tokenString string) (*jwt.Claims, error) {
	c, ok := f.claims[tokenString]
	if !ok {
		return nil, apperrors.ErrInvalidToken
	}
	return c, nil
}

func newProtectedRouter(auth service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	m := NewAuthMiddleware(auth, logger.New("error"))

	r := gin.New()
	r.POST("/admin", m.RequireAdmin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestRequireAdminPassesValidToken(t *testing.T) {
	r := newProtectedRouter(&fakeAuthService{claims: map[string]*jwt.Claims{
		"good": {Role: "admin"},
	}})

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestRequireAdminRejectsMissingHeader(t *testing.T) {
	r := newProtectedRouter(&fakeAuthService{claims: map[string]*jwt.Claims{}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRequireAdminRejectsMalformedHeader(t *testing.T) {
	r := newProtectedRouter(&fakeAuthService{claims: map[string]*jwt.Claims{}})

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Basic abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRequireAdminRejectsInvalidToken(t *testing.T) {
	r := newProtectedRouter(&fakeAuthService{claims: map[string]*jwt.Claims{}})

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer bad")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRequireAdminRejectsNonAdminRole(t *testing.T) {
	r := newProtectedRouter(&fakeAuthService{claims: map[string]*jwt.Claims{
		"viewer": {Role: "viewer"},
	}})

	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer viewer")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}
