package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"liveness_survey/pkg/logger"
)

type fakeRateLimitService struct {
	counts map[string]int64
	keys   []string
}

func newFakeRateLimitService() *fakeRateLimitService {
	return &fakeRateLimitService{counts: make(map[string]int64)}
}

func (f *fakeRateLimitService) CheckLimit(ctx context.Context, key string, limit int, windowSeconds int) (bool, error) {
	return f.counts[key] < int64(limit), nil
}

func (f *fakeRateLimitService) Increment(ctx context.Context, key string, windowSeconds int) (int64, error) {
	f.counts[key]++
	f.keys = append(f.keys, key)
	return f.counts[key], nil
}

func newLimitedRouter(svc *fakeRateLimitService, scope string, limit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	m := NewRateLimitMiddleware(svc, logger.New("error"))

	r := gin.New()
	r.POST("/"+scope, m.Limit(scope, limit, 60), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestLimitAllowsUnderThreshold(t *testing.T) {
	svc := newFakeRateLimitService()
	r := newLimitedRouter(svc, "submission_start", 3)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/submission_start", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, w.Code)
		}
	}
}

func TestLimitRejectsOverThreshold(t *testing.T) {
	svc := newFakeRateLimitService()
	r := newLimitedRouter(svc, "submission_start", 2)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/submission_start", nil))
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/submission_start", nil))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("X-RateLimit-Remaining = %q, want 0", w.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestLimitScopesKeysIndependently(t *testing.T) {
	svc := newFakeRateLimitService()

	gin.SetMode(gin.TestMode)
	m := NewRateLimitMiddleware(svc, logger.New("error"))
	r := gin.New()
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) }
	r.POST("/start", m.Limit("submission_start", 1, 60), ok)
	r.POST("/login", m.Limit("admin_login", 1, 60), ok)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/start", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("start: status = %d", w.Code)
	}

	// Исчерпанный лимит на старт не трогает лимит логина
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/start", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second start: status = %d, want 429", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("login after start limit: status = %d", w.Code)
	}

	for _, key := range svc.keys {
		if !strings.HasPrefix(key, "ratelimit:submission_start:") && !strings.HasPrefix(key, "ratelimit:admin_login:") {
			t.Fatalf("unexpected key %q", key)
		}
	}
}
