package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"liveness_survey/internal/service"
	"liveness_survey/pkg/logger"
)

type RateLimitMiddleware struct {
	rateLimitService service.RateLimitService
	log              logger.Logger
}

func NewRateLimitMiddleware(rateLimitService service.RateLimitService, log logger.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		rateLimitService: rateLimitService,
		log:              log,
	}
}

// Limit ограничивает частоту по IP в рамках scope: старт сабмишена и логин
// администратора считаются независимо
func (m *RateLimitMiddleware) Limit(scope string, limit, windowSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ratelimit:" + scope + ":" + c.ClientIP()

		allowed, err := m.rateLimitService.CheckLimit(c.Request.Context(), key, limit, windowSeconds)
		if err != nil {
			m.log.Error("rate limit check failed", "scope", scope, "ip", c.ClientIP(), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			c.Abort()
			return
		}

		if !allowed {
			m.log.Warn("rate limit exceeded", "scope", scope, "ip", c.ClientIP())
			c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		count, err := m.rateLimitService.Increment(c.Request.Context(), key, windowSeconds)
		if err != nil {
			m.log.Error("rate limit increment failed", "scope", scope, "error", err)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limit-int(count)))
		c.Next()
	}
}
