package handler

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/aniladanir/review-messenger-service/internal/domain"
	"github.com/gin-gonic/gin"
)

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"clientIp", c.ClientIP())
	}
}

func requireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tenantID(c) == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: TenantHeader + " header is required"})
			return
		}
		c.Next()
	}
}

// rateLimit counts requests per route and tenant, or per client ip when the
// request names no tenant. A zero rule disables the limit.
func (h *Handler) rateLimit(rule RateRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.limiter == nil || rule.Limit <= 0 || rule.Window <= 0 {
			c.Next()
			return
		}

		subject := tenantID(c)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}
		key := c.FullPath() + "|" + subject

		res, err := h.limiter.Check(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			// fail open while the limiter store is unavailable
			h.logger.Warn("rate limiter unavailable", "key", key, "error", err.Error())
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(res.RetryAfter)))
			h.writeError(c, domain.ErrRateLimited)
			return
		}
		c.Next()
	}
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
