package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pusat-bantuan/helpcenter-auth/pkg/config"
	appErrors "github.com/pusat-bantuan/helpcenter-auth/pkg/errors"
	"github.com/pusat-bantuan/helpcenter-auth/pkg/response"

	"github.com/pusat-bantuan/helpcenter-auth/internal/service"
)

// RateLimit throttles credential endpoints with a fixed window counter in
// Redis, keyed by client IP and route. A Redis failure fails open: losing
// throttling is preferable to locking everyone out of login.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client, metricsSvc *service.MetricsService, logger *zap.Logger) gin.HandlerFunc {
	if !cfg.Enabled || rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	return func(c *gin.Context) {
		key := rateKey(c)

		count, err := rdb.Incr(c.Request.Context(), key).Result()
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		// The window starts at the first hit and is never extended: an
		// expiry on every increment would let steady traffic keep the
		// counter alive forever.
		if count == 1 {
			if err := rdb.Expire(c.Request.Context(), key, window).Err(); err != nil {
				logger.Warn("rate limiter expire failed", zap.String("key", key), zap.Error(err))
			}
		}

		remaining := int64(cfg.Requests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Requests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(cfg.Requests) {
			c.Header("Retry-After", strconv.Itoa(int(window/time.Second)))
			metricsSvc.ObserveRateLimitBlocked()
			response.Error(c, appErrors.ErrTooManyRequests)
			c.Abort()
			return
		}

		c.Next()
	}
}

func rateKey(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return strings.Join([]string{"ratelimit", c.Request.Method, route, ip}, ":")
}
