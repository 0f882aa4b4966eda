package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Limiter はキーごとに今回のリクエストを許すかを返す
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimit は認証済みユーザー単位で絞る。
// limiter が nil なら素通し、Redis 障害時も通す。
func RateLimit(limiter Limiter, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if limiter == nil {
			return next
		}
		return func(c echo.Context) error {
			key := c.RealIP()
			if uid, ok := c.Get(CtxUserIDKey).(int64); ok {
				key = "user:" + strconv.FormatInt(uid, 10)
			}

			ok, err := limiter.Allow(c.Request().Context(), key)
			if err != nil {
				log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
				return next(c)
			}
			if !ok {
				return c.JSON(http.StatusTooManyRequests, errorJSON("too many requests"))
			}
			return next(c)
		}
	}
}
