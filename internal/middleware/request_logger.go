package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const HeaderRequestID = "X-Request-ID"

// RequestLogger はリクエストIDを振ってアクセスログを出す
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			rid := c.Request().Header.Get(HeaderRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set(CtxRequestIDKey, rid)
			c.Response().Header().Set(HeaderRequestID, rid)

			err := next(c)
			if err != nil {
				//echoのエラーハンドラに書かせてステータスを確定させる
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("request_id", rid),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", c.RealIP()),
			}
			if uid, ok := c.Get(CtxUserIDKey).(int64); ok {
				fields = append(fields, zap.Int64("user_id", uid))
			}

			switch s := c.Response().Status; {
			case s >= 500:
				log.Error("request", append(fields, zap.Error(err))...)
			case s >= 400:
				log.Warn("request", fields...)
			default:
				log.Info("request", fields...)
			}
			return nil
		}
	}
}
