package middleware

import (
	"strconv"
	"time"

	"ecorder/internal/metrics"

	"github.com/labstack/echo/v4"
)

// Metrics はリクエスト数とレイテンシを記録する。
// endpoint はルートのパターン（/orders/:id）で集計する。
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unknown"
			}
			method := c.Request().Method

			metrics.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
			return err
		}
	}
}
