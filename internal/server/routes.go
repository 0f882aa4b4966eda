package server

import (
	"net/http"

	"ecorder/internal/handler"
	"ecorder/internal/metrics"
	"ecorder/internal/middleware"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Handlers はルーティングに載せる各ハンドラ
type Handlers struct {
	Orders      *handler.OrderHandler
	Payments    *handler.PaymentHandler
	AdminOrders *handler.AdminOrderHandler
}

func RegisterRoutes(e *echo.Echo, h Handlers, jwtSecret string, limiter middleware.Limiter, log *zap.Logger) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	//ゲートウェイからの通知（署名で検証）
	h.Payments.RegisterRoutes(e)

	orders := e.Group("/orders", middleware.AuthJWT(jwtSecret))
	h.Orders.RegisterRoutes(orders, middleware.RateLimit(limiter, log))

	admin := e.Group("/admin", middleware.AuthJWT(jwtSecret), middleware.StaffRoleGuard())
	h.AdminOrders.RegisterRoutes(admin)
}
