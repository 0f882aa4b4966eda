package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	RoleAdmin = "ADMIN"
	RoleStaff = "STAFF"
)

// contextに入っているroleがADMIN/STAFFかどうかを確認します。
func StaffRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(string)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//顧客は拒否
			if role != RoleAdmin && role != RoleStaff {
				return c.JSON(http.StatusForbidden, errorJSON("staff only"))
			}

			return next(c)
		}
	}
}
