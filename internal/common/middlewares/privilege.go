package middlewares

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireAdmin hanya meneruskan request dari user dengan role admin.
// Harus dipasang setelah JWTMiddleware.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"status":  http.StatusUnauthorized,
					"message": "Missing or invalid JWT claims",
					"data":    nil,
				})
			}
			if !claims.IsAdmin() {
				return c.JSON(http.StatusForbidden, echo.Map{
					"status":  http.StatusForbidden,
					"message": "Admin access required",
					"data":    nil,
				})
			}
			return next(c)
		}
	}
}
