package middlewares

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bematende/bematende-backend/pkg/utils"
)

type contextKey string

const ContextKeyClaims contextKey = "claims"

// JWTMiddleware memvalidasi header "Authorization: Bearer <token>" dan
// menyimpan *utils.Claims di context echo.
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"status":  http.StatusUnauthorized,
					"message": "Authorization header missing",
					"data":    nil,
				})
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"status":  http.StatusUnauthorized,
					"message": "Invalid authorization header",
					"data":    nil,
				})
			}
			claims, err := utils.ValidateJWTToken(secret, parts[1])
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"status":  http.StatusUnauthorized,
					"message": "Invalid token: " + err.Error(),
					"data":    nil,
				})
			}
			c.Set(string(ContextKeyClaims), claims)
			return next(c)
		}
	}
}

// ClaimsFrom mengambil claims yang disimpan JWTMiddleware.
func ClaimsFrom(c echo.Context) (*utils.Claims, bool) {
	claims, ok := c.Get(string(ContextKeyClaims)).(*utils.Claims)
	return claims, ok && claims != nil
}
