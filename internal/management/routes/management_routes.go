package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/bematende/bematende-backend/internal/common/middlewares"
	"github.com/bematende/bematende-backend/internal/management/controllers"
)

// RegisterAuthRoutes: register dan login terbuka, sisanya butuh token.
func RegisterAuthRoutes(api *echo.Group, ac *controllers.AuthController, auth echo.MiddlewareFunc) {
	g := api.Group("/auth")
	g.POST("/register", ac.Register)
	g.POST("/login", ac.Login)
	g.POST("/logout", ac.Logout, auth)
	g.GET("/me", ac.Me, auth)
}

// RegisterManagementRoutes: daftar unit boleh dibaca semua petugas,
// perubahan unit dan user hanya untuk admin.
func RegisterManagementRoutes(api *echo.Group, fc *controllers.FacilityController, uc *controllers.UserController, auth echo.MiddlewareFunc) {
	admin := middlewares.RequireAdmin()

	facilities := api.Group("/facilities", auth)
	facilities.GET("", fc.ListFacilities)
	facilities.POST("", fc.AddFacility, admin)
	facilities.PUT("/:id", fc.UpdateFacility, admin)
	facilities.DELETE("/:id", fc.DeleteFacility, admin)

	users := api.Group("/users", auth, admin)
	users.GET("", uc.ListUsers)
	users.PUT("/:username/facility", uc.UpdateUserFacility)
}
