package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bematende/bematende-backend/internal/common/middlewares"
	"github.com/bematende/bematende-backend/internal/common/response"
	"github.com/bematende/bematende-backend/internal/management/models"
	"github.com/bematende/bematende-backend/internal/management/services"
)

type AuthController struct {
	Users *services.UserService
}

func NewAuthController(users *services.UserService) *AuthController {
	return &AuthController{Users: users}
}

func (ac *AuthController) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request payload: "+err.Error())
	}
	user, err := ac.Users.Register(c.Request().Context(), req)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, "User registered", user)
}

func (ac *AuthController) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request payload: "+err.Error())
	}
	if req.Username == "" || req.Password == "" {
		return response.BadRequest(c, "username and password are required")
	}
	session, err := ac.Users.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Login successful", session)
}

// Logout tidak menyimpan apa pun di server; token dibuang oleh klien.
func (ac *AuthController) Logout(c echo.Context) error {
	return response.OK(c, "Logout successful", nil)
}

func (ac *AuthController) Me(c echo.Context) error {
	claims, ok := middlewares.ClaimsFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"status":  http.StatusUnauthorized,
			"message": "Missing or invalid JWT claims",
			"data":    nil,
		})
	}
	user, err := ac.Users.GetByUsername(c.Request().Context(), claims.Username)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Current user retrieved", user)
}
