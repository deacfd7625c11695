package controllers

import (
	"github.com/labstack/echo/v4"

	"github.com/bematende/bematende-backend/internal/common/response"
	"github.com/bematende/bematende-backend/internal/management/models"
	"github.com/bematende/bematende-backend/internal/management/services"
)

type UserController struct {
	Users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{Users: users}
}

func (uc *UserController) ListUsers(c echo.Context) error {
	users, err := uc.Users.List(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Users retrieved", users)
}

func (uc *UserController) UpdateUserFacility(c echo.Context) error {
	var req models.UpdateUserFacilityRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request payload: "+err.Error())
	}
	user, err := uc.Users.UpdateUserFacility(c.Request().Context(), c.Param("username"), req.FacilityID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "User facility updated", user)
}
