package controllers

import (
	"github.com/labstack/echo/v4"

	"github.com/bematende/bematende-backend/internal/common/response"
	"github.com/bematende/bematende-backend/internal/management/models"
	"github.com/bematende/bematende-backend/internal/management/services"
)

type FacilityController struct {
	Facilities *services.FacilityService
}

func NewFacilityController(facilities *services.FacilityService) *FacilityController {
	return &FacilityController{Facilities: facilities}
}

func (fc *FacilityController) ListFacilities(c echo.Context) error {
	list, err := fc.Facilities.List(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Facilities retrieved", list)
}

func (fc *FacilityController) AddFacility(c echo.Context) error {
	var req models.FacilityRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request payload: "+err.Error())
	}
	f, err := fc.Facilities.Add(c.Request().Context(), req.Name)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, "Facility added", f)
}

func (fc *FacilityController) UpdateFacility(c echo.Context) error {
	var req models.FacilityRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request payload: "+err.Error())
	}
	f, err := fc.Facilities.Update(c.Request().Context(), c.Param("id"), req.Name)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Facility updated", f)
}

func (fc *FacilityController) DeleteFacility(c echo.Context) error {
	if err := fc.Facilities.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Facility deleted", nil)
}
