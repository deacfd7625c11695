package controllers

import (
	"github.com/labstack/echo/v4"

	"github.com/bematende/bematende-backend/internal/common/response"
	"github.com/bematende/bematende-backend/internal/monitor/models"
	"github.com/bematende/bematende-backend/internal/monitor/services"
)

type MonitorController struct {
	Channel *services.CallChannel
	Display *services.Display
}

func NewMonitorController(channel *services.CallChannel, display *services.Display) *MonitorController {
	return &MonitorController{Channel: channel, Display: display}
}

func (mc *MonitorController) GetCurrent(c echo.Context) error {
	ev, ok := mc.Channel.Current()
	if !ok {
		return response.OK(c, "No call yet", nil)
	}
	return response.OK(c, "Current call retrieved", ev)
}

func (mc *MonitorController) GetHistory(c echo.Context) error {
	return response.OK(c, "Call history retrieved", mc.Channel.History())
}

func (mc *MonitorController) GetDisplay(c echo.Context) error {
	return response.OK(c, "Display state retrieved", mc.Display.State())
}

func (mc *MonitorController) UpdateSettings(c echo.Context) error {
	var req models.UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request payload: "+err.Error())
	}
	if req.AutoClear == nil && req.AutoClearSeconds == nil {
		return response.BadRequest(c, "autoClear or autoClearSeconds is required")
	}
	settings := mc.Display.UpdateSettings(c.Request().Context(), req)
	return response.OK(c, "Display settings updated", settings)
}

func (mc *MonitorController) UpdateSlides(c echo.Context) error {
	var req models.UpdateSlidesRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request payload: "+err.Error())
	}
	texts, err := mc.Display.SetSlides(c.Request().Context(), req.Texts)
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Slides updated", texts)
}

func (mc *MonitorController) RefreshSlides(c echo.Context) error {
	images := mc.Display.RefreshImages(c.Request().Context())
	return response.OK(c, "Campaign images refreshed", echo.Map{
		"images": images,
		"state":  mc.Display.State(),
	})
}
