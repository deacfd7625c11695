package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/bematende/bematende-backend/internal/monitor/controllers"
	"github.com/bematende/bematende-backend/internal/monitor/services"
	"github.com/bematende/bematende-backend/ws"
)

// RegisterMonitorRoutes: endpoint baca dan websocket terbuka untuk layar
// ruang tunggu; pengaturan hanya untuk petugas.
func RegisterMonitorRoutes(e *echo.Echo, api *echo.Group, mc *controllers.MonitorController, hub *ws.Hub, auth echo.MiddlewareFunc) {
	monitor := api.Group("/monitor")
	monitor.GET("/current", mc.GetCurrent)
	monitor.GET("/history", mc.GetHistory)
	monitor.GET("/display", mc.GetDisplay)

	monitor.PUT("/settings", mc.UpdateSettings, auth)
	monitor.PUT("/slides", mc.UpdateSlides, auth)
	monitor.POST("/slides/refresh", mc.RefreshSlides, auth)

	e.GET("/ws/monitor", ws.ServeWS(hub, func() (string, interface{}) {
		return services.EventState, mc.Display.State()
	}))
}
