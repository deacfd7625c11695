package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bematende/bematende-backend/internal/common/middlewares"
	managementControllers "github.com/bematende/bematende-backend/internal/management/controllers"
	managementRoutes "github.com/bematende/bematende-backend/internal/management/routes"
	monitorControllers "github.com/bematende/bematende-backend/internal/monitor/controllers"
	monitorRoutes "github.com/bematende/bematende-backend/internal/monitor/routes"
	queueControllers "github.com/bematende/bematende-backend/internal/queue/controllers"
	queueRoutes "github.com/bematende/bematende-backend/internal/queue/routes"
	"github.com/bematende/bematende-backend/ws"
)

// Pinger dipenuhi *sql.DB dan *kv.Redis.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Logger    zerolog.Logger
	JWTSecret string

	Queue      *queueControllers.QueueController
	Monitor    *monitorControllers.MonitorController
	Auth       *managementControllers.AuthController
	Facilities *managementControllers.FacilityController
	Users      *managementControllers.UserController
	Hub        *ws.Hub

	Metrics http.Handler
	// Checks dipakai /health; nama -> dependency.
	Checks map[string]Pinger
}

// Init memasang middleware global dan semua routes.
func Init(e *echo.Echo, d Deps) {
	e.HideBanner = true
	e.Use(middlewares.RequestID())
	e.Use(middlewares.Logger(d.Logger))
	e.Use(middlewares.Recovery(d.Logger))

	e.GET("/health", healthHandler(d.Checks))
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	auth := middlewares.JWTMiddleware(d.JWTSecret)
	api := e.Group("/api")

	managementRoutes.RegisterAuthRoutes(api, d.Auth, auth)
	managementRoutes.RegisterManagementRoutes(api, d.Facilities, d.Users, auth)
	queueRoutes.RegisterQueueRoutes(api, d.Queue, auth)
	monitorRoutes.RegisterMonitorRoutes(e, api, d.Monitor, d.Hub, auth)
}

func healthHandler(checks map[string]Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := map[string]string{}
		for name, p := range checks {
			if err := p.PingContext(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}
		message := "healthy"
		if status != http.StatusOK {
			message = "unhealthy"
		}
		return c.JSON(status, echo.Map{
			"status":  status,
			"message": message,
			"data":    results,
		})
	}
}
