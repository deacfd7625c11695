package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/bematende/bematende-backend/internal/queue/controllers"
)

// RegisterQueueRoutes memasang endpoint pasien dan antrian. auth adalah JWTMiddleware.
func RegisterQueueRoutes(api *echo.Group, qc *controllers.QueueController, auth echo.MiddlewareFunc) {
	patients := api.Group("/patients", auth)
	patients.POST("", qc.RegisterPatient)
	patients.DELETE("/:id", qc.DeletePatient)
	patients.POST("/:id/start", qc.StartConsultation)
	patients.POST("/:id/complete-pre-consultation", qc.CompletePreConsultation)
	patients.POST("/:id/finalize", qc.Finalize)
	patients.POST("/:id/call", qc.CallPatient)

	queue := api.Group("/queue", auth)
	queue.GET("/report.xlsx", qc.GetReport)
	queue.GET("/:stage", qc.GetQueue)
}
