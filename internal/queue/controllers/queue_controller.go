package controllers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bematende/bematende-backend/internal/common/middlewares"
	"github.com/bematende/bematende-backend/internal/common/response"
	"github.com/bematende/bematende-backend/internal/queue/models"
	"github.com/bematende/bematende-backend/internal/queue/services"
)

type QueueController struct {
	Store       *services.PatientStore
	View        *services.QueueView
	Transitions *services.TransitionService
}

func NewQueueController(store *services.PatientStore, view *services.QueueView, transitions *services.TransitionService) *QueueController {
	return &QueueController{Store: store, View: view, Transitions: transitions}
}

// facilityFilter: query facility_id, lalu unit petugas. "all" berarti tanpa filter.
func facilityFilter(c echo.Context) string {
	facilityID := strings.TrimSpace(c.QueryParam("facility_id"))
	if facilityID == "" {
		if claims, ok := middlewares.ClaimsFrom(c); ok {
			facilityID = claims.FacilityID
		}
	}
	if facilityID == "all" {
		return ""
	}
	return facilityID
}

func (qc *QueueController) RegisterPatient(c echo.Context) error {
	var req models.RegisterPatientRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request payload: "+err.Error())
	}
	actorFacility := ""
	if claims, ok := middlewares.ClaimsFrom(c); ok {
		actorFacility = claims.FacilityID
	}
	res := qc.Transitions.Register(c.Request().Context(), req, actorFacility)
	return response.Result(c, http.StatusCreated, "Patient registered", res)
}

func (qc *QueueController) DeletePatient(c echo.Context) error {
	if err := qc.Store.RemoveByID(c.Request().Context(), c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Patient removed", nil)
}

func (qc *QueueController) GetQueue(c echo.Context) error {
	stage, ok := models.ParseStage(c.Param("stage"))
	if !ok {
		return response.BadRequest(c, "stage must be pre_consultation, in_care or finished")
	}
	ctx := c.Request().Context()
	facilityID := facilityFilter(c)

	if stage == models.StageFinished {
		patients, err := qc.View.Finished(ctx, facilityID)
		if err != nil {
			return response.Error(c, err)
		}
		return response.OK(c, "Finished patients retrieved", echo.Map{
			"stage":    stage,
			"patients": patients,
			"total":    len(patients),
		})
	}

	snap, err := qc.View.Snapshot(ctx, stage, facilityID, models.OrderPolicy(c.QueryParam("order")))
	if err != nil {
		return response.Error(c, err)
	}
	return response.OK(c, "Queue retrieved", snap)
}

func (qc *QueueController) GetReport(c echo.Context) error {
	data, err := qc.View.Report(c.Request().Context(), facilityFilter(c))
	if err != nil {
		return response.Error(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="queue-report.xlsx"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (qc *QueueController) StartConsultation(c echo.Context) error {
	res := qc.Transitions.StartConsultation(c.Request().Context(), c.Param("id"))
	return response.Result(c, http.StatusOK, "Consultation started", res)
}

func (qc *QueueController) CompletePreConsultation(c echo.Context) error {
	res := qc.Transitions.CompletePreConsultation(c.Request().Context(), c.Param("id"))
	return response.Result(c, http.StatusOK, "Pre-consultation completed", res)
}

func (qc *QueueController) Finalize(c echo.Context) error {
	res := qc.Transitions.Finalize(c.Request().Context(), c.Param("id"))
	return response.Result(c, http.StatusOK, "Care finalized", res)
}

func (qc *QueueController) CallPatient(c echo.Context) error {
	var req models.CallPatientRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return response.BadRequest(c, "Invalid request payload: "+err.Error())
		}
	}
	res := qc.Transitions.CallPatient(c.Request().Context(), c.Param("id"), req)
	return response.Result(c, http.StatusOK, "Patient called", res)
}
