// Package response menulis envelope {status, message, data} yang dipakai semua controller.
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bematende/bematende-backend/internal/common/apperr"
	commonModels "github.com/bematende/bematende-backend/internal/common/models"
)

func OK(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":  http.StatusOK,
		"message": message,
		"data":    data,
	})
}

func Created(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusCreated, echo.Map{
		"status":  http.StatusCreated,
		"message": message,
		"data":    data,
	})
}

func BadRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{
		"status":  http.StatusBadRequest,
		"message": message,
		"data":    nil,
	})
}

// Error memetakan kind apperr ke status HTTP.
func Error(c echo.Context, err error) error {
	status := apperr.HTTPStatus(err)
	return c.JSON(status, echo.Map{
		"status":  status,
		"message": err.Error(),
		"data":    nil,
	})
}

// Result menulis hasil aksi staf; kegagalan tetap membawa ok=false di data.
func Result(c echo.Context, successStatus int, message string, res commonModels.Result) error {
	if res.OK {
		return c.JSON(successStatus, echo.Map{
			"status":  successStatus,
			"message": message,
			"data":    res,
		})
	}
	status := http.StatusInternalServerError
	if res.Err != nil {
		status = apperr.HTTPStatus(res.Err)
	}
	return c.JSON(status, echo.Map{
		"status":  status,
		"message": res.Message,
		"data":    res,
	})
}
