package helpers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hass-tools/history-editor/cmd/history-editor/models"
	"github.com/hass-tools/history-editor/internal"
	"go.uber.org/zap"
)

// HandleInvalidInputError responds to requests that failed binding, before
// any service call.
func HandleInvalidInputError(c *gin.Context, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	erx := internal.SanitizeString(err.Error())
	zap.S().Infow(
		"Invalid input error",
		"error", erx,
		"route", c.FullPath(),
	)
	c.JSON(http.StatusBadRequest, models.StatusResponse{Success: false, Error: erx})
}

// HandleServiceError maps a service error onto the HTTP status and the shared
// success/error envelope. Caller errors travel to the client verbatim;
// storage failures become a generic message, their detail is already in the
// log.
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrEntityNotFound), errors.Is(err, models.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, models.StatusResponse{
			Success: false,
			Error:   internal.SanitizeString(err.Error()),
		})
	case models.IsCallerError(err):
		c.JSON(http.StatusBadRequest, models.StatusResponse{
			Success: false,
			Error:   internal.SanitizeString(err.Error()),
		})
	default:
		zap.S().Errorw(
			"Internal server error",
			"error", internal.SanitizeString(err.Error()),
			"route", c.FullPath(),
		)
		c.JSON(http.StatusInternalServerError, models.StatusResponse{
			Success: false,
			Error:   "internal storage failure",
		})
	}
}
