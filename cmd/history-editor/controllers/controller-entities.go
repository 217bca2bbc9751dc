package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hass-tools/history-editor/cmd/history-editor/helpers"
	"github.com/hass-tools/history-editor/cmd/history-editor/models"
)

func GetEntitiesHandler(c *gin.Context) {
	entities, err := service.ListEntities(c.Request.Context())
	if err != nil {
		helpers.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.GetEntitiesResponse{Success: true, Entities: entities})
}
