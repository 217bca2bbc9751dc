package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hass-tools/history-editor/cmd/history-editor/helpers"
	"github.com/hass-tools/history-editor/cmd/history-editor/models"
)

func GetStatisticsHandler(c *gin.Context) {
	var request models.GetStatisticsRequest
	if err := c.BindQuery(&request); err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	records, err := service.GetStatistics(c.Request.Context(), request)
	if err != nil {
		helpers.HandleServiceError(c, err)
		return
	}

	response := models.GetStatisticsResponse{
		Success: true,
		Records: make([]models.StatisticRecordDTO, 0, len(records)),
	}
	for _, record := range records {
		response.Records = append(response.Records, toStatisticDTO(record))
	}
	c.JSON(http.StatusOK, response)
}

func UpdateStatisticHandler(c *gin.Context) {
	var request models.UpdateStatisticRequest
	if err := c.BindJSON(&request); err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	if err := service.UpdateStatistic(c.Request.Context(), request); err != nil {
		helpers.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Success: true})
}

func DeleteStatisticHandler(c *gin.Context) {
	var request models.DeleteStatisticRequest
	if err := c.BindJSON(&request); err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	if err := service.DeleteStatistic(c.Request.Context(), request); err != nil {
		helpers.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Success: true})
}
