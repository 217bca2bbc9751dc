package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hass-tools/history-editor/cmd/history-editor/helpers"
	"github.com/hass-tools/history-editor/cmd/history-editor/models"
)

func GetRecordsHandler(c *gin.Context) {
	var request models.GetRecordsRequest
	if err := c.BindQuery(&request); err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	records, err := service.GetRecords(c.Request.Context(), request)
	if err != nil {
		helpers.HandleServiceError(c, err)
		return
	}

	response := models.GetRecordsResponse{
		Success: true,
		Records: make([]models.StateRecordDTO, 0, len(records)),
	}
	for _, record := range records {
		response.Records = append(response.Records, toRecordDTO(record))
	}
	c.JSON(http.StatusOK, response)
}

func CreateRecordHandler(c *gin.Context) {
	var request models.CreateRecordRequest
	if err := c.BindJSON(&request); err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	recordID, err := service.CreateRecord(c.Request.Context(), request)
	if err != nil {
		helpers.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.CreateRecordResponse{Success: true, RecordID: recordID})
}

func UpdateRecordHandler(c *gin.Context) {
	var request models.UpdateRecordRequest
	if err := c.BindJSON(&request); err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	if err := service.UpdateRecord(c.Request.Context(), request); err != nil {
		helpers.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Success: true})
}

func DeleteRecordHandler(c *gin.Context) {
	var request models.DeleteRecordRequest
	if err := c.BindJSON(&request); err != nil {
		helpers.HandleInvalidInputError(c, err)
		return
	}

	if err := service.DeleteRecord(c.Request.Context(), request); err != nil {
		helpers.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StatusResponse{Success: true})
}
