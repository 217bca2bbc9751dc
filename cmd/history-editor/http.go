package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/hass-tools/history-editor/cmd/history-editor/controllers"
	"go.uber.org/zap"
)

// SetupRestAPI builds the router and starts serving in the background.
// The API group gets basic auth only when accounts were configured; the
// health endpoint at / stays open either way.
func SetupRestAPI(accounts gin.Accounts, port int) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Request log and panic recovery through zap, like the rest of the
	// process logs.
	router.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(zap.L(), true))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "online")
	})

	api := router.Group("/api/history_editor")
	if len(accounts) > 0 {
		api.Use(gin.BasicAuth(accounts))
	}
	{
		api.GET("/records", controllers.GetRecordsHandler)
		api.POST("/create", controllers.CreateRecordHandler)
		api.POST("/update", controllers.UpdateRecordHandler)
		api.POST("/delete", controllers.DeleteRecordHandler)

		api.GET("/statistics", controllers.GetStatisticsHandler)
		api.POST("/statistics/update", controllers.UpdateStatisticHandler)
		api.POST("/statistics/delete", controllers.DeleteStatisticHandler)

		api.GET("/entities", controllers.GetEntitiesHandler)
	}

	go func() {
		if err := router.Run(fmt.Sprintf(":%d", port)); err != nil {
			zap.S().Fatalf("Failed to serve REST API: %s", err)
		}
	}()
}
