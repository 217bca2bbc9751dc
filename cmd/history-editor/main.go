package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hass-tools/history-editor/cmd/history-editor/controllers"
	"github.com/hass-tools/history-editor/cmd/history-editor/database"
	"github.com/hass-tools/history-editor/cmd/history-editor/repository"
	"github.com/hass-tools/history-editor/cmd/history-editor/services"
	"github.com/hass-tools/history-editor/internal"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/united-manufacturing-hub/umh-utils/env"
	"github.com/united-manufacturing-hub/umh-utils/logger"
	"go.uber.org/zap"
)

func main() {
	InitLogging()
	InitPrometheus()
	db := database.GetOrInit()
	InitHealthCheck()

	gateSize, err := env.GetAsInt("MAX_CONCURRENT_QUERIES", false, 4)
	if err != nil {
		zap.S().Fatalf("Failed to get MAX_CONCURRENT_QUERIES from env: %s", err)
	}
	port, err := env.GetAsInt("SERVICE_PORT", false, 80)
	if err != nil {
		zap.S().Fatalf("Failed to get SERVICE_PORT from env: %s", err)
	}

	service := services.New(repository.New(db.Db), internal.NewGate(gateSize))
	controllers.Init(service)
	SetupRestAPI(basicAuthAccounts(), port)
	zap.S().Infof("History editor is ready on :%d", port)

	shutdown := internal.NewGracefulShutdown(func() error {
		db.Shutdown()
		return nil
	})
	shutdown.Wait()
}

func InitLogging() {
	logLevel, _ := env.GetAsString("LOGGING_LEVEL", false, "PRODUCTION") //nolint:errcheck
	_ = logger.New(logLevel)
}

func InitPrometheus() {
	metricsPath := "/metrics"
	metricsPort := ":2112"
	zap.S().Debugf("Setting up metrics %s %v", metricsPath, metricsPort)

	http.Handle(metricsPath, promhttp.Handler())
	go func() {
		/* #nosec G114 */
		err := http.ListenAndServe(metricsPort, nil)
		if err != nil {
			zap.S().Errorf("Error starting metrics: %s", err)
		}
	}()
}

func InitHealthCheck() {
	zap.S().Debugf("Setting up healthcheck")

	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000000))
	health.AddReadinessCheck("database", database.GetHealthCheck())
	health.AddLivenessCheck("database", database.GetHealthCheck())
	go func() {
		/* #nosec G114 */
		err := http.ListenAndServe("0.0.0.0:8086", health)
		if err != nil {
			zap.S().Errorf("Error starting healthcheck: %s", err)
		}
	}()
}

// basicAuthAccounts reads the optional basic auth credentials. Both variables
// must be set for auth to be enabled.
func basicAuthAccounts() gin.Accounts {
	user, _ := env.GetAsString("HISTORY_EDITOR_USER", false, "")         //nolint:errcheck
	password, _ := env.GetAsString("HISTORY_EDITOR_PASSWORD", false, "") //nolint:errcheck
	if user == "" || password == "" {
		return nil
	}
	return gin.Accounts{user: password}
}
