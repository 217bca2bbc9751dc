package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/hass-tools/history-editor/cmd/history-editor/models"
	"github.com/hass-tools/history-editor/cmd/history-editor/repository"
	"github.com/hass-tools/history-editor/cmd/history-editor/services"
	"github.com/hass-tools/history-editor/internal"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
)

func setupTestRouter(t *testing.T) (pgxmock.PgxPoolIface, *gin.Engine) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	Init(services.New(repository.New(mock), internal.NewGate(1)))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/records", GetRecordsHandler)
	router.POST("/create", CreateRecordHandler)
	router.POST("/update", UpdateRecordHandler)
	router.POST("/delete", DeleteRecordHandler)
	router.GET("/entities", GetEntitiesHandler)
	return mock, router
}

func performRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetRecordsHTTPStatusMapping(t *testing.T) {
	mock, router := setupTestRouter(t)
	defer mock.Close()

	t.Run("missing entity_id fails binding", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/records", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response models.StatusResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.False(t, response.Success)
		assert.NotEmpty(t, response.Error)
	})

	t.Run("limit out of range is a 400 with envelope", func(t *testing.T) {
		w := performRequest(router, http.MethodGet, "/records?entity_id=sensor.temperature&limit=1001", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response models.StatusResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.False(t, response.Success)
		assert.Contains(t, response.Error, "limit")
	})

	t.Run("unknown entity is a 404", func(t *testing.T) {
		mock.ExpectQuery(`SELECT metadata_id FROM states_meta WHERE entity_id = \$1`).
			WithArgs("sensor.unknown").
			WillReturnError(pgx.ErrNoRows)

		w := performRequest(router, http.MethodGet, "/records?entity_id=sensor.unknown", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("storage failure is a generic 500", func(t *testing.T) {
		mock.ExpectQuery(`SELECT metadata_id FROM states_meta WHERE entity_id = \$1`).
			WithArgs("sensor.temperature").
			WillReturnError(assert.AnError)

		w := performRequest(router, http.MethodGet, "/records?entity_id=sensor.temperature", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var response models.StatusResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.False(t, response.Success)
		assert.Equal(t, "internal storage failure", response.Error)
		assert.NotContains(t, response.Error, assert.AnError.Error())
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRecordHTTP(t *testing.T) {
	mock, router := setupTestRouter(t)
	defer mock.Close()

	t.Run("malformed attributes", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/create",
			`{"entity_id": "sensor.temperature", "state": "on", "attributes": "not an object"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response models.StatusResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.False(t, response.Success)
	})

	t.Run("missing state fails binding", func(t *testing.T) {
		w := performRequest(router, http.MethodPost, "/create", `{"entity_id": "sensor.temperature"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRecordHTTP(t *testing.T) {
	mock, router := setupTestRouter(t)
	defer mock.Close()

	t.Run("unknown record is a 404", func(t *testing.T) {
		mock.ExpectQuery(`WHERE s.state_id = \$1`).
			WithArgs(int64(404)).
			WillReturnError(pgx.ErrNoRows)

		w := performRequest(router, http.MethodPost, "/delete", `{"record_id": 404}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
