package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"parking-status-backend/internal/store"
)

func setupQueryRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	r, db := setupIoTRouter(t)

	s := store.NewGormStore(db)
	handler := NewHandler(s, nil, nil)

	api := r.Group("/api")
	api.GET("/slots", handler.GetSlots)
	api.PUT("/slots/:label/threshold", handler.UpdateThreshold)
	api.GET("/telemetry", handler.GetRecentEvents)
	api.GET("/devices", handler.GetDevices)
	api.POST("/devices", handler.CreateDevice)
	api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	return r, db
}

func TestGetSlots(t *testing.T) {
	r, db := setupQueryRouter(t)
	seedDevice(t, db)

	req, _ := http.NewRequest("GET", "/api/slots", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var slots []store.SlotView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &slots))
	require.Len(t, slots, 1)
	assert.Equal(t, "A1", slots[0].Label)
	assert.Equal(t, "NODE-001", *slots[0].DeviceCode)
	assert.Equal(t, "S1", *slots[0].SensorCode)
}

func TestUpdateThreshold(t *testing.T) {
	r, db := setupQueryRouter(t)
	seedDevice(t, db)

	body := bytes.NewBufferString(`{"thresholdCm": 25}`)
	req, _ := http.NewRequest("PUT", "/api/slots/A1/threshold", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUpdateThreshold_OutOfRange(t *testing.T) {
	r, db := setupQueryRouter(t)
	seedDevice(t, db)

	body := bytes.NewBufferString(`{"thresholdCm": 500}`)
	req, _ := http.NewRequest("PUT", "/api/slots/A1/threshold", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRecentEvents_InvalidLimit(t *testing.T) {
	r, _ := setupQueryRouter(t)

	req, _ := http.NewRequest("GET", "/api/telemetry?limit=abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRecentEvents_AfterIngestion(t *testing.T) {
	r, db := setupQueryRouter(t)
	seedDevice(t, db)

	w := postJSON(r, "/api/iot/telemetry", "DEV-KEY-001", store.Reading{
		DeviceCode: "NODE-001", SensorCode: "S1", DistanceCm: 10,
	})
	require.Equal(t, http.StatusOK, w.Code)

	req, _ := http.NewRequest("GET", "/api/telemetry?slot=A1", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var events []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "Occupied", events[0]["statusAfter"])
}

func TestCreateDevice_MintsKey(t *testing.T) {
	r, _ := setupQueryRouter(t)

	w := postJSON(r, "/api/devices", "", gin.H{"code": "NODE-NEW"})

	require.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NODE-NEW", resp["code"])
	assert.Len(t, resp["apiKey"], 32)
}

func TestCreateDevice_DuplicateCode(t *testing.T) {
	r, db := setupQueryRouter(t)
	seedDevice(t, db)

	w := postJSON(r, "/api/devices", "", gin.H{"code": "NODE-001"})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetVAPIDPublicKey_Unconfigured(t *testing.T) {
	r, _ := setupQueryRouter(t)

	req, _ := http.NewRequest("GET", "/api/vapid_public_key", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
