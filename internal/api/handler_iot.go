package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"parking-status-backend/internal/store"
)

// deviceKeyHeader carries the out-of-band device credential.
const deviceKeyHeader = "X-Device-Key"

// Telemetry handles POST /api/iot/telemetry.
func (h *Handler) Telemetry(c *gin.Context) {
	key := c.GetHeader(deviceKeyHeader)
	if key == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing " + deviceKeyHeader})
		return
	}

	var reading store.Reading
	if err := c.ShouldBindJSON(&reading); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.ingest.Ingest(c.Request.Context(), reading, key)
	if err != nil {
		abortIoT(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Boot handles POST /api/iot/boot: sensor/slot registration at device start.
func (h *Handler) Boot(c *gin.Context) {
	key := c.GetHeader(deviceKeyHeader)
	if key == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing " + deviceKeyHeader})
		return
	}

	var reg store.Registration
	if err := c.ShouldBindJSON(&reg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.ingest.RegisterSensors(c.Request.Context(), reg, key)
	if err != nil {
		abortIoT(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type connectRequest struct {
	DeviceCode string `json:"deviceCode" binding:"required"`
}

// Connect handles POST /api/iot/connect: returns the device's current
// sensor→slot mapping without registering anything.
func (h *Handler) Connect(c *gin.Context) {
	key := c.GetHeader(deviceKeyHeader)
	if key == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing " + deviceKeyHeader})
		return
	}

	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.ingest.Connect(c.Request.Context(), req.DeviceCode, key)
	if err != nil {
		abortIoT(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Ping handles GET /api/iot/ping.
func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// abortIoT maps store errors onto device-facing status codes. Unauthorized
// replies never reveal whether the device code exists; unknown device/sensor
// is a distinct client error so operators can tell provisioning gaps from
// credential issues.
func abortIoT(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid device key"})
	case errors.Is(err, store.ErrDeviceNotFound), errors.Is(err, store.ErrSensorNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed"})
	}
}
