package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetDevices handles GET /api/devices.
func (h *Handler) GetDevices(c *gin.Context) {
	devices, err := h.store.AllDevices(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve devices"})
		return
	}
	c.JSON(http.StatusOK, devices)
}

type createDeviceRequest struct {
	Code   string `json:"code" binding:"required"`
	APIKey string `json:"apiKey"`
}

// CreateDevice handles POST /api/devices. A key is minted when none is
// supplied.
func (h *Handler) CreateDevice(c *gin.Context) {
	var req createDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device, err := h.store.CreateDevice(c.Request.Context(), req.Code, req.APIKey)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "could not create device"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":     device.ID,
		"code":   device.Code,
		"apiKey": device.APIKey,
	})
}
