package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSlots handles GET /api/slots.
func (h *Handler) GetSlots(c *gin.Context) {
	slots, err := h.store.AllSlots(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve slots"})
		return
	}
	c.JSON(http.StatusOK, slots)
}

type thresholdRequest struct {
	ThresholdCm float64 `json:"thresholdCm" binding:"required"`
}

// UpdateThreshold handles PUT /api/slots/:label/threshold. Values outside
// 1..200 cm are rejected.
func (h *Handler) UpdateThreshold(c *gin.Context) {
	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, err := h.store.UpdateThreshold(c.Request.Context(), c.Param("label"), req.ThresholdCm)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to update threshold"})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown slot or threshold out of range"})
		return
	}
	c.Status(http.StatusNoContent)
}
