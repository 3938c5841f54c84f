package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// GetRecentEvents handles GET /api/telemetry?limit=&slot=&device=.
func (h *Handler) GetRecentEvents(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	events, err := h.store.RecentEvents(c.Request.Context(), limit, c.Query("slot"), c.Query("device"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve events"})
		return
	}
	c.JSON(http.StatusOK, events)
}

// GetOccupancyStats handles GET /api/stats/occupancy?hours=N: per-slot
// occupied intervals and total minutes for the last N hours.
func (h *Handler) GetOccupancyStats(c *gin.Context) {
	hours := 24
	if raw := c.Query("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hours"})
			return
		}
		hours = n
	}

	now := time.Now().UTC()
	windowStart := now.Add(-time.Duration(hours) * time.Hour)

	stats, err := h.store.OccupancyStats(c.Request.Context(), windowStart, now)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to compute occupancy stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetHourlyOccupancy handles GET /api/stats/hourly?date=YYYY-MM-DD: per-slot
// 24-bucket occupied-minutes histograms for one calendar day. Defaults to
// today in server-local time.
func (h *Handler) GetHourlyOccupancy(c *gin.Context) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)

	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, use YYYY-MM-DD"})
			return
		}
		dayStart = parsed
	}

	histograms, err := h.store.HourlyOccupancy(c.Request.Context(), dayStart, now)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to compute hourly occupancy"})
		return
	}
	c.JSON(http.StatusOK, histograms)
}
