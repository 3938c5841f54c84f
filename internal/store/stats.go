package store

import (
	"context"
	"fmt"
	"time"

	"parking-status-backend/internal/model"
	"parking-status-backend/internal/occupancy"
)

// SlotStats is the reconstructed occupancy of one slot within a window.
type SlotStats struct {
	SlotLabel            string               `json:"slotLabel"`
	TotalOccupiedMinutes float64              `json:"totalOccupiedMinutes"`
	OccupancyPeriods     []occupancy.Interval `json:"occupancyPeriods"`
}

// SlotHourly is one slot's 24-bucket occupied-minutes histogram.
type SlotHourly struct {
	SlotLabel              string      `json:"slotLabel"`
	HourlyOccupancyMinutes [24]float64 `json:"hourlyOccupancyMinutes"`
}

// slotChangesSince loads the status changes for every slot from windowStart
// on, grouped by slot label, in receipt order with insertion order breaking
// ties. The live Slot.Status cache is deliberately not consulted.
func (s *gormStore) slotChangesSince(ctx context.Context, windowStart time.Time) (map[string][]occupancy.StatusChange, error) {
	var events []model.TelemetryEvent
	if err := s.db.WithContext(ctx).
		Where("slot_label IS NOT NULL AND received_at >= ?", windowStart).
		Order("slot_label, received_at, id").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("load events since %s: %w", windowStart, err)
	}

	changes := make(map[string][]occupancy.StatusChange)
	for _, ev := range events {
		changes[*ev.SlotLabel] = append(changes[*ev.SlotLabel], occupancy.StatusChange{
			At:     ev.ReceivedAt,
			Status: ev.StatusAfter,
		})
	}
	return changes, nil
}

// slotLabels returns every known slot label in order. Slots with no events in
// a window must still show up in statistics output.
func (s *gormStore) slotLabels(ctx context.Context) ([]string, error) {
	var labels []string
	if err := s.db.WithContext(ctx).Model(&model.Slot{}).
		Order("label").Pluck("label", &labels).Error; err != nil {
		return nil, fmt.Errorf("load slot labels: %w", err)
	}
	return labels, nil
}

// OccupancyStats replays each slot's events from windowStart to now and
// returns its occupied intervals and total minutes. Every known slot appears,
// idle ones with zero intervals.
func (s *gormStore) OccupancyStats(ctx context.Context, windowStart, now time.Time) ([]SlotStats, error) {
	labels, err := s.slotLabels(ctx)
	if err != nil {
		return nil, err
	}
	changes, err := s.slotChangesSince(ctx, windowStart)
	if err != nil {
		return nil, err
	}

	stats := make([]SlotStats, 0, len(labels))
	for _, label := range labels {
		intervals := occupancy.Intervals(changes[label], now)
		stats = append(stats, SlotStats{
			SlotLabel:            label,
			TotalOccupiedMinutes: occupancy.TotalMinutes(intervals),
			OccupancyPeriods:     intervals,
		})
	}
	return stats, nil
}

// HourlyOccupancy computes each slot's per-hour occupied minutes for the
// calendar day starting at dayStart. Events from the day before dayStart are
// included so an occupancy spanning midnight still opens the first bucket.
func (s *gormStore) HourlyOccupancy(ctx context.Context, dayStart, now time.Time) ([]SlotHourly, error) {
	labels, err := s.slotLabels(ctx)
	if err != nil {
		return nil, err
	}
	// One day of lookback catches any interval still open at dayStart.
	changes, err := s.slotChangesSince(ctx, dayStart.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}

	out := make([]SlotHourly, 0, len(labels))
	for _, label := range labels {
		out = append(out, SlotHourly{
			SlotLabel:              label,
			HourlyOccupancyMinutes: occupancy.HourlyHistogram(changes[label], dayStart, now),
		})
	}
	return out, nil
}
