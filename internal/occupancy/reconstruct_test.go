package occupancy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-status-backend/internal/model"
)

var base = time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)

func at(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

func change(min int, status model.SlotStatus) StatusChange {
	return StatusChange{At: at(min), Status: status}
}

func TestIntervals_SingleClosedInterval(t *testing.T) {
	changes := []StatusChange{
		change(0, model.StatusOccupied),
		change(25, model.StatusFree),
	}

	intervals := Intervals(changes, at(60))

	require.Len(t, intervals, 1)
	assert.Equal(t, at(0), intervals[0].Start)
	require.NotNil(t, intervals[0].End)
	assert.Equal(t, at(25), *intervals[0].End)
	assert.Equal(t, 25.0, intervals[0].Minutes)
}

func TestIntervals_StillOpenIntervalClampedAtNow(t *testing.T) {
	changes := []StatusChange{change(0, model.StatusOccupied)}

	intervals := Intervals(changes, at(17))

	require.Len(t, intervals, 1)
	assert.Nil(t, intervals[0].End, "ongoing occupancy must stay visible as open-ended")
	assert.Equal(t, 17.0, intervals[0].Minutes)
}

func TestIntervals_ConsecutiveOccupiedDoesNotReopen(t *testing.T) {
	changes := []StatusChange{
		change(0, model.StatusOccupied),
		change(5, model.StatusOccupied),
		change(10, model.StatusOccupied),
		change(30, model.StatusFree),
	}

	intervals := Intervals(changes, at(60))

	require.Len(t, intervals, 1)
	assert.Equal(t, 30.0, intervals[0].Minutes, "repeated Occupied readings must not double-count")
}

func TestIntervals_ConsecutiveFreeIsNoOp(t *testing.T) {
	changes := []StatusChange{
		change(0, model.StatusFree),
		change(5, model.StatusFree),
		change(10, model.StatusOccupied),
		change(20, model.StatusFree),
		change(25, model.StatusFree),
	}

	intervals := Intervals(changes, at(60))

	require.Len(t, intervals, 1)
	assert.Equal(t, 10.0, intervals[0].Minutes)
}

func TestIntervals_OfflineClosesInterval(t *testing.T) {
	changes := []StatusChange{
		change(0, model.StatusOccupied),
		change(12, model.StatusOffline),
	}

	intervals := Intervals(changes, at(60))

	require.Len(t, intervals, 1)
	require.NotNil(t, intervals[0].End)
	assert.Equal(t, 12.0, intervals[0].Minutes)
}

func TestIntervals_SameTimestampTieYieldsNoInterval(t *testing.T) {
	// Two readings in the same instant, ordered by insertion: the open and
	// close cancel out rather than producing a zero-length interval.
	changes := []StatusChange{
		change(10, model.StatusOccupied),
		change(10, model.StatusFree),
	}

	intervals := Intervals(changes, at(60))

	assert.Empty(t, intervals)
	assert.Equal(t, 0.0, TotalMinutes(intervals))
}

func TestIntervals_SameTimestampTieStillClosesOpenState(t *testing.T) {
	changes := []StatusChange{
		change(0, model.StatusOccupied),
		change(0, model.StatusFree),
		change(20, model.StatusOccupied),
		change(35, model.StatusFree),
	}

	intervals := Intervals(changes, at(60))

	require.Len(t, intervals, 1)
	assert.Equal(t, at(20), intervals[0].Start)
	assert.Equal(t, 15.0, intervals[0].Minutes)
}

func TestIntervals_EmptyInput(t *testing.T) {
	intervals := Intervals(nil, at(60))
	assert.Empty(t, intervals)
	assert.Equal(t, 0.0, TotalMinutes(intervals))
}

func TestIntervals_TotalMatchesSumAndEndsAfterStarts(t *testing.T) {
	changes := []StatusChange{
		change(0, model.StatusOccupied),
		change(10, model.StatusFree),
		change(20, model.StatusOccupied),
		change(45, model.StatusOffline),
		change(50, model.StatusOccupied),
	}

	intervals := Intervals(changes, at(70))

	var sum float64
	for _, iv := range intervals {
		sum += iv.Minutes
		if iv.End != nil {
			assert.True(t, iv.End.After(iv.Start))
		}
	}
	assert.Equal(t, sum, TotalMinutes(intervals))
	assert.Equal(t, 55.0, sum)
}

func TestIntervals_Idempotent(t *testing.T) {
	changes := []StatusChange{
		change(0, model.StatusOccupied),
		change(10, model.StatusFree),
		change(30, model.StatusOccupied),
		change(40, model.StatusFree),
	}

	first := Intervals(changes, at(60))
	second := Intervals(changes, at(60))

	assert.Equal(t, first, second, "replaying a closed sequence must be a pure function of input")
}

func TestHourlyHistogram_SplitsAcrossHourBoundary(t *testing.T) {
	dayStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	changes := []StatusChange{
		{At: dayStart.Add(7*time.Hour + 50*time.Minute), Status: model.StatusOccupied},
		{At: dayStart.Add(8*time.Hour + 20*time.Minute), Status: model.StatusFree},
	}

	buckets := HourlyHistogram(changes, dayStart, dayStart.Add(12*time.Hour))

	assert.Equal(t, 10.0, buckets[7])
	assert.Equal(t, 20.0, buckets[8])
	for h, v := range buckets {
		if h != 7 && h != 8 {
			assert.Zerof(t, v, "bucket %d", h)
		}
	}
}

func TestHourlyHistogram_ClampsAtDayEnd(t *testing.T) {
	// Occupied 23:50 to 00:10 next day: only 10 minutes belong to this day.
	dayStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	changes := []StatusChange{
		{At: dayStart.Add(23*time.Hour + 50*time.Minute), Status: model.StatusOccupied},
		{At: dayStart.Add(24*time.Hour + 10*time.Minute), Status: model.StatusFree},
	}

	buckets := HourlyHistogram(changes, dayStart, dayStart.Add(25*time.Hour))

	assert.Equal(t, 10.0, buckets[23])
	assert.Equal(t, 10.0, sum(buckets), "no spillover past the day boundary")
}

func TestHourlyHistogram_ClampsBeforeDayStart(t *testing.T) {
	// Occupied since 23:00 the previous day, freed at 01:30.
	dayStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	changes := []StatusChange{
		{At: dayStart.Add(-time.Hour), Status: model.StatusOccupied},
		{At: dayStart.Add(90 * time.Minute), Status: model.StatusFree},
	}

	buckets := HourlyHistogram(changes, dayStart, dayStart.Add(2*time.Hour))

	assert.Equal(t, 60.0, buckets[0])
	assert.Equal(t, 30.0, buckets[1])
	assert.Equal(t, 90.0, sum(buckets))
}

func TestHourlyHistogram_OpenIntervalClampedAtNow(t *testing.T) {
	dayStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	changes := []StatusChange{
		{At: dayStart.Add(9 * time.Hour), Status: model.StatusOccupied},
	}

	buckets := HourlyHistogram(changes, dayStart, dayStart.Add(9*time.Hour+45*time.Minute))

	assert.Equal(t, 45.0, buckets[9])
	assert.Equal(t, 45.0, sum(buckets))
}

func TestHourlyHistogram_NoEvents(t *testing.T) {
	dayStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	buckets := HourlyHistogram(nil, dayStart, dayStart.Add(12*time.Hour))
	assert.Equal(t, [24]float64{}, buckets)
}

func TestHourlyHistogram_FullDayOccupied(t *testing.T) {
	dayStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	changes := []StatusChange{
		{At: dayStart.Add(-time.Hour), Status: model.StatusOccupied},
	}

	buckets := HourlyHistogram(changes, dayStart, dayStart.Add(30*time.Hour))

	for h, v := range buckets {
		assert.Equalf(t, 60.0, v, "bucket %d", h)
	}
}

func sum(buckets [24]float64) float64 {
	var total float64
	for _, v := range buckets {
		total += v
	}
	return total
}
