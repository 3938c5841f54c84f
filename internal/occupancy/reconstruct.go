// Package occupancy reconstructs occupied-duration statistics from an ordered
// stream of per-slot status changes. Everything here is pure computation over
// an already-fetched event list; the live Slot.Status cache is never consulted
// for historical answers.
package occupancy

import (
	"time"

	"parking-status-backend/internal/model"
)

// StatusChange is one point in a slot's status timeline. Callers must supply
// changes ordered by receipt time ascending; ties keep insertion order.
type StatusChange struct {
	At     time.Time
	Status model.SlotStatus
}

// Interval is a maximal contiguous span during which a slot was Occupied.
// End is nil while the occupancy is still ongoing; Minutes is then measured
// up to the "now" passed to Intervals.
type Interval struct {
	Start   time.Time  `json:"startTime"`
	End     *time.Time `json:"endTime"`
	Minutes float64    `json:"durationMinutes"`
}

// Intervals replays the status changes and returns the occupied intervals.
// A run of consecutive Occupied changes opens a single interval; any
// non-Occupied status (Free or Offline) closes it. A trailing open interval
// is emitted with a nil End and a duration clamped at now.
func Intervals(changes []StatusChange, now time.Time) []Interval {
	var out []Interval
	var openStart *time.Time

	for i := range changes {
		c := changes[i]
		switch {
		case c.Status == model.StatusOccupied && openStart == nil:
			t := c.At
			openStart = &t
		case c.Status != model.StatusOccupied && openStart != nil:
			// A close at the exact open timestamp cancels the interval
			// instead of emitting a zero-length one.
			if end := c.At; end.After(*openStart) {
				out = append(out, Interval{
					Start:   *openStart,
					End:     &end,
					Minutes: end.Sub(*openStart).Minutes(),
				})
			}
			openStart = nil
		}
	}

	if openStart != nil {
		out = append(out, Interval{
			Start:   *openStart,
			End:     nil,
			Minutes: now.Sub(*openStart).Minutes(),
		})
	}
	return out
}

// TotalMinutes sums the durations of the given intervals.
func TotalMinutes(intervals []Interval) float64 {
	var total float64
	for _, iv := range intervals {
		total += iv.Minutes
	}
	return total
}

// HourlyHistogram distributes the occupied intervals derived from changes
// across the 24 hour buckets of the calendar day beginning at dayStart.
// Intervals are clamped to [dayStart, dayStart+24h); a still-open interval is
// clamped at now. Days with no events yield an all-zero histogram.
func HourlyHistogram(changes []StatusChange, dayStart time.Time, now time.Time) [24]float64 {
	var buckets [24]float64
	dayEnd := dayStart.Add(24 * time.Hour)

	for _, iv := range Intervals(changes, now) {
		start := iv.Start
		end := now
		if iv.End != nil {
			end = *iv.End
		}

		if start.Before(dayStart) {
			start = dayStart
		}
		if end.After(dayEnd) {
			end = dayEnd
		}
		if !end.After(start) {
			continue
		}

		distribute(&buckets, dayStart, start, end)
	}
	return buckets
}

// distribute walks hour-by-hour from start, crediting each bucket with the
// minutes the span [start, end) overlaps it. The bound check keeps skewed
// clocks from indexing outside the day.
func distribute(buckets *[24]float64, dayStart, start, end time.Time) {
	current := start
	for current.Before(end) {
		hour := int(current.Sub(dayStart).Hours())
		if hour < 0 || hour > 23 {
			return
		}
		boundary := dayStart.Add(time.Duration(hour+1) * time.Hour)
		segEnd := end
		if boundary.Before(segEnd) {
			segEnd = boundary
		}
		buckets[hour] += segEnd.Sub(current).Minutes()
		current = segEnd
	}
}
