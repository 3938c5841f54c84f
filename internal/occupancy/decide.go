package occupancy

import "parking-status-backend/internal/model"

// StatusForDistance derives a slot's occupancy status from a raw distance
// reading. The comparison is strict: a reading exactly at the threshold
// reads as Free.
func StatusForDistance(distanceCm, thresholdCm float64) model.SlotStatus {
	if distanceCm < thresholdCm {
		return model.StatusOccupied
	}
	return model.StatusFree
}
