package model

// SlotStatus is the derived occupancy state of a parking slot.
type SlotStatus string

const (
	StatusFree     SlotStatus = "Free"
	StatusOccupied SlotStatus = "Occupied"
	StatusOffline  SlotStatus = "Offline"
)

// ParseSlotStatus maps a wire string onto a known status, defaulting to Free.
func ParseSlotStatus(s string) SlotStatus {
	switch SlotStatus(s) {
	case StatusFree, StatusOccupied, StatusOffline:
		return SlotStatus(s)
	default:
		return StatusFree
	}
}
