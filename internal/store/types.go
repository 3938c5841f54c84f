package store

import (
	"time"

	"github.com/google/uuid"
)

// Reading is one raw telemetry sample presented by a device.
type Reading struct {
	DeviceCode string     `json:"deviceCode" binding:"required"`
	SensorCode string     `json:"sensorCode" binding:"required"`
	DistanceCm float64    `json:"distanceCm"`
	DeviceTS   *time.Time `json:"ts"`
}

// IngestResult is returned to the device and broadcast to observers. The
// pointer fields are absent when the sensor has no mapped slot.
type IngestResult struct {
	Updated    bool       `json:"updated"`
	SlotLabel  *string    `json:"slotLabel"`
	Status     *string    `json:"status"`
	DistanceCm *float64   `json:"distanceCm"`
	UpdatedAt  *time.Time `json:"updatedAt"`
}

// Registration is a device's boot-time declaration of its sensors and the
// slots they should be wired to.
type Registration struct {
	DeviceCode string       `json:"deviceCode" binding:"required"`
	Sensors    []SensorSpec `json:"sensors" binding:"required"`
}

// SensorSpec describes one sensor, optionally with the slot it watches.
type SensorSpec struct {
	SensorCode string    `json:"sensorCode" binding:"required"`
	Slot       *SlotSpec `json:"slot"`
}

// SlotSpec describes a slot to create or adopt during registration.
type SlotSpec struct {
	Label               string  `json:"label" binding:"required"`
	Zone                string  `json:"zone"`
	Status              string  `json:"status"`
	OccupiedThresholdCm float64 `json:"occupiedThresholdCm"`
}

// ConnectSummary is the full current sensor→slot mapping for a device.
type ConnectSummary struct {
	DeviceID    uuid.UUID        `json:"deviceId"`
	DeviceCode  string           `json:"deviceCode"`
	SensorCount int              `json:"sensorCount"`
	Sensors     []SensorSlotInfo `json:"sensors"`
}

// SensorSlotInfo pairs a sensor with its linked slot, if any.
type SensorSlotInfo struct {
	SensorID   uuid.UUID `json:"sensorId"`
	SensorCode string    `json:"sensorCode"`
	Slot       *SlotInfo `json:"slot"`
}

// SlotInfo is the registration-time view of a slot.
type SlotInfo struct {
	SlotID              uuid.UUID `json:"slotId"`
	Label               string    `json:"label"`
	Zone                string    `json:"zone"`
	Status              string    `json:"status"`
	OccupiedThresholdCm float64   `json:"occupiedThresholdCm"`
}

// SlotView is the query-surface projection of a slot with its wiring.
type SlotView struct {
	Label               string    `json:"label"`
	Zone                string    `json:"zone"`
	Status              string    `json:"status"`
	LastDistanceCm      float64   `json:"lastDistanceCm"`
	LastUpdateAt        time.Time `json:"lastUpdateAt"`
	DeviceCode          *string   `json:"deviceCode"`
	SensorCode          *string   `json:"sensorCode"`
	OccupiedThresholdCm float64   `json:"occupiedThresholdCm"`
}

// DeviceView is the query-surface projection of a device and its sensors.
type DeviceView struct {
	ID         uuid.UUID        `json:"id"`
	Code       string           `json:"code"`
	APIKey     string           `json:"apiKey"`
	LastSeenAt time.Time        `json:"lastSeenAt"`
	Sensors    []SensorSlotInfo `json:"sensors"`
}
