package model

import "time"

// TelemetryEvent is one immutable distance reading and the status it produced.
// Rows are append-only: the core logic never updates or deletes them.
//
// Ordering is by ReceivedAt with the auto-incremented ID as a stable
// tie-break; DeviceTS is informational only and never used for ordering.
type TelemetryEvent struct {
	ID         int64   `gorm:"autoIncrement;primaryKey" json:"id"`
	DeviceCode string  `gorm:"size:64;index;not null" json:"deviceCode"`
	SensorCode string  `gorm:"size:64;not null" json:"sensorCode"`
	SlotLabel  *string `gorm:"size:64;index" json:"slotLabel"`

	DistanceCm  float64    `json:"distanceCm"`
	StatusAfter SlotStatus `gorm:"size:16;not null" json:"statusAfter"`

	ReceivedAt time.Time  `gorm:"index;not null" json:"receivedAt"`
	DeviceTS   *time.Time `json:"deviceTs"`
}
