package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sensor is a ranging unit attached to a device. Sensor codes are unique
// within their device, not globally.
type Sensor struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	DeviceID   uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_device_sensor_code;not null"`
	SensorCode string    `gorm:"size:64;uniqueIndex:idx_device_sensor_code;not null"`
	LastSeenAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Associations
	Device Device `gorm:"constraint:OnDelete:CASCADE"`
	Slot   *Slot  `gorm:"foreignKey:SensorID"`
}

func (s *Sensor) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
