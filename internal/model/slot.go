package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultThresholdCm is the fallback occupied-distance threshold applied when
// a slot carries a zero or negative threshold.
const DefaultThresholdCm = 15.0

// Slot is a physical parking space. Its Status, LastDistanceCm and
// LastUpdateAt fields are a live cache of the last known state; the telemetry
// event log remains the source of truth for history.
type Slot struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Label    string     `gorm:"uniqueIndex;size:64;not null"`
	Zone     string     `gorm:"size:32;not null"`
	SensorID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`

	Status              SlotStatus `gorm:"size:16;not null"`
	OccupiedThresholdCm float64    `gorm:"not null"`
	LastDistanceCm      float64
	LastUpdateAt        time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// Associations
	Sensor *Sensor
}

func (s *Slot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// EffectiveThresholdCm guards against misconfigured thresholds.
func (s *Slot) EffectiveThresholdCm() float64 {
	if s.OccupiedThresholdCm > 0 {
		return s.OccupiedThresholdCm
	}
	return DefaultThresholdCm
}
