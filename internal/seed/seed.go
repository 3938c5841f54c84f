// Package seed provisions a first-run demo fleet so a fresh install has
// something to show.
package seed

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"parking-status-backend/internal/model"
)

// Ensure creates the demo device, sensors and slots when the store is empty.
// It is a no-op on any database that already has devices.
func Ensure(ctx context.Context, db *gorm.DB) error {
	var count int64
	if err := db.WithContext(ctx).Model(&model.Device{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count devices: %w", err)
	}
	if count > 0 {
		return nil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		device := model.Device{Code: "NODE-001", APIKey: "DEV-KEY-001"}
		if err := tx.Create(&device).Error; err != nil {
			return fmt.Errorf("seed device: %w", err)
		}

		for i, slotLabel := range []string{"A1", "A2"} {
			sensor := model.Sensor{
				DeviceID:   device.ID,
				SensorCode: fmt.Sprintf("S%d", i+1),
			}
			if err := tx.Create(&sensor).Error; err != nil {
				return fmt.Errorf("seed sensor %s: %w", sensor.SensorCode, err)
			}

			slot := model.Slot{
				Label:               slotLabel,
				Zone:                "A",
				SensorID:            &sensor.ID,
				Status:              model.StatusOffline,
				OccupiedThresholdCm: model.DefaultThresholdCm,
			}
			if err := tx.Create(&slot).Error; err != nil {
				return fmt.Errorf("seed slot %s: %w", slotLabel, err)
			}
		}
		return nil
	})
}
