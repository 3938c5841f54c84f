package store

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"parking-status-backend/internal/model"
	"parking-status-backend/internal/occupancy"
)

// Sentinel errors surfaced to the API boundary. ErrUnauthorized deliberately
// carries no hint of whether the device code exists.
var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrSensorNotFound = errors.New("sensor not found")
	ErrUnauthorized   = errors.New("invalid device key")
)

// Store defines all durable-state operations. Each method that mutates state
// runs its full read-modify-write as one transaction.
type Store interface {
	DB() *gorm.DB

	IngestReading(ctx context.Context, now time.Time, r Reading, presentedKey string) (IngestResult, error)
	RegisterSensors(ctx context.Context, now time.Time, reg Registration, presentedKey string) (*ConnectSummary, error)
	Connect(ctx context.Context, now time.Time, deviceCode, presentedKey string) (*ConnectSummary, error)
	SweepOffline(ctx context.Context, now, cutoff time.Time) ([]IngestResult, error)

	OccupancyStats(ctx context.Context, windowStart, now time.Time) ([]SlotStats, error)
	HourlyOccupancy(ctx context.Context, dayStart, now time.Time) ([]SlotHourly, error)

	AllSlots(ctx context.Context) ([]SlotView, error)
	UpdateThreshold(ctx context.Context, slotLabel string, thresholdCm float64) (bool, error)
	RecentEvents(ctx context.Context, limit int, slotLabel, deviceCode string) ([]model.TelemetryEvent, error)
	AllDevices(ctx context.Context) ([]DeviceView, error)
	CreateDevice(ctx context.Context, code, apiKey string) (*model.Device, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// authDevice loads a device by code and checks the presented key inside the
// caller's transaction. Key comparison is constant-time.
func authDevice(tx *gorm.DB, deviceCode, presentedKey string) (*model.Device, error) {
	var device model.Device
	if err := tx.Where("code = ?", deviceCode).First(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("lookup device %q: %w", deviceCode, err)
	}
	if subtle.ConstantTimeCompare([]byte(device.APIKey), []byte(presentedKey)) != 1 {
		return nil, ErrUnauthorized
	}
	return &device, nil
}

// IngestReading runs the full ingestion sequence: authenticate the device,
// resolve the sensor, derive the new status from the distance reading, and
// persist the slot overwrite plus one telemetry event. The overwrite fires
// even when the status is unchanged so the liveness clock and the audit
// trail stay dense.
func (s *gormStore) IngestReading(ctx context.Context, now time.Time, r Reading, presentedKey string) (IngestResult, error) {
	var result IngestResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		device, err := authDevice(tx, r.DeviceCode, presentedKey)
		if err != nil {
			return err
		}
		if err := tx.Model(device).Update("last_seen_at", now).Error; err != nil {
			return fmt.Errorf("update device last-seen: %w", err)
		}

		var sensor model.Sensor
		if err := tx.Where("device_id = ? AND sensor_code = ?", device.ID, r.SensorCode).
			First(&sensor).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSensorNotFound
			}
			return fmt.Errorf("lookup sensor %q: %w", r.SensorCode, err)
		}
		if err := tx.Model(&sensor).Update("last_seen_at", now).Error; err != nil {
			return fmt.Errorf("update sensor last-seen: %w", err)
		}

		var slot model.Slot
		err = tx.Where("sensor_id = ?", sensor.ID).First(&slot).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Unmapped sensor: a valid configuration, not an error. The
			// reading is still logged, with no slot and no status.
			event := model.TelemetryEvent{
				DeviceCode: device.Code,
				SensorCode: sensor.SensorCode,
				DistanceCm: r.DistanceCm,
				ReceivedAt: now,
				DeviceTS:   r.DeviceTS,
			}
			if err := tx.Create(&event).Error; err != nil {
				return fmt.Errorf("append telemetry event: %w", err)
			}
			result = IngestResult{Updated: false}
			return nil
		}
		if err != nil {
			return fmt.Errorf("lookup slot for sensor %q: %w", r.SensorCode, err)
		}

		newStatus := occupancy.StatusForDistance(r.DistanceCm, slot.EffectiveThresholdCm())

		if err := tx.Model(&slot).Updates(map[string]any{
			"status":           newStatus,
			"last_distance_cm": r.DistanceCm,
			"last_update_at":   now,
		}).Error; err != nil {
			return fmt.Errorf("update slot %q: %w", slot.Label, err)
		}

		label := slot.Label
		event := model.TelemetryEvent{
			DeviceCode:  device.Code,
			SensorCode:  sensor.SensorCode,
			SlotLabel:   &label,
			DistanceCm:  r.DistanceCm,
			StatusAfter: newStatus,
			ReceivedAt:  now,
			DeviceTS:    r.DeviceTS,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("append telemetry event: %w", err)
		}

		status := string(newStatus)
		distance := r.DistanceCm
		updatedAt := now
		result = IngestResult{
			Updated:    true,
			SlotLabel:  &label,
			Status:     &status,
			DistanceCm: &distance,
			UpdatedAt:  &updatedAt,
		}
		return nil
	})
	if err != nil {
		return IngestResult{}, err
	}
	return result, nil
}

// RegisterSensors upserts the device's sensors and their slot wiring. Slots
// are reused by label; adopting a slot that is already linked to another
// sensor performs a symmetric unlink of the old sensor in the same
// transaction, so no stale link survives.
func (s *gormStore) RegisterSensors(ctx context.Context, now time.Time, reg Registration, presentedKey string) (*ConnectSummary, error) {
	var summary *ConnectSummary

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		device, err := authDevice(tx, reg.DeviceCode, presentedKey)
		if err != nil {
			return err
		}
		if err := tx.Model(device).Update("last_seen_at", now).Error; err != nil {
			return fmt.Errorf("update device last-seen: %w", err)
		}

		for _, spec := range reg.Sensors {
			var sensor model.Sensor
			err := tx.Where("device_id = ? AND sensor_code = ?", device.ID, spec.SensorCode).
				First(&sensor).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				sensor = model.Sensor{
					DeviceID:   device.ID,
					SensorCode: spec.SensorCode,
					LastSeenAt: now,
				}
				if err := tx.Create(&sensor).Error; err != nil {
					return fmt.Errorf("create sensor %q: %w", spec.SensorCode, err)
				}
			case err != nil:
				return fmt.Errorf("lookup sensor %q: %w", spec.SensorCode, err)
			default:
				if err := tx.Model(&sensor).Update("last_seen_at", now).Error; err != nil {
					return fmt.Errorf("update sensor last-seen: %w", err)
				}
			}

			if spec.Slot != nil {
				if err := upsertSlotLink(tx, now, &sensor, *spec.Slot); err != nil {
					return err
				}
			}
		}

		summary, err = connectSummary(tx, device)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// upsertSlotLink creates or adopts the slot named in spec and links it 1:1
// to sensor.
func upsertSlotLink(tx *gorm.DB, now time.Time, sensor *model.Sensor, spec SlotSpec) error {
	status := model.ParseSlotStatus(spec.Status)

	var slot model.Slot
	err := tx.Where("label = ?", spec.Label).First(&slot).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup slot %q: %w", spec.Label, err)
	}

	// The sensor may only own one slot. Before it takes this one, any slot
	// it currently owns is unlinked; an existing slot sheds its old owner by
	// the update below.
	if slot.SensorID == nil || *slot.SensorID != sensor.ID {
		if err := tx.Model(&model.Slot{}).
			Where("sensor_id = ?", sensor.ID).
			Update("sensor_id", nil).Error; err != nil {
			return fmt.Errorf("unlink prior slot of sensor %q: %w", sensor.SensorCode, err)
		}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		slot = model.Slot{
			Label:               spec.Label,
			Zone:                spec.Zone,
			SensorID:            &sensor.ID,
			Status:              status,
			OccupiedThresholdCm: spec.OccupiedThresholdCm,
			LastUpdateAt:        now,
		}
		if err := tx.Create(&slot).Error; err != nil {
			return fmt.Errorf("create slot %q: %w", spec.Label, err)
		}
		return nil
	}

	if err := tx.Model(&slot).Updates(map[string]any{
		"zone":                  spec.Zone,
		"status":                status,
		"occupied_threshold_cm": spec.OccupiedThresholdCm,
		"sensor_id":             sensor.ID,
		"last_update_at":        now,
	}).Error; err != nil {
		return fmt.Errorf("adopt slot %q: %w", spec.Label, err)
	}
	return nil
}

// Connect authenticates the device, bumps its last-seen timestamp, and
// returns the current sensor→slot mapping without touching sensors.
func (s *gormStore) Connect(ctx context.Context, now time.Time, deviceCode, presentedKey string) (*ConnectSummary, error) {
	var summary *ConnectSummary

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		device, err := authDevice(tx, deviceCode, presentedKey)
		if err != nil {
			return err
		}
		if err := tx.Model(device).Update("last_seen_at", now).Error; err != nil {
			return fmt.Errorf("update device last-seen: %w", err)
		}
		summary, err = connectSummary(tx, device)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// connectSummary reloads the device's sensors with their slot links.
func connectSummary(tx *gorm.DB, device *model.Device) (*ConnectSummary, error) {
	var sensors []model.Sensor
	if err := tx.Preload("Slot").Where("device_id = ?", device.ID).
		Order("sensor_code").Find(&sensors).Error; err != nil {
		return nil, fmt.Errorf("load sensors for device %q: %w", device.Code, err)
	}

	infos := make([]SensorSlotInfo, 0, len(sensors))
	for _, sensor := range sensors {
		info := SensorSlotInfo{
			SensorID:   sensor.ID,
			SensorCode: sensor.SensorCode,
		}
		if sensor.Slot != nil {
			info.Slot = &SlotInfo{
				SlotID:              sensor.Slot.ID,
				Label:               sensor.Slot.Label,
				Zone:                sensor.Slot.Zone,
				Status:              string(sensor.Slot.Status),
				OccupiedThresholdCm: sensor.Slot.OccupiedThresholdCm,
			}
		}
		infos = append(infos, info)
	}

	return &ConnectSummary{
		DeviceID:    device.ID,
		DeviceCode:  device.Code,
		SensorCount: len(infos),
		Sensors:     infos,
	}, nil
}

// SweepOffline flips every sensor-linked slot whose sensor has been silent
// past the cutoff to Offline, appending one synthetic telemetry event per
// flipped slot so occupancy reconstruction sees the transition. Healthy
// fleets cost one read and no writes.
func (s *gormStore) SweepOffline(ctx context.Context, now, cutoff time.Time) ([]IngestResult, error) {
	var changed []IngestResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var slots []model.Slot
		if err := tx.Preload("Sensor").Where("sensor_id IS NOT NULL").
			Find(&slots).Error; err != nil {
			return fmt.Errorf("load sensor-linked slots: %w", err)
		}

		for i := range slots {
			slot := &slots[i]
			if slot.Sensor == nil || slot.Status == model.StatusOffline {
				continue
			}
			if !slot.Sensor.LastSeenAt.Before(cutoff) {
				continue
			}

			if err := tx.Model(slot).Updates(map[string]any{
				"status":         model.StatusOffline,
				"last_update_at": now,
			}).Error; err != nil {
				return fmt.Errorf("mark slot %q offline: %w", slot.Label, err)
			}

			var deviceCode string
			if err := tx.Model(&model.Device{}).
				Where("id = ?", slot.Sensor.DeviceID).
				Pluck("code", &deviceCode).Error; err != nil {
				return fmt.Errorf("lookup device for sensor %q: %w", slot.Sensor.SensorCode, err)
			}

			label := slot.Label
			event := model.TelemetryEvent{
				DeviceCode:  deviceCode,
				SensorCode:  slot.Sensor.SensorCode,
				SlotLabel:   &label,
				DistanceCm:  slot.LastDistanceCm,
				StatusAfter: model.StatusOffline,
				ReceivedAt:  now,
			}
			if err := tx.Create(&event).Error; err != nil {
				return fmt.Errorf("append offline event for slot %q: %w", slot.Label, err)
			}

			status := string(model.StatusOffline)
			distance := slot.LastDistanceCm
			updatedAt := now
			changed = append(changed, IngestResult{
				Updated:    true,
				SlotLabel:  &label,
				Status:     &status,
				DistanceCm: &distance,
				UpdatedAt:  &updatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}

// AllSlots returns every slot with its device/sensor wiring, ordered by label.
func (s *gormStore) AllSlots(ctx context.Context) ([]SlotView, error) {
	var slots []model.Slot
	if err := s.db.WithContext(ctx).
		Preload("Sensor").Preload("Sensor.Device").
		Order("label").Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}

	views := make([]SlotView, 0, len(slots))
	for _, slot := range slots {
		view := SlotView{
			Label:               slot.Label,
			Zone:                slot.Zone,
			Status:              string(slot.Status),
			LastDistanceCm:      slot.LastDistanceCm,
			LastUpdateAt:        slot.LastUpdateAt,
			OccupiedThresholdCm: slot.OccupiedThresholdCm,
		}
		if slot.Sensor != nil {
			sensorCode := slot.Sensor.SensorCode
			deviceCode := slot.Sensor.Device.Code
			view.SensorCode = &sensorCode
			view.DeviceCode = &deviceCode
		}
		views = append(views, view)
	}
	return views, nil
}

// UpdateThreshold sets a slot's occupied threshold, bounded to 1..200 cm.
// Returns false when the label is unknown or the value is out of range.
func (s *gormStore) UpdateThreshold(ctx context.Context, slotLabel string, thresholdCm float64) (bool, error) {
	if slotLabel == "" || thresholdCm < 1 || thresholdCm > 200 {
		return false, nil
	}

	res := s.db.WithContext(ctx).Model(&model.Slot{}).
		Where("label = ?", slotLabel).
		Updates(map[string]any{
			"occupied_threshold_cm": thresholdCm,
			"last_update_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("update threshold for slot %q: %w", slotLabel, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RecentEvents returns the newest telemetry events, optionally filtered by
// slot label and device code. limit is clamped to 1..500.
func (s *gormStore) RecentEvents(ctx context.Context, limit int, slotLabel, deviceCode string) ([]model.TelemetryEvent, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 500 {
		limit = 500
	}

	q := s.db.WithContext(ctx).Model(&model.TelemetryEvent{})
	if slotLabel != "" {
		q = q.Where("slot_label = ?", slotLabel)
	}
	if deviceCode != "" {
		q = q.Where("device_code = ?", deviceCode)
	}

	var events []model.TelemetryEvent
	if err := q.Order("received_at DESC, id DESC").Limit(limit).
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("load recent events: %w", err)
	}
	return events, nil
}

// AllDevices returns every device with its sensor→slot mapping.
func (s *gormStore) AllDevices(ctx context.Context) ([]DeviceView, error) {
	var devices []model.Device
	if err := s.db.WithContext(ctx).
		Preload("Sensors").Preload("Sensors.Slot").
		Order("code").Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("load devices: %w", err)
	}

	views := make([]DeviceView, 0, len(devices))
	for _, device := range devices {
		view := DeviceView{
			ID:         device.ID,
			Code:       device.Code,
			APIKey:     device.APIKey,
			LastSeenAt: device.LastSeenAt,
		}
		for _, sensor := range device.Sensors {
			info := SensorSlotInfo{SensorID: sensor.ID, SensorCode: sensor.SensorCode}
			if sensor.Slot != nil {
				info.Slot = &SlotInfo{
					SlotID:              sensor.Slot.ID,
					Label:               sensor.Slot.Label,
					Zone:                sensor.Slot.Zone,
					Status:              string(sensor.Slot.Status),
					OccupiedThresholdCm: sensor.Slot.OccupiedThresholdCm,
				}
			}
			view.Sensors = append(view.Sensors, info)
		}
		views = append(views, view)
	}
	return views, nil
}

// CreateDevice provisions a device, minting a key when none is supplied.
func (s *gormStore) CreateDevice(ctx context.Context, code, apiKey string) (*model.Device, error) {
	if code == "" {
		return nil, errors.New("device code is required")
	}
	if apiKey == "" {
		apiKey = mintAPIKey()
	}

	device := model.Device{Code: code, APIKey: apiKey, LastSeenAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Create(&device).Error; err != nil {
		return nil, fmt.Errorf("create device %q: %w", code, err)
	}
	return &device, nil
}

// mintAPIKey produces a fresh device credential in the 32-hex-char form the
// provisioning flow has always used.
func mintAPIKey() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
