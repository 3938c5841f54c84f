// Package ingest is the telemetry ingestion engine: it authenticates a
// device, derives the new occupancy status from a raw distance reading, and
// persists the auditable status-change event through the store.
package ingest

import (
	"context"
	"log"
	"time"

	"parking-status-backend/internal/store"
)

// Broadcaster receives slot updates after they are committed. Delivery is
// fire-and-forget: a failing broadcaster must never fail an ingestion.
type Broadcaster interface {
	SlotUpdated(result store.IngestResult)
}

// Service wires the ingestion and registration operations to the store and
// the broadcast sink.
type Service struct {
	store     store.Store
	broadcast Broadcaster
}

// NewService creates the ingestion service. broadcast may be nil.
func NewService(s store.Store, broadcast Broadcaster) *Service {
	return &Service{store: s, broadcast: broadcast}
}

// Ingest processes one telemetry reading. The whole read-modify-write runs in
// one store transaction; the broadcast fires only after commit, and only when
// a mapped slot was actually updated.
func (s *Service) Ingest(ctx context.Context, r store.Reading, presentedKey string) (store.IngestResult, error) {
	result, err := s.store.IngestReading(ctx, time.Now().UTC(), r, presentedKey)
	if err != nil {
		return store.IngestResult{}, err
	}

	if result.Updated && s.broadcast != nil {
		s.broadcast.SlotUpdated(result)
	}
	return result, nil
}

// RegisterSensors upserts the device's declared sensors and slot wiring and
// returns the resulting mapping.
func (s *Service) RegisterSensors(ctx context.Context, reg store.Registration, presentedKey string) (*store.ConnectSummary, error) {
	summary, err := s.store.RegisterSensors(ctx, time.Now().UTC(), reg, presentedKey)
	if err != nil {
		return nil, err
	}
	log.Printf("device %s registered %d sensors", summary.DeviceCode, summary.SensorCount)
	return summary, nil
}

// Connect authenticates a device and returns its current sensor→slot mapping.
func (s *Service) Connect(ctx context.Context, deviceCode, presentedKey string) (*store.ConnectSummary, error) {
	return s.store.Connect(ctx, time.Now().UTC(), deviceCode, presentedKey)
}
