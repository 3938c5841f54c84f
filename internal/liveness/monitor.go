// Package liveness flips slots whose sensor has gone silent to Offline on a
// fixed cadence, feeding the transitions through the same event-append path
// ingestion uses.
package liveness

import (
	"context"
	"log"
	"time"

	"parking-status-backend/internal/ingest"
	"parking-status-backend/internal/store"
)

// Monitor periodically sweeps sensor-linked slots for liveness timeouts.
type Monitor struct {
	store     store.Store
	broadcast ingest.Broadcaster
	timeout   time.Duration
	interval  time.Duration
}

// NewMonitor creates a liveness monitor. broadcast may be nil.
func NewMonitor(s store.Store, broadcast ingest.Broadcaster, timeout, interval time.Duration) *Monitor {
	return &Monitor{
		store:     s,
		broadcast: broadcast,
		timeout:   timeout,
		interval:  interval,
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	log.Printf("liveness monitor starting (timeout=%s interval=%s)", m.timeout, m.interval)

	timer := time.NewTimer(m.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("liveness monitor shutting down")
			return
		case <-timer.C:
			m.SweepOnce(ctx)
			timer.Reset(m.interval)
		}
	}
}

// SweepOnce marks every timed-out slot Offline and broadcasts the changes.
// A tick with nothing to flip performs no write and no broadcast.
func (m *Monitor) SweepOnce(ctx context.Context) {
	now := time.Now().UTC()
	cutoff := now.Add(-m.timeout)

	changed, err := m.store.SweepOffline(ctx, now, cutoff)
	if err != nil {
		log.Printf("liveness sweep failed: %v", err)
		return
	}
	if len(changed) == 0 {
		return
	}

	log.Printf("liveness sweep marked %d slots offline", len(changed))
	if m.broadcast == nil {
		return
	}
	for _, result := range changed {
		m.broadcast.SlotUpdated(result)
	}
}
