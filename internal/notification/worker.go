package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"parking-status-backend/internal/model"
	"parking-status-backend/internal/store"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of Sender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool fans slot updates out to subscribed browsers. It implements the
// ingestion engine's Broadcaster: delivery happens on pool goroutines and
// never blocks or fails the caller.
type WorkerPool struct {
	size    int
	jobs    chan store.IngestResult
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan store.IngestResult, size*4),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("notification worker %d started", id)
	for {
		select {
		case result := <-wp.jobs:
			wp.notifySubscribers(ctx, result)
		case <-ctx.Done():
			log.Printf("notification worker %d shutting down", id)
			return
		}
	}
}

// SlotUpdated queues a slot update for delivery. A full queue drops the
// update rather than stalling the caller.
func (wp *WorkerPool) SlotUpdated(result store.IngestResult) {
	if result.SlotLabel == nil {
		return
	}
	select {
	case wp.jobs <- result:
	default:
		log.Printf("notification queue full, dropping update for slot %s", *result.SlotLabel)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan store.IngestResult {
	return wp.jobs
}

// notifySubscribers fetches the subscriptions watching the slot and pushes
// the update to each.
func (wp *WorkerPool) notifySubscribers(ctx context.Context, result store.IngestResult) {
	label := *result.SlotLabel

	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_slot_mapping ssm ON ssm.push_subscription_endpoint = push_subscriptions.endpoint").
		Joins("JOIN slots ON slots.id = ssm.slot_id").
		Where("slots.label = ?", label).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("error fetching subscriptions for slot %s: %v", label, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		log.Printf("error encoding update for slot %s: %v", label, err)
		return
	}

	log.Printf("sending %d notifications for slot %s", len(subscriptions), label)
	for _, sub := range subscriptions {
		wp.push(ctx, sub, payload)
	}
}

// push sends a single web push notification.
func (wp *WorkerPool) push(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("subscription %s is expired, deleting", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
