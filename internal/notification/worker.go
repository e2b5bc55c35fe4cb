package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"instrupro-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Message is the push payload shown by the browser.
type Message struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Event model.PLCEvent `json:"event"`
}

// NewMessage renders the notification text of a PLC request event.
func NewMessage(e model.PLCEvent) Message {
	m := Message{Event: e}
	switch e.Kind {
	case model.PLCEventCancelled:
		m.Title = "PLC request cancelled"
		m.Body = fmt.Sprintf("%s (%s) was cancelled by %s", e.RequestName, e.SignalName, e.By)
	default:
		m.Title = "New PLC request"
		m.Body = fmt.Sprintf("%s filed %s for %s", e.By, e.RequestName, e.SignalName)
	}
	return m
}

// WorkerPool fans PLC request events out to every push subscription.
type WorkerPool struct {
	size    int
	jobs    chan model.PLCEvent
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan model.PLCEvent, size*4),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log.Named("notification"),
	}
}

// Start launches the worker goroutines. They exit when ctx is done.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker has returned.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	wp.log.Debug("Worker started", zap.Int("worker", id))
	for {
		select {
		case event := <-wp.jobs:
			wp.log.Debug("Worker processing event",
				zap.Int("worker", id),
				zap.String("kind", string(event.Kind)),
				zap.String("request", event.RequestID))
			wp.notifyAll(ctx, event)
		case <-ctx.Done():
			wp.log.Debug("Worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues an event. A full queue drops the event so that request
// writes never wait on push delivery.
func (wp *WorkerPool) Dispatch(event model.PLCEvent) {
	select {
	case wp.jobs <- event:
	default:
		wp.log.Warn("Notification queue full, dropping event",
			zap.String("kind", string(event.Kind)),
			zap.String("request", event.RequestID))
	}
}

func (wp *WorkerPool) notifyAll(ctx context.Context, event model.PLCEvent) {
	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		wp.log.Error("Error fetching subscriptions", zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(NewMessage(event))
	if err != nil {
		wp.log.Error("Error encoding notification", zap.Error(err))
		return
	}

	wp.log.Info("Sending notifications",
		zap.Int("subscriptions", len(subscriptions)),
		zap.String("request", event.RequestID))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.Warn("Error sending notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.log.Info("Subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.log.Error("Failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
