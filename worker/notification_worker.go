package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shopdesk/utils"
)

const (
	NotificationNewLead     = "new_lead"
	NotificationNewCustomer = "new_customer"
)

// Notification is a message for a tenant about something the webhooks created.
type Notification struct {
	ID              uuid.UUID
	UserID          uint
	Type            string
	IntegrationName string
	Details         map[string]interface{}
}

func NewNotification(userID uint, kind, integrationName string, details map[string]interface{}) Notification {
	return Notification{
		ID:              uuid.New(),
		UserID:          userID,
		Type:            kind,
		IntegrationName: integrationName,
		Details:         details,
	}
}

// Notifier delivers a single notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotificationWorker delivers notifications off the request path. Enqueue
// never blocks; when the queue is full the notification is dropped.
type NotificationWorker struct {
	Notifier Notifier
	Logger   *logrus.Entry
	Timeout  time.Duration

	queue chan Notification
	done  chan struct{}
	once  sync.Once

	// mu orders sends in Enqueue before the final drain.
	mu     sync.RWMutex
	closed bool
}

func NewNotificationWorker(notifier Notifier, queueSize int, logger *logrus.Entry) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &NotificationWorker{
		Notifier: notifier,
		Logger:   logger,
		Timeout:  10 * time.Second,
		queue:    make(chan Notification, queueSize),
		done:     make(chan struct{}),
	}
}

// Enqueue schedules n for delivery and reports whether it was accepted.
// Accepted notifications are delivered even when shutdown begins right after.
func (w *NotificationWorker) Enqueue(n Notification) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}
	select {
	case w.queue <- n:
		return true
	default:
		return false
	}
}

// Start delivers queued notifications until ctx is cancelled, then drains
// whatever is still queued. It blocks; run it in its own goroutine.
func (w *NotificationWorker) Start(ctx context.Context) {
	defer w.once.Do(func() { close(w.done) })

	w.Logger.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info("Notification worker shutting down...")
			w.mu.Lock()
			w.closed = true
			w.mu.Unlock()
			w.drain()
			return
		case n := <-w.queue:
			w.deliver(n)
		}
	}
}

// Wait blocks until Start has returned.
func (w *NotificationWorker) Wait() {
	<-w.done
}

func (w *NotificationWorker) drain() {
	for {
		select {
		case n := <-w.queue:
			w.deliver(n)
		default:
			return
		}
	}
}

func (w *NotificationWorker) deliver(n Notification) {
	log := w.Logger.WithFields(logrus.Fields{
		"notification_id": n.ID.String(),
		"type":            n.Type,
		"user_id":         n.UserID,
	})

	defer func() {
		if r := recover(); r != nil {
			utils.LogError("notification_panic", fmt.Errorf("%v", r), map[string]interface{}{
				"notification_id": n.ID.String(),
				"type":            n.Type,
			})
		}
	}()

	// Deliveries outlive the request and the worker context.
	ctx, cancel := context.WithTimeout(context.Background(), w.Timeout)
	defer cancel()

	if err := w.Notifier.Notify(ctx, n); err != nil {
		log.WithError(err).Warn("Notification delivery failed")
		return
	}
	log.Debug("Notification delivered")
}
