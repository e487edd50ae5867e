package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	jsoniter "github.com/json-iterator/go"

	"ticket-queue-monitor/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

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

// SubscriptionStore is the part of the store the workers need.
type SubscriptionStore interface {
	SubscribersFor(ctx context.Context, ticketNumber int) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// Payload is the JSON body delivered to the browser.
type Payload struct {
	Title        string `json:"title"`
	Body         string `json:"body"`
	TicketNumber int    `json:"ticketNumber"`
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size     int
	jobs     chan int
	store    SubscriptionStore
	webpush  *webpush.Options
	sender   NotificationSender
	logger   *log.Logger
	observed func(error)
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, store SubscriptionStore, webpushOptions *webpush.Options, logger *log.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int, size*16),
		store:   store,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger,
	}
}

// OnSent registers fn to be told about every push attempt.
func (wp *WorkerPool) OnSent(fn func(error)) {
	wp.observed = fn
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Printf("Worker %d started", id)
	for {
		select {
		case ticketNumber := <-wp.jobs:
			wp.sendNotificationsForTicket(ctx, ticketNumber)
		case <-ctx.Done():
			wp.logger.Printf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a ticket for notification. It never blocks the caller;
// when the queue is full the job is dropped and logged.
func (wp *WorkerPool) Dispatch(ticketNumber int) {
	select {
	case wp.jobs <- ticketNumber:
	default:
		wp.logger.Printf("notification queue full, dropping ticket %d", ticketNumber)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int {
	return wp.jobs
}

func (wp *WorkerPool) sendNotificationsForTicket(ctx context.Context, ticketNumber int) {
	subscriptions, err := wp.store.SubscribersFor(ctx, ticketNumber)
	if err != nil {
		wp.logger.Printf("Error fetching subscriptions for ticket %d: %v", ticketNumber, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	wp.logger.Printf("Sending %d notifications for ticket %d", len(subscriptions), ticketNumber)
	payload, err := json.Marshal(Payload{
		Title:        fmt.Sprintf("Ticket %d", ticketNumber),
		Body:         fmt.Sprintf("Ticket %d is being called", ticketNumber),
		TicketNumber: ticketNumber,
	})
	if err != nil {
		wp.logger.Printf("Error encoding payload for ticket %d: %v", ticketNumber, err)
		return
	}
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
	if wp.observed != nil {
		wp.observed(err)
	}
	if err != nil {
		wp.logger.Printf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		wp.logger.Printf("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.logger.Printf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
