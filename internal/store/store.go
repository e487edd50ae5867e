package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ticket-queue-monitor/internal/model"
)

// ErrNotFound is returned when a subscription does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for all database operations.
type Store interface {
	RecordObservations(ctx context.Context, observedAt time.Time, tickets []model.Ticket) ([]int, error)
	SaveSubscription(ctx context.Context, sub model.PushSubscription, ticketNumbers []int) error
	Subscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscribersFor(ctx context.Context, ticketNumber int) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// RecordObservations stores the first sighting of every (ticket, status)
// pair and returns the ticket numbers seen as CALLED for the first time.
func (s *gormStore) RecordObservations(ctx context.Context, observedAt time.Time, tickets []model.Ticket) ([]int, error) {
	if len(tickets) == 0 {
		return nil, nil
	}

	rows := make([]model.TicketObservation, 0, len(tickets))
	var called []int
	for _, t := range tickets {
		rows = append(rows, observationOf(t, observedAt))
		if t.Status == model.StatusCalled {
			called = append(called, t.TicketNumber)
		}
	}

	var fresh []int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(called) > 0 {
			var known []int
			if err := tx.Model(&model.TicketObservation{}).
				Where("status = ? AND ticket_number IN ?", string(model.StatusCalled), called).
				Pluck("ticket_number", &known).Error; err != nil {
				return fmt.Errorf("failed to load called observations: %w", err)
			}
			fresh = missing(called, known)
		}

		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert %d observations: %w", len(rows), err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

func observationOf(t model.Ticket, observedAt time.Time) model.TicketObservation {
	return model.TicketObservation{
		TicketNumber: t.TicketNumber,
		Status:       string(t.Status),
		ObservedAt:   observedAt,
		CreationDate: t.CreationDate.Time,
		CalledDate:   t.CalledDate.TimePtr(),
		ServedDate:   t.ServedDate.TimePtr(),
	}
}

// missing returns the members of want absent from have, in want's order.
func missing(want, have []int) []int {
	seen := make(map[int]bool, len(have))
	for _, n := range have {
		seen[n] = true
	}
	var out []int
	for _, n := range want {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// SaveSubscription creates or replaces a subscription and its ticket list.
func (s *gormStore) SaveSubscription(ctx context.Context, sub model.PushSubscription, ticketNumbers []int) error {
	sub.Tickets = nil
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(&sub).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		if err := tx.Where("endpoint = ?", sub.Endpoint).Delete(&model.SubscriptionTicket{}).Error; err != nil {
			return fmt.Errorf("failed to clear subscription tickets: %w", err)
		}

		if len(ticketNumbers) == 0 {
			return nil
		}
		links := make([]model.SubscriptionTicket, 0, len(ticketNumbers))
		for _, n := range missing(ticketNumbers, nil) {
			links = append(links, model.SubscriptionTicket{Endpoint: sub.Endpoint, TicketNumber: n})
		}
		if err := tx.Create(&links).Error; err != nil {
			return fmt.Errorf("failed to link subscription tickets: %w", err)
		}
		return nil
	})
}

// Subscription loads a subscription with its ticket numbers.
func (s *gormStore) Subscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Preload("Tickets").First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sub, ErrNotFound
	}
	return sub, err
}

// DeleteSubscription removes a subscription and its ticket links.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("endpoint = ?", endpoint).Delete(&model.SubscriptionTicket{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.PushSubscription{Endpoint: endpoint}).Error
	})
}

// SubscribersFor returns the subscriptions waiting on ticketNumber.
func (s *gormStore) SubscribersFor(ctx context.Context, ticketNumber int) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_tickets st ON st.endpoint = push_subscriptions.endpoint").
		Where("st.ticket_number = ?", ticketNumber).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load subscribers for ticket %d: %w", ticketNumber, err)
	}
	return subs, nil
}
