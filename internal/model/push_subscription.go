package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Tickets []SubscriptionTicket `gorm:"foreignKey:Endpoint;references:Endpoint;constraint:OnDelete:CASCADE"`
}

// SubscriptionTicket maps a subscription to a ticket number it wants to hear about.
type SubscriptionTicket struct {
	Endpoint     string `gorm:"primaryKey"`
	TicketNumber int    `gorm:"primaryKey;autoIncrement:false;index"`
}
