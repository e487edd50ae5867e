package model

import "time"

// TicketObservation records the first time the monitor saw a ticket in a
// given status. The composite key makes the table append-only per stage.
type TicketObservation struct {
	TicketNumber int       `gorm:"primaryKey;autoIncrement:false"`
	Status       string    `gorm:"primaryKey;size:16"`
	ObservedAt   time.Time `gorm:"not null;index"`
	CreationDate time.Time `gorm:"not null"`
	CalledDate   *time.Time
	ServedDate   *time.Time
}
