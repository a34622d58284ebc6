package model

import "time"

// BookingAction names the event recorded in the booking journal.
type BookingAction string

const (
	ActionReserve BookingAction = "reserve"
	ActionRelease BookingAction = "release"
	// ActionExpire is recorded when bookings are dropped after an inactivity reminder.
	ActionExpire BookingAction = "expire"
)

// BookingHistory is an append-only journal row for reservation events.
type BookingHistory struct {
	ID         int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	EmployeeID string        `gorm:"size:64;not null;index" json:"employeeId"`
	SlotID     string        `gorm:"size:16;not null;index" json:"slotId"`
	Section    Section       `gorm:"size:8;not null" json:"section"`
	Action     BookingAction `gorm:"size:16;not null" json:"action"`
	BookedAt   time.Time     `gorm:"not null" json:"bookedAt"`
	ObservedAt time.Time     `gorm:"not null;index" json:"observedAt"` // when the event happened
}
