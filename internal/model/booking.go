package model

import "time"

// Booking is the user-facing record of an active reservation.
type Booking struct {
	SlotID   string    `json:"slotId"`
	Section  Section   `json:"section"`
	BookedAt time.Time `json:"bookedAt"`
	BookedBy string    `json:"bookedBy"`
}
