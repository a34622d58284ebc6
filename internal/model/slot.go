package model

import "time"

// Section is one of the physical groupings of parking slots.
type Section string

const (
	SectionUS Section = "US"
	SectionLS Section = "LS"
	SectionB3 Section = "B3"
)

// SlotStatus is the occupancy state of a single slot.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
)

// Slot represents one bookable parking space.
type Slot struct {
	ID       string     `json:"id"`
	Section  Section    `json:"section"`
	Status   SlotStatus `json:"status"`
	BookedBy string     `json:"bookedBy,omitempty"`
	BookedAt *time.Time `json:"bookedAt,omitempty"`
}

// IsAvailable reports whether the slot can be booked.
func (s Slot) IsAvailable() bool {
	return s.Status == SlotAvailable
}
