package store

import (
	"errors"

	"gupio-parking-backend/internal/model"
	"gupio-parking-backend/internal/parse"
)

const (
	// SlotsPerSection is the number of slots in every section.
	SlotsPerSection = parse.MaxSlotIndex
	// TotalSpots is the size of the slot inventory.
	TotalSpots = SlotsPerSection * 3
	// TargetAvailableSpots is how many slots stay free after initialization.
	TargetAvailableSpots = 30
	// SeedEmployeeID owns the slots booked during initialization.
	SeedEmployeeID = "EMP001"
)

// Sections lists the parking sections in layout order.
var Sections = []model.Section{model.SectionUS, model.SectionLS, model.SectionB3}

var (
	ErrSlotNotFound    = errors.New("parking slot not found")
	ErrSlotUnavailable = errors.New("parking slot is already booked")
	ErrSlotNotBooked   = errors.New("parking slot is not booked")
	ErrNotSlotOwner    = errors.New("parking slot is booked by another employee")
)

// State is a snapshot of the whole parking store.
type State struct {
	User         *model.User `json:"user"`
	IsLoggedIn   bool        `json:"isLoggedIn"`
	ShowOTPInput bool        `json:"showOtpInput"`
	StoredOTP    string      `json:"-"`

	ParkingSlots   []model.Slot `json:"parkingSlots"`
	AvailableSpots int          `json:"availableSpots"`
	TotalSpots     int          `json:"totalSpots"`

	ActiveBookings []model.Booking `json:"activeBookings"`

	SelectedSlot        *model.Slot `json:"selectedSlot"`
	ShowBookingModal    bool        `json:"showBookingModal"`
	ShowCancelModal     bool        `json:"showCancelModal"`
	ShowInactivityModal bool        `json:"showInactivityModal"`
}

// BookedSpots returns the number of slots that are not available.
func (s State) BookedSpots() int {
	return len(s.ParkingSlots) - s.AvailableSpots
}

// Slot looks up a slot by id in the snapshot.
func (s State) Slot(id string) (model.Slot, bool) {
	for _, slot := range s.ParkingSlots {
		if slot.ID == id {
			return slot, true
		}
	}
	return model.Slot{}, false
}

// SectionCount aggregates slot counts for a section.
type SectionCount struct {
	Section   model.Section `json:"section"`
	Available int           `json:"available"`
	Booked    int           `json:"booked"`
	Total     int           `json:"total"`
}

// CountBySection returns per-section counts in layout order.
func (s State) CountBySection() []SectionCount {
	counts := make(map[model.Section]*SectionCount, len(Sections))
	result := make([]SectionCount, len(Sections))
	for i, section := range Sections {
		result[i].Section = section
		counts[section] = &result[i]
	}

	for _, slot := range s.ParkingSlots {
		c, ok := counts[slot.Section]
		if !ok {
			continue
		}
		c.Total++
		if slot.IsAvailable() {
			c.Available++
		} else {
			c.Booked++
		}
	}
	return result
}
