package store

import (
	"math/rand/v2"
	"sync"
	"time"

	"gupio-parking-backend/internal/model"
	"gupio-parking-backend/internal/parse"
)

// Store holds the parking state. Every command runs under the store lock, so
// commands are applied one at a time and each leaves the state consistent.
type Store struct {
	mu    sync.Mutex
	state State
	index map[string]int // slot id -> position in state.ParkingSlots

	rng *rand.Rand
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithRand sets the random source used by InitializeParkingSlots.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.rng = r }
}

// WithClock sets the time source used for booking timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store. Slots are created by InitializeParkingSlots.
func New(opts ...Option) *Store {
	s := &Store{
		state: State{TotalSpots: TotalSpots},
		index: make(map[string]int),
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// SetUser replaces the signed-in user.
func (s *Store) SetUser(user model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.IsLoggedIn = true
	s.state.User = &user
	s.state.IsLoggedIn = true
}

// Logout clears the session, the booking list and all UI flags. The slot
// inventory is kept as is.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.User = nil
	s.state.IsLoggedIn = false
	s.state.ShowOTPInput = false
	s.state.ActiveBookings = nil
	s.state.SelectedSlot = nil
	s.state.ShowBookingModal = false
	s.state.ShowCancelModal = false
	s.state.ShowInactivityModal = false
}

// SetStoredOTP records the last issued one-time password.
func (s *Store) SetStoredOTP(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.StoredOTP = code
}

// SetShowOTPInput toggles the OTP entry step of the login flow.
func (s *Store) SetShowOTPInput(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ShowOTPInput = show
}

// InitializeParkingSlots rebuilds the inventory: every section gets
// SlotsPerSection slots, then a uniformly random subset is booked by
// SeedEmployeeID so that exactly TargetAvailableSpots remain free. Each call
// is a fresh draw; active bookings and the selection are dropped.
func (s *Store) InitializeParkingSlots() {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots := make([]model.Slot, 0, TotalSpots)
	for _, section := range Sections {
		for i := 1; i <= SlotsPerSection; i++ {
			slots = append(slots, model.Slot{
				ID:      parse.FormatSlotID(section, i),
				Section: section,
				Status:  model.SlotAvailable,
			})
		}
	}

	bookedAt := s.now()
	toBook := len(slots) - TargetAvailableSpots
	// Perm is a Fisher-Yates permutation; its prefix is a uniform sample.
	for _, i := range s.rng.Perm(len(slots))[:toBook] {
		at := bookedAt
		slots[i].Status = model.SlotBooked
		slots[i].BookedBy = SeedEmployeeID
		slots[i].BookedAt = &at
	}

	s.state.ParkingSlots = slots
	s.index = make(map[string]int, len(slots))
	for i, slot := range slots {
		s.index[slot.ID] = i
	}
	s.state.AvailableSpots = TargetAvailableSpots

	// The old inventory is gone, so are the bookings that pointed into it.
	s.state.ActiveBookings = nil
	s.state.SelectedSlot = nil
}

// BookSlot marks an available slot as booked. Unknown or already booked
// slots are left untouched. The booking list is not updated; see Reserve.
func (s *Store) BookSlot(slotID, employeeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[slotID]; ok && s.state.ParkingSlots[i].IsAvailable() {
		s.bookLocked(i, employeeID)
	}
}

// CancelBooking resets a slot to available. Unknown slots are ignored.
func (s *Store) CancelBooking(slotID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[slotID]; ok {
		s.cancelLocked(i)
	}
}

// SetSelectedSlot stores a copy of the slot, or clears the selection when nil.
func (s *Store) SetSelectedSlot(slot *model.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SelectedSlot = cloneSlot(slot)
}

func (s *Store) SetShowBookingModal(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ShowBookingModal = show
}

func (s *Store) SetShowCancelModal(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ShowCancelModal = show
}

func (s *Store) SetShowInactivityModal(show bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ShowInactivityModal = show
}

// ShowInactivityModalFor raises the inactivity dialog only if employeeID is
// still signed in and holds at least one active booking. It reports whether
// the dialog was raised.
func (s *Store) ShowInactivityModalFor(employeeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.state.User
	if u == nil || !s.state.IsLoggedIn || u.EmployeeID != employeeID || len(s.state.ActiveBookings) == 0 {
		return false
	}
	s.state.ShowInactivityModal = true
	return true
}

// AddActiveBooking appends a booking record. Callers must not add the same
// slot twice.
func (s *Store) AddActiveBooking(booking model.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ActiveBookings = append(s.state.ActiveBookings, booking)
}

// RemoveActiveBooking drops every booking record for the slot.
func (s *Store) RemoveActiveBooking(slotID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeBookingLocked(slotID)
}

// UpdateAvailableSpots recounts available slots.
func (s *Store) UpdateAvailableSpots() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recountLocked()
}

// Reserve books the slot for the employee and records the matching booking
// in a single step.
func (s *Store) Reserve(slotID, employeeID string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[slotID]
	if !ok {
		return model.Booking{}, ErrSlotNotFound
	}
	if !s.state.ParkingSlots[i].IsAvailable() {
		return model.Booking{}, ErrSlotUnavailable
	}

	s.bookLocked(i, employeeID)
	slot := s.state.ParkingSlots[i]
	booking := model.Booking{
		SlotID:   slot.ID,
		Section:  slot.Section,
		BookedAt: *slot.BookedAt,
		BookedBy: employeeID,
	}
	s.state.ActiveBookings = append(s.state.ActiveBookings, booking)
	return booking, nil
}

// Release cancels the employee's booking of the slot and drops the booking
// record in a single step. An empty employeeID skips the ownership check.
func (s *Store) Release(slotID, employeeID string) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[slotID]
	if !ok {
		return model.Booking{}, ErrSlotNotFound
	}
	slot := s.state.ParkingSlots[i]
	if slot.IsAvailable() {
		return model.Booking{}, ErrSlotNotBooked
	}
	if employeeID != "" && slot.BookedBy != employeeID {
		return model.Booking{}, ErrNotSlotOwner
	}

	return s.releaseLocked(i), nil
}

// ReleaseAll releases every slot in the active booking list and returns the
// released bookings in list order.
func (s *Store) ReleaseAll() []model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := append([]model.Booking(nil), s.state.ActiveBookings...)
	released := make([]model.Booking, 0, len(pending))
	for _, b := range pending {
		i, ok := s.index[b.SlotID]
		if !ok || s.state.ParkingSlots[i].IsAvailable() {
			s.removeBookingLocked(b.SlotID)
			continue
		}
		released = append(released, s.releaseLocked(i))
	}
	return released
}

func (s *Store) bookLocked(i int, employeeID string) {
	at := s.now()
	slot := &s.state.ParkingSlots[i]
	slot.Status = model.SlotBooked
	slot.BookedBy = employeeID
	slot.BookedAt = &at
	s.recountLocked()
}

func (s *Store) cancelLocked(i int) {
	slot := &s.state.ParkingSlots[i]
	slot.Status = model.SlotAvailable
	slot.BookedBy = ""
	slot.BookedAt = nil
	s.recountLocked()
}

func (s *Store) releaseLocked(i int) model.Booking {
	slot := s.state.ParkingSlots[i]
	released := model.Booking{
		SlotID:   slot.ID,
		Section:  slot.Section,
		BookedAt: *slot.BookedAt,
		BookedBy: slot.BookedBy,
	}
	s.cancelLocked(i)
	s.removeBookingLocked(slot.ID)
	return released
}

func (s *Store) removeBookingLocked(slotID string) {
	var kept []model.Booking
	for _, b := range s.state.ActiveBookings {
		if b.SlotID != slotID {
			kept = append(kept, b)
		}
	}
	s.state.ActiveBookings = kept
}

func (s *Store) recountLocked() {
	available := 0
	for _, slot := range s.state.ParkingSlots {
		if slot.IsAvailable() {
			available++
		}
	}
	s.state.AvailableSpots = available
}

func (st State) clone() State {
	out := st
	if st.User != nil {
		u := *st.User
		out.User = &u
	}
	out.ParkingSlots = make([]model.Slot, len(st.ParkingSlots))
	for i, slot := range st.ParkingSlots {
		out.ParkingSlots[i] = *cloneSlot(&slot)
	}
	out.ActiveBookings = append([]model.Booking{}, st.ActiveBookings...)
	out.SelectedSlot = cloneSlot(st.SelectedSlot)
	return out
}

func cloneSlot(slot *model.Slot) *model.Slot {
	if slot == nil {
		return nil
	}
	c := *slot
	if slot.BookedAt != nil {
		at := *slot.BookedAt
		c.BookedAt = &at
	}
	return &c
}
