package parking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gupio-parking-backend/internal/auth"
	"gupio-parking-backend/internal/greeting"
	"gupio-parking-backend/internal/history"
	"gupio-parking-backend/internal/metrics"
	"gupio-parking-backend/internal/model"
	"gupio-parking-backend/internal/reminder"
	"gupio-parking-backend/internal/store"
)

var ErrInvalidOTP = errors.New("invalid or expired otp")

// Authenticator checks employee credentials.
type Authenticator interface {
	Authenticate(employeeID, password string) (model.User, error)
	Lookup(employeeID string) (model.User, bool)
}

// TokenSigner issues session tokens for a verified user.
type TokenSigner interface {
	Issue(user model.User) (string, error)
}

// Notifier delivers an inactivity reminder out of band.
type Notifier interface {
	Dispatch(employeeID string)
}

// Deps are the collaborators of a Service. History, Metrics and Notifier may
// be nil.
type Deps struct {
	Directory Authenticator
	OTP       auth.OTPIssuer
	Tokens    TokenSigner
	History   history.Recorder
	Metrics   *metrics.Metrics
	Notifier  Notifier
}

// Options tune the login and reminder flows.
type Options struct {
	// RevealOTP returns the issued code in the login response.
	RevealOTP bool
	// ReminderDelay is the idle time before an inactivity reminder; zero
	// disables reminders.
	ReminderDelay time.Duration
	// Location is used for the dashboard greeting and timestamps.
	Location *time.Location
}

// Service sequences store commands for the HTTP layer and owns the
// inactivity reminder.
type Service struct {
	store    *store.Store
	deps     Deps
	opts     Options
	reminder *reminder.Scheduler
	now      func() time.Time
}

func NewService(st *store.Store, deps Deps, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	s := &Service{
		store: st,
		deps:  deps,
		opts:  opts,
		now:   time.Now,
	}
	if opts.ReminderDelay > 0 {
		s.reminder = reminder.NewScheduler(opts.ReminderDelay, s.remindInactive)
	}
	return s
}

// Close stops pending reminders.
func (s *Service) Close() {
	if s.reminder != nil {
		s.reminder.Stop()
	}
}

// State returns a snapshot of the whole store.
func (s *Service) State() store.State {
	return s.store.Snapshot()
}

// CurrentUser returns the signed-in user, if any.
func (s *Service) CurrentUser() (model.User, bool) {
	st := s.store.Snapshot()
	if st.User == nil || !st.IsLoggedIn {
		return model.User{}, false
	}
	return *st.User, true
}

// LoginChallenge is the result of a successful password check.
type LoginChallenge struct {
	EmployeeID string `json:"employeeId"`
	OTP        string `json:"otp,omitempty"`
}

// RequestOTP checks the credentials and issues a one-time password.
func (s *Service) RequestOTP(employeeID, password string) (LoginChallenge, error) {
	user, err := s.deps.Directory.Authenticate(employeeID, password)
	if err != nil {
		s.deps.Metrics.Login("invalid_credentials")
		return LoginChallenge{}, err
	}

	code, err := s.deps.OTP.Issue(user.EmployeeID)
	if err != nil {
		return LoginChallenge{}, fmt.Errorf("issue otp: %w", err)
	}
	s.store.SetStoredOTP(code)
	s.store.SetShowOTPInput(true)
	s.deps.Metrics.Login("otp_sent")
	log.Printf("OTP issued for employee %s", user.EmployeeID)

	challenge := LoginChallenge{EmployeeID: user.EmployeeID}
	if s.opts.RevealOTP {
		challenge.OTP = code
	}
	return challenge, nil
}

// CancelOTP leaves the OTP step and discards the pending code.
func (s *Service) CancelOTP(employeeID string) {
	if employeeID != "" {
		s.deps.OTP.Revoke(employeeID)
	}
	s.store.SetStoredOTP("")
	s.store.SetShowOTPInput(false)
}

// Session is returned after a successful OTP verification.
type Session struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// VerifyOTP completes the login: the user is signed in and a fresh slot
// inventory is drawn.
func (s *Service) VerifyOTP(employeeID, code string) (Session, error) {
	if !s.deps.OTP.Verify(employeeID, code) {
		s.deps.Metrics.Login("invalid_otp")
		return Session{}, ErrInvalidOTP
	}
	user, ok := s.deps.Directory.Lookup(employeeID)
	if !ok {
		return Session{}, auth.ErrInvalidCredentials
	}

	if prev, ok := s.CurrentUser(); ok {
		s.disarm(prev.EmployeeID)
	}
	s.store.SetUser(user)
	s.store.SetStoredOTP("")
	s.store.SetShowOTPInput(false)
	s.store.InitializeParkingSlots()
	s.deps.Metrics.SetAvailableSpots(s.store.Snapshot().AvailableSpots)

	user.IsLoggedIn = true
	token, err := s.deps.Tokens.Issue(user)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	s.deps.Metrics.Login("verified")
	log.Printf("Employee %s logged in", user.EmployeeID)
	return Session{Token: token, User: user}, nil
}

// Logout ends the session. The slot inventory is kept.
func (s *Service) Logout(employeeID string) {
	s.disarm(employeeID)
	s.store.Logout()
	log.Printf("Employee %s logged out", employeeID)
}

// Modal names the dialog opened by a slot selection.
type Modal string

const (
	ModalBooking Modal = "booking"
	ModalCancel  Modal = "cancel"
)

// SelectSlot opens the booking dialog for an available slot or the cancel
// dialog for the caller's own slot. A slot booked by someone else is refused.
func (s *Service) SelectSlot(slotID, employeeID string) (model.Slot, Modal, error) {
	slot, ok := s.store.Snapshot().Slot(slotID)
	if !ok {
		return model.Slot{}, "", store.ErrSlotNotFound
	}

	switch {
	case slot.IsAvailable():
		s.store.SetSelectedSlot(&slot)
		s.store.SetShowBookingModal(true)
		return slot, ModalBooking, nil
	case slot.BookedBy == employeeID:
		s.store.SetSelectedSlot(&slot)
		s.store.SetShowCancelModal(true)
		return slot, ModalCancel, nil
	default:
		return slot, "", store.ErrSlotUnavailable
	}
}

// UIUpdate carries optional UI flag changes. A nil field is left alone; an
// empty SelectedSlotID clears the selection.
type UIUpdate struct {
	SelectedSlotID      *string
	ShowBookingModal    *bool
	ShowCancelModal     *bool
	ShowInactivityModal *bool
}

func (s *Service) UpdateUI(u UIUpdate) error {
	if u.SelectedSlotID != nil {
		if *u.SelectedSlotID == "" {
			s.store.SetSelectedSlot(nil)
		} else {
			slot, ok := s.store.Snapshot().Slot(*u.SelectedSlotID)
			if !ok {
				return store.ErrSlotNotFound
			}
			s.store.SetSelectedSlot(&slot)
		}
	}
	if u.ShowBookingModal != nil {
		s.store.SetShowBookingModal(*u.ShowBookingModal)
	}
	if u.ShowCancelModal != nil {
		s.store.SetShowCancelModal(*u.ShowCancelModal)
	}
	if u.ShowInactivityModal != nil {
		s.store.SetShowInactivityModal(*u.ShowInactivityModal)
	}
	return nil
}

// Reserve books the slot for the employee and closes the booking dialog.
func (s *Service) Reserve(ctx context.Context, slotID, employeeID string) (model.Booking, error) {
	booking, err := s.store.Reserve(slotID, employeeID)
	if err != nil {
		return model.Booking{}, err
	}
	s.store.SetShowBookingModal(false)
	s.store.SetSelectedSlot(nil)

	s.record(ctx, model.ActionReserve, booking)
	s.deps.Metrics.BookingEvent(string(model.ActionReserve), 1)
	s.afterBookingChange(employeeID)
	log.Printf("Employee %s booked slot %s", employeeID, slotID)
	return booking, nil
}

// Release cancels the employee's booking and closes the cancel dialog.
func (s *Service) Release(ctx context.Context, slotID, employeeID string) (model.Booking, error) {
	booking, err := s.store.Release(slotID, employeeID)
	if err != nil {
		return model.Booking{}, err
	}
	s.store.SetShowCancelModal(false)
	s.store.SetSelectedSlot(nil)

	s.record(ctx, model.ActionRelease, booking)
	s.deps.Metrics.BookingEvent(string(model.ActionRelease), 1)
	s.afterBookingChange(employeeID)
	log.Printf("Employee %s cancelled slot %s", employeeID, slotID)
	return booking, nil
}

// ActiveBookings lists the active bookings in booking order.
func (s *Service) ActiveBookings() []model.Booking {
	return s.store.Snapshot().ActiveBookings
}

// RespondToReminder closes the inactivity dialog. When the employee is not
// coming every active booking is released and returned.
func (s *Service) RespondToReminder(ctx context.Context, employeeID string, willBeThere bool) []model.Booking {
	s.store.SetShowInactivityModal(false)
	if willBeThere {
		return nil
	}

	released := s.store.ReleaseAll()
	for _, b := range released {
		s.record(ctx, model.ActionExpire, b)
	}
	s.deps.Metrics.BookingEvent(string(model.ActionExpire), len(released))
	s.afterBookingChange(employeeID)
	log.Printf("Released %d bookings of employee %s after inactivity", len(released), employeeID)
	return released
}

// Dashboard is the summary shown on the home screen.
type Dashboard struct {
	Greeting       string               `json:"greeting"`
	UserName       string               `json:"userName"`
	Date           string               `json:"date"`
	Time           string               `json:"time"`
	AvailableSpots int                  `json:"availableSpots"`
	TotalSpots     int                  `json:"totalSpots"`
	BookedSpots    int                  `json:"bookedSpots"`
	ActiveBookings int                  `json:"activeBookings"`
	Sections       []store.SectionCount `json:"sections"`
}

func (s *Service) Dashboard() Dashboard {
	now := s.now().In(s.opts.Location)
	st := s.store.Snapshot()

	d := Dashboard{
		Greeting:       greeting.Greeting(now),
		Date:           greeting.FormatDate(now),
		Time:           greeting.FormatTime(now),
		AvailableSpots: st.AvailableSpots,
		TotalSpots:     st.TotalSpots,
		BookedSpots:    st.BookedSpots(),
		ActiveBookings: len(st.ActiveBookings),
		Sections:       st.CountBySection(),
	}
	if st.User != nil {
		d.UserName = st.User.Name
	}
	return d
}

// History returns the employee's journal entries, newest first.
func (s *Service) History(ctx context.Context, employeeID string, limit int) ([]model.BookingHistory, error) {
	if s.deps.History == nil {
		return []model.BookingHistory{}, nil
	}
	return s.deps.History.ListByEmployee(ctx, employeeID, limit)
}

// ReinitializeSlots draws a fresh inventory.
func (s *Service) ReinitializeSlots() store.State {
	if u, ok := s.CurrentUser(); ok {
		s.disarm(u.EmployeeID)
	}
	s.store.InitializeParkingSlots()
	st := s.store.Snapshot()
	s.deps.Metrics.SetAvailableSpots(st.AvailableSpots)
	return st
}

// Recount recomputes the available slot count.
func (s *Service) Recount() int {
	s.store.UpdateAvailableSpots()
	n := s.store.Snapshot().AvailableSpots
	s.deps.Metrics.SetAvailableSpots(n)
	return n
}

// ReminderPending reports whether an inactivity reminder is armed.
func (s *Service) ReminderPending(employeeID string) bool {
	return s.reminder != nil && s.reminder.Pending(employeeID)
}

func (s *Service) afterBookingChange(employeeID string) {
	st := s.store.Snapshot()
	s.deps.Metrics.SetAvailableSpots(st.AvailableSpots)
	if s.reminder == nil {
		return
	}
	if len(st.ActiveBookings) > 0 {
		s.reminder.Arm(employeeID)
	} else {
		s.reminder.Disarm(employeeID)
	}
}

func (s *Service) disarm(employeeID string) {
	if s.reminder != nil {
		s.reminder.Disarm(employeeID)
	}
}

func (s *Service) remindInactive(employeeID string) {
	if !s.store.ShowInactivityModalFor(employeeID) {
		return
	}
	if s.deps.Notifier != nil {
		s.deps.Notifier.Dispatch(employeeID)
	}
}

func (s *Service) record(ctx context.Context, action model.BookingAction, b model.Booking) {
	if s.deps.History == nil {
		return
	}
	if err := s.deps.History.Record(ctx, history.Entry(action, b, s.now())); err != nil {
		log.Printf("Error recording %s of slot %s: %v", action, b.SlotID, err)
	}
}
