package history

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"gupio-parking-backend/internal/model"
)

// DefaultListLimit caps journal queries that do not specify a limit.
const DefaultListLimit = 50

// Recorder defines the journal operations for booking events.
type Recorder interface {
	Record(ctx context.Context, entry model.BookingHistory) error
	ListByEmployee(ctx context.Context, employeeID string, limit int) ([]model.BookingHistory, error)
}

// gormRecorder implements the Recorder interface using GORM.
type gormRecorder struct {
	db *gorm.DB
}

// NewGormRecorder creates a new GORM-backed recorder.
func NewGormRecorder(db *gorm.DB) Recorder {
	return &gormRecorder{db: db}
}

// Entry builds a journal row for a booking at the given observation time.
func Entry(action model.BookingAction, booking model.Booking, observedAt time.Time) model.BookingHistory {
	return model.BookingHistory{
		EmployeeID: booking.BookedBy,
		SlotID:     booking.SlotID,
		Section:    booking.Section,
		Action:     action,
		BookedAt:   booking.BookedAt,
		ObservedAt: observedAt,
	}
}

// Record appends one event to the journal.
func (r *gormRecorder) Record(ctx context.Context, entry model.BookingHistory) error {
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record %s for slot %s: %w", entry.Action, entry.SlotID, err)
	}
	return nil
}

// ListByEmployee returns the newest journal rows for an employee.
func (r *gormRecorder) ListByEmployee(ctx context.Context, employeeID string, limit int) ([]model.BookingHistory, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var rows []model.BookingHistory
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("observed_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list history for employee %s: %w", employeeID, err)
	}
	return rows, nil
}
