package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gupio-parking-backend/internal/history"
	"gupio-parking-backend/internal/mw"
	"gupio-parking-backend/internal/parse"
)

// ListBookings returns the active bookings.
func (h *Handler) ListBookings(c *gin.Context) {
	bookings := h.svc.ActiveBookings()
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

type createBookingRequest struct {
	SlotID string `json:"slotId" binding:"required"`
}

// CreateBooking books a slot for the caller.
func (h *Handler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortValidation(c, err)
		return
	}
	id, err := parse.ParseSlotID(req.SlotID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Error", "message": err.Error()})
		return
	}

	booking, err := h.svc.Reserve(c.Request.Context(), id.String(), mw.EmployeeID(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"title":   "Booking Confirmed",
		"message": "Your parking slot has been booked successfully!",
		"booking": booking,
	})
}

// DeleteBooking cancels one of the caller's bookings.
func (h *Handler) DeleteBooking(c *gin.Context) {
	id, ok := slotID(c)
	if !ok {
		return
	}

	booking, err := h.svc.Release(c.Request.Context(), id, mw.EmployeeID(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"title":   "Booking Cancelled",
		"message": "Your booking has been cancelled successfully",
		"booking": booking,
	})
}

// GetHistory returns the caller's booking journal, newest first.
func (h *Handler) GetHistory(c *gin.Context) {
	limit := history.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Error", "message": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	entries, err := h.svc.History(c.Request.Context(), mw.EmployeeID(c), limit)
	if err != nil {
		log.Printf("Error loading history for %s: %v", mw.EmployeeID(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

type reminderResponseRequest struct {
	WillBeThere *bool `json:"willBeThere" binding:"required"`
}

// RespondToReminder answers the inactivity reminder.
func (h *Handler) RespondToReminder(c *gin.Context) {
	var req reminderResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortValidation(c, err)
		return
	}

	released := h.svc.RespondToReminder(c.Request.Context(), mw.EmployeeID(c), *req.WillBeThere)
	if *req.WillBeThere {
		c.JSON(http.StatusOK, gin.H{"title": "Thank You", "message": "We'll keep your booking active. Please arrive soon"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"title":    "Bookings Cancelled",
		"message":  "All your bookings have been cancelled due to inactivity",
		"released": released,
	})
}
