package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"gupio-parking-backend/internal/model"
	"gupio-parking-backend/internal/mw"
	"gupio-parking-backend/internal/parking"
	"gupio-parking-backend/internal/parse"
	"gupio-parking-backend/internal/store"
)

// GetState returns the full parking state.
func (h *Handler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.State())
}

// GetDashboard returns the home screen summary.
func (h *Handler) GetDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Dashboard())
}

// ListSlots returns the slots, optionally filtered by section and status.
func (h *Handler) ListSlots(c *gin.Context) {
	var section model.Section
	if raw := c.Query("section"); raw != "" {
		s, err := parse.ParseSection(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Error", "message": err.Error()})
			return
		}
		section = s
	}

	status := model.SlotStatus(c.Query("status"))
	if status != "" && status != model.SlotAvailable && status != model.SlotBooked {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Error", "message": "status must be available or booked"})
		return
	}

	st := h.svc.State()
	slots := make([]model.Slot, 0, len(st.ParkingSlots))
	for _, slot := range st.ParkingSlots {
		if section != "" && slot.Section != section {
			continue
		}
		if status != "" && slot.Status != status {
			continue
		}
		slots = append(slots, slot)
	}

	c.JSON(http.StatusOK, gin.H{
		"slots":          slots,
		"availableSpots": st.AvailableSpots,
		"totalSpots":     st.TotalSpots,
	})
}

// slotID canonicalizes the :slot_id path parameter. It writes a 400 and
// returns false when the id is malformed.
func slotID(c *gin.Context) (string, bool) {
	id, err := parse.ParseSlotID(c.Param("slot_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Error", "message": err.Error()})
		return "", false
	}
	return id.String(), true
}

// GetSlot returns a single slot.
func (h *Handler) GetSlot(c *gin.Context) {
	id, ok := slotID(c)
	if !ok {
		return
	}
	slot, found := h.svc.State().Slot(id)
	if !found {
		writeBookingError(c, store.ErrSlotNotFound)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// SelectSlot opens the booking or cancel dialog for a slot.
func (h *Handler) SelectSlot(c *gin.Context) {
	id, ok := slotID(c)
	if !ok {
		return
	}
	slot, modal, err := h.svc.SelectSlot(id, mw.EmployeeID(c))
	if err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slot": slot, "modal": modal})
}

type updateUIRequest struct {
	SelectedSlotID      *string `json:"selectedSlotId"`
	ShowBookingModal    *bool   `json:"showBookingModal"`
	ShowCancelModal     *bool   `json:"showCancelModal"`
	ShowInactivityModal *bool   `json:"showInactivityModal"`
}

// UpdateUI sets the selection and dialog flags.
func (h *Handler) UpdateUI(c *gin.Context) {
	var req updateUIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortValidation(c, err)
		return
	}

	update := parking.UIUpdate{
		ShowBookingModal:    req.ShowBookingModal,
		ShowCancelModal:     req.ShowCancelModal,
		ShowInactivityModal: req.ShowInactivityModal,
	}
	if req.SelectedSlotID != nil {
		id := ""
		if *req.SelectedSlotID != "" {
			parsed, err := parse.ParseSlotID(*req.SelectedSlotID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Validation Error", "message": err.Error()})
				return
			}
			id = parsed.String()
		}
		update.SelectedSlotID = &id
	}

	if err := h.svc.UpdateUI(update); err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.State())
}

// ReinitializeSlots draws a fresh slot inventory.
func (h *Handler) ReinitializeSlots(c *gin.Context) {
	st := h.svc.ReinitializeSlots()
	log.Printf("Slots reinitialized by %s", mw.EmployeeID(c))
	c.JSON(http.StatusOK, gin.H{"availableSpots": st.AvailableSpots, "totalSpots": st.TotalSpots})
}

// RecountSlots recomputes the available count.
func (h *Handler) RecountSlots(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"availableSpots": h.svc.Recount()})
}

func writeBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Slot Not Found", "message": "This parking slot does not exist"})
	case errors.Is(err, store.ErrSlotUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": "Slot Occupied", "message": "This parking slot is already booked"})
	case errors.Is(err, store.ErrSlotNotBooked):
		c.JSON(http.StatusConflict, gin.H{"error": "Slot Not Booked", "message": "This parking slot is not booked"})
	case errors.Is(err, store.ErrNotSlotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not Your Booking", "message": "This parking slot is booked by another employee"})
	default:
		log.Printf("Unexpected booking error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
