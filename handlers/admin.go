package handlers

import (
	"net/http"
	"strconv"

	"mindease/models"
	"mindease/services/booking"
	"mindease/utils"

	"github.com/gin-gonic/gin"
)

// AdminHandler encapsulates elevated admin-level operations.
type AdminHandler struct {
	Service booking.BookingService
}

func NewAdminHandler(svc booking.BookingService) *AdminHandler {
	return &AdminHandler{Service: svc}
}

// ListBookingsHandler returns bookings, newest first, filtered by status and counselorId.
func (ah *AdminHandler) ListBookingsHandler(c *gin.Context) {
	filter := models.BookingFilter{Status: models.BookingStatus(c.Query("status"))}
	if v := c.Query("counselorId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid query", "counselorId must be an integer")
			return
		}
		filter.CounselorID = id
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			utils.JSONError(c, http.StatusBadRequest, "Invalid query", "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}

	bookings, err := ah.Service.ListBookings(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}
