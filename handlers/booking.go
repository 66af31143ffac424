package handlers

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"mindease/models"
	"mindease/services/booking"
	"mindease/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler serves the student-facing booking endpoints.
type BookingHandler struct {
	Service        booking.BookingService
	CallbackSecret string
	Location       *time.Location
	Now            func() time.Time
}

// NewBookingHandler creates a BookingHandler. An empty callbackSecret leaves the
// payment callback open, which is only meant for the sandbox gate.
func NewBookingHandler(svc booking.BookingService, callbackSecret string, loc *time.Location) *BookingHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingHandler{Service: svc, CallbackSecret: callbackSecret, Location: loc, Now: time.Now}
}

// ListCounselorsHandler returns the counselor directory.
func (h *BookingHandler) ListCounselorsHandler(c *gin.Context) {
	counselors, err := h.Service.ListCounselors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counselors)
}

// GetAvailabilityHandler returns a month of open slots. year and month default to
// the current month.
func (h *BookingHandler) GetAvailabilityHandler(c *gin.Context) {
	counselorID, err := strconv.ParseInt(c.Query("counselorId"), 10, 64)
	if err != nil || counselorID <= 0 {
		utils.JSONError(c, http.StatusBadRequest, "Invalid query", "counselorId must be a positive integer")
		return
	}

	now := h.Now().In(h.Location)
	year, month := now.Year(), int(now.Month())
	if v := c.Query("year"); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid query", "year must be an integer")
			return
		}
	}
	if v := c.Query("month"); v != "" {
		if month, err = strconv.Atoi(v); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "Invalid query", "month must be an integer")
			return
		}
	}

	out, err := h.Service.ListAvailableSlots(c.Request.Context(), counselorID, year, month)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// CreateBookingHandler places a hold and opens the payment session for it.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	var req models.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid booking request", validationDetails(err))
		return
	}

	ctx := c.Request.Context()
	b, err := h.Service.ReserveSlot(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}

	session, err := h.Service.StartPayment(ctx, b.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	getLogger(c).Info("BookingHandler: hold placed",
		zap.String("bookingId", b.ID), zap.String("userId", b.UserID), zap.String("sessionId", session.ID))
	c.JSON(http.StatusCreated, models.ReserveResponse{
		BookingID:      b.ID,
		Status:         b.Status,
		Booking:        b,
		PaymentSession: session,
	})
}

// GetBookingHandler lets the client poll a booking while payment completes.
func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	b, err := h.Service.GetBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CancelBookingHandler releases a held booking.
func (h *BookingHandler) CancelBookingHandler(c *gin.Context) {
	b, err := h.Service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type paymentCallbackRequest struct {
	Result    models.PaymentResult `json:"result" binding:"required,oneof=success failure"`
	PaymentID string               `json:"paymentId"`
	SessionID string               `json:"sessionId"`
	Reason    string               `json:"reason"`
}

// PaymentCallbackHandler accepts processor notifications. Every well-formed callback
// is acknowledged with 200 so processors stop redelivering; the body reports the effect.
func (h *BookingHandler) PaymentCallbackHandler(c *gin.Context) {
	if h.CallbackSecret != "" &&
		subtle.ConstantTimeCompare([]byte(c.GetHeader("X-Callback-Secret")), []byte(h.CallbackSecret)) != 1 {
		utils.JSONError(c, http.StatusUnauthorized, "Invalid callback secret", "")
		return
	}

	var req paymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid payment callback", validationDetails(err))
		return
	}

	bookingID := c.Param("id")
	out, err := h.Service.OnPaymentCallback(c.Request.Context(), models.PaymentCallback{
		BookingID: bookingID,
		SessionID: req.SessionID,
		Result:    req.Result,
		PaymentID: req.PaymentID,
		Reason:    req.Reason,
	})
	if err != nil {
		getLogger(c).Warn("BookingHandler: payment callback not applied",
			zap.String("bookingId", bookingID), zap.String("result", string(req.Result)), zap.Error(err))
		c.JSON(http.StatusOK, models.CallbackOutcome{
			BookingID: bookingID,
			Applied:   false,
			Message:   fmt.Sprintf("callback not applied: %v", err),
		})
		return
	}
	c.JSON(http.StatusOK, out)
}
