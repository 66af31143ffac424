package handlers

import (
	"errors"
	"io"
	"net/http"

	"mindease/models"
	"mindease/services/booking"
	"mindease/services/payment"
	"mindease/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

// WebhookHandler receives signed processor webhooks.
type WebhookHandler struct {
	Parser  payment.WebhookParser
	Service booking.BookingService
}

func NewWebhookHandler(parser payment.WebhookParser, svc booking.BookingService) *WebhookHandler {
	return &WebhookHandler{Parser: parser, Service: svc}
}

// StripeWebhookHandler verifies the Stripe-Signature header and applies checkout
// events. A 5xx asks Stripe to retry, so only store outages return one.
func (h *WebhookHandler) StripeWebhookHandler(c *gin.Context) {
	logger := getLogger(c)
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.JSONError(c, http.StatusRequestEntityTooLarge, "Webhook body too large", err.Error())
		return
	}

	cb, err := h.Parser.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			utils.JSONError(c, http.StatusBadRequest, "Invalid webhook signature", "")
			return
		}
		utils.JSONError(c, http.StatusBadRequest, "Malformed webhook", err.Error())
		return
	}
	if cb == nil {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	out, err := h.Service.OnPaymentCallback(c.Request.Context(), *cb)
	if err != nil {
		if errors.Is(err, models.ErrStoreUnavailable) {
			utils.JSONError(c, http.StatusInternalServerError, "Booking store unavailable", err.Error())
			return
		}
		logger.Warn("WebhookHandler: event not applied", zap.String("bookingId", cb.BookingID), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	c.JSON(http.StatusOK, out)
}
