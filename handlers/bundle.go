package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	AdminKey string

	// Directory and availability
	ListCounselors  gin.HandlerFunc
	GetAvailability gin.HandlerFunc

	// Booking endpoints
	CreateBooking   gin.HandlerFunc
	GetBooking      gin.HandlerFunc
	CancelBooking   gin.HandlerFunc
	PaymentCallback gin.HandlerFunc

	// Nil unless PAYMENT_PROVIDER is stripe.
	StripeWebhook gin.HandlerFunc

	// Admin endpoints
	AdminListBookings gin.HandlerFunc
}
