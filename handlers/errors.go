package handlers

import (
	"errors"
	"net/http"

	"mindease/models"
	"mindease/utils"

	"github.com/gin-gonic/gin"
)

// statusFor maps booking errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrSlotConflict), errors.Is(err, models.ErrStaleState):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrBookingNotFound), errors.Is(err, models.ErrCounselorNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrPaymentFailure):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	message := http.StatusText(status)
	switch {
	case errors.Is(err, models.ErrSlotConflict):
		message = models.ErrSlotConflict.Error() + ", please pick another time"
	case errors.Is(err, models.ErrStaleState):
		message = models.ErrStaleState.Error()
	case status == http.StatusInternalServerError:
		utils.JSONError(c, status, message, "An unexpected error occurred. Please try again later.")
		return
	}
	utils.JSONError(c, status, message, err.Error())
}
