package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"mindease/handlers"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func ok(c *gin.Context) { c.Status(http.StatusOK) }

func newEngine(hb *handlers.HandlerBundle) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, hb)
	return r
}

func bundle() *handlers.HandlerBundle {
	return &handlers.HandlerBundle{
		AdminKey:          "s3cret",
		ListCounselors:    ok,
		GetAvailability:   ok,
		CreateBooking:     ok,
		GetBooking:        ok,
		CancelBooking:     ok,
		PaymentCallback:   ok,
		AdminListBookings: ok,
	}
}

func TestRegisterRoutes(t *testing.T) {
	r := newEngine(bundle())

	tests := []struct {
		method, path string
		headers      map[string]string
		want         int
	}{
		{http.MethodGet, "/health", nil, http.StatusOK},
		{http.MethodGet, "/metrics", nil, http.StatusOK},
		{http.MethodGet, "/counselors", nil, http.StatusOK},
		{http.MethodGet, "/availability", nil, http.StatusOK},
		{http.MethodPost, "/bookings", nil, http.StatusOK},
		{http.MethodGet, "/bookings/b1", nil, http.StatusOK},
		{http.MethodDelete, "/bookings/b1", nil, http.StatusOK},
		{http.MethodPost, "/bookings/b1/payment-callback", nil, http.StatusOK},
		{http.MethodGet, "/admin/bookings", nil, http.StatusUnauthorized},
		{http.MethodGet, "/admin/bookings", map[string]string{"x-admin-key": "s3cret"}, http.StatusOK},
		// No stripe handler configured.
		{http.MethodPost, "/webhooks/stripe", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRegisterRoutes_StripeWebhook(t *testing.T) {
	hb := bundle()
	hb.StripeWebhook = ok
	r := newEngine(hb)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhooks/stripe", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
