package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"mindease/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_secret"

type fakeSessions struct {
	params    *stripe.CheckoutSessionParams
	err       error
	expired   []string
	expireErr error
}

func (f *fakeSessions) Expire(id string, _ *stripe.CheckoutSessionExpireParams) (*stripe.CheckoutSession, error) {
	if f.expireErr != nil {
		return nil, f.expireErr
	}
	f.expired = append(f.expired, id)
	return &stripe.CheckoutSession{ID: id, Status: stripe.CheckoutSessionStatusExpired}, nil
}

func (f *fakeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/cs_test_1", ExpiresAt: *params.ExpiresAt}, nil
}

func newTestStripeGate(sessions checkoutSessions) *StripeGate {
	g := NewStripeGate("sk_test", testWebhookSecret, "https://app/success", "https://app/cancel", zap.NewNop())
	g.sessions = sessions
	g.now = func() time.Time { return time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC) }
	return g
}

func TestStripeGate_CreateSession(t *testing.T) {
	fake := &fakeSessions{}
	g := newTestStripeGate(fake)

	s, err := g.CreateSession(context.Background(), models.SessionRequest{
		BookingID:   "b1",
		UserEmail:   "p1@uni.edu",
		Amount:      100000,
		Currency:    "INR",
		Description: "Session with Dr. Aanya Sharma",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", s.ID)
	assert.Equal(t, "stripe", s.Provider)
	assert.Equal(t, "b1", s.BookingID)
	assert.Equal(t, time.Date(2025, 9, 1, 9, 31, 0, 0, time.UTC), s.ExpiresAt)

	p := fake.params
	require.NotNil(t, p)
	assert.Equal(t, "payment", *p.Mode)
	assert.Equal(t, "inr", *p.LineItems[0].PriceData.Currency)
	assert.Equal(t, int64(100000), *p.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "b1", p.Metadata["booking_id"])
	assert.Equal(t, "b1", *p.ClientReferenceID)
	assert.Equal(t, "booking-b1", *p.IdempotencyKey)
	assert.Equal(t, "p1@uni.edu", *p.CustomerEmail)
}

func TestStripeGate_CreateSessionErrors(t *testing.T) {
	g := newTestStripeGate(&fakeSessions{err: errors.New("card_declined")})

	_, err := g.CreateSession(context.Background(), models.SessionRequest{BookingID: "b1", Amount: 100000, Currency: "INR"})
	assert.ErrorIs(t, err, models.ErrPaymentFailure)

	_, err = g.CreateSession(context.Background(), models.SessionRequest{BookingID: "b1", Amount: 0, Currency: "INR"})
	assert.ErrorIs(t, err, models.ErrPaymentFailure)
}

func TestStripeGate_ExpireSession(t *testing.T) {
	fake := &fakeSessions{}
	g := newTestStripeGate(fake)

	require.NoError(t, g.ExpireSession(context.Background(), "cs_test_1"))
	assert.Equal(t, []string{"cs_test_1"}, fake.expired)

	fake.expireErr = errors.New("session is already complete")
	assert.Error(t, g.ExpireSession(context.Background(), "cs_test_2"))
}

func signed(t *testing.T, payload string) (body []byte, header string) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: []byte(payload),
		Secret:  testWebhookSecret,
	})
	return sp.Payload, sp.Header
}

func TestStripeGate_ParseWebhook(t *testing.T) {
	g := newTestStripeGate(&fakeSessions{})

	tests := []struct {
		name    string
		payload string
		want    *models.PaymentCallback
	}{
		{
			name: "completed and paid",
			payload: `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":
				{"id":"cs_1","object":"checkout.session","payment_status":"paid","payment_intent":"pi_1","metadata":{"booking_id":"b1"}}}}`,
			want: &models.PaymentCallback{BookingID: "b1", SessionID: "cs_1", Result: models.PaymentSucceeded, PaymentID: "pi_1"},
		},
		{
			name: "client reference fallback",
			payload: `{"id":"evt_2","object":"event","type":"checkout.session.async_payment_succeeded","data":{"object":
				{"id":"cs_2","object":"checkout.session","payment_status":"paid","client_reference_id":"b2","payment_intent":"pi_2"}}}`,
			want: &models.PaymentCallback{BookingID: "b2", SessionID: "cs_2", Result: models.PaymentSucceeded, PaymentID: "pi_2"},
		},
		{
			name: "expired",
			payload: `{"id":"evt_3","object":"event","type":"checkout.session.expired","data":{"object":
				{"id":"cs_3","object":"checkout.session","payment_status":"unpaid","metadata":{"booking_id":"b3"}}}}`,
			want: &models.PaymentCallback{BookingID: "b3", SessionID: "cs_3", Result: models.PaymentFailed, Reason: "checkout.session.expired"},
		},
		{
			name: "completed but unpaid waits",
			payload: `{"id":"evt_4","object":"event","type":"checkout.session.completed","data":{"object":
				{"id":"cs_4","object":"checkout.session","payment_status":"unpaid","metadata":{"booking_id":"b4"}}}}`,
			want: nil,
		},
		{
			name:    "unrelated event",
			payload: `{"id":"evt_5","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, header := signed(t, tt.payload)
			got, err := g.ParseWebhook(body, header)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStripeGate_ParseWebhookBadSignature(t *testing.T) {
	g := newTestStripeGate(&fakeSessions{})
	body, _ := signed(t, `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)

	_, err := g.ParseWebhook(body, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
