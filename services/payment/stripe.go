package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mindease/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// Stripe rejects expires_at less than 30 minutes out.
const stripeSessionLifetime = 31 * time.Minute

const bookingMetadataKey = "booking_id"

type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Expire(id string, params *stripe.CheckoutSessionExpireParams) (*stripe.CheckoutSession, error)
}

// StripeGate creates Stripe Checkout sessions and parses Stripe webhooks.
type StripeGate struct {
	sessions      checkoutSessions
	webhookSecret string
	successURL    string
	cancelURL     string
	logger        *zap.Logger
	now           func() time.Time
}

func NewStripeGate(apiKey, webhookSecret, successURL, cancelURL string, logger *zap.Logger) *StripeGate {
	return &StripeGate{
		sessions:      &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: apiKey},
		webhookSecret: webhookSecret,
		successURL:    successURL,
		cancelURL:     cancelURL,
		logger:        logger,
		now:           time.Now,
	}
}

func (g *StripeGate) Provider() string { return "stripe" }

func (g *StripeGate) CreateSession(ctx context.Context, req models.SessionRequest) (*models.PaymentSession, error) {
	if err := validateSessionRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPaymentFailure, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPaymentFailure, err)
	}

	description := req.Description
	if description == "" {
		description = "Counseling session"
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		ClientReferenceID: stripe.String(req.BookingID),
		ExpiresAt:         stripe.Int64(g.now().Add(stripeSessionLifetime).Unix()),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{bookingMetadataKey: req.BookingID},
		},
	}
	if req.UserEmail != "" {
		params.CustomerEmail = stripe.String(req.UserEmail)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.AddMetadata(bookingMetadataKey, req.BookingID)
	params.SetIdempotencyKey("booking-" + req.BookingID)

	s, err := g.sessions.New(params)
	if err != nil {
		g.logger.Error("Stripe: checkout session creation failed", zap.String("bookingId", req.BookingID), zap.Error(err))
		return nil, fmt.Errorf("%w: stripe checkout: %v", models.ErrPaymentFailure, err)
	}

	g.logger.Info("Stripe: checkout session created", zap.String("bookingId", req.BookingID), zap.String("sessionId", s.ID))
	out := &models.PaymentSession{
		ID:          s.ID,
		BookingID:   req.BookingID,
		Provider:    g.Provider(),
		CheckoutURL: s.URL,
	}
	if s.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(s.ExpiresAt, 0).UTC()
	}
	return out, nil
}

// ExpireSession expires an open Checkout session. Stripe answers with a
// checkout.session.expired webhook, which arrives as a failure callback.
func (g *StripeGate) ExpireSession(ctx context.Context, sessionID string) error {
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	s, err := g.sessions.Expire(sessionID, params)
	if err != nil {
		g.logger.Warn("Stripe: checkout session expiry failed", zap.String("sessionId", sessionID), zap.Error(err))
		return fmt.Errorf("stripe expire %s: %w", sessionID, err)
	}
	g.logger.Info("Stripe: checkout session expired", zap.String("sessionId", sessionID), zap.String("status", string(s.Status)))
	return nil
}

// ParseWebhook maps checkout session events to payment callbacks.
func (g *StripeGate) ParseWebhook(payload []byte, signature string) (*models.PaymentCallback, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var result models.PaymentResult
	switch string(event.Type) {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		result = models.PaymentSucceeded
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		result = models.PaymentFailed
	default:
		g.logger.Debug("Stripe: ignoring webhook event", zap.String("type", string(event.Type)))
		return nil, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	// Delayed payment methods complete the session before the money moves.
	if string(event.Type) == "checkout.session.completed" && cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		g.logger.Info("Stripe: session completed awaiting async payment", zap.String("sessionId", cs.ID))
		return nil, nil
	}

	bookingID := cs.Metadata[bookingMetadataKey]
	if bookingID == "" {
		bookingID = cs.ClientReferenceID
	}
	if bookingID == "" {
		g.logger.Warn("Stripe: checkout session without booking reference", zap.String("sessionId", cs.ID))
		return nil, nil
	}

	cb := &models.PaymentCallback{
		BookingID: bookingID,
		SessionID: cs.ID,
		Result:    result,
	}
	if result == models.PaymentSucceeded {
		cb.PaymentID = cs.ID
		if cs.PaymentIntent != nil && cs.PaymentIntent.ID != "" {
			cb.PaymentID = cs.PaymentIntent.ID
		}
	} else {
		cb.Reason = string(event.Type)
	}
	return cb, nil
}
