package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mindease/models"
	"mindease/utils"

	"go.uber.org/zap"
)

// SandboxGate is an in-process processor for development and tests. Sessions can be
// completed by hand or automatically after a delay.
type SandboxGate struct {
	logger       *zap.Logger
	autoComplete time.Duration
	redeliveries int
	now          func() time.Time

	mu       sync.Mutex
	listener CallbackListener
	sessions map[string]*sandboxSession
}

type sandboxSession struct {
	req     models.SessionRequest
	expired bool
}

// NewSandboxGate returns a gate that reports success autoComplete after each session
// is created. Zero disables auto completion.
func NewSandboxGate(logger *zap.Logger, autoComplete time.Duration) *SandboxGate {
	return &SandboxGate{
		logger:       logger,
		autoComplete: autoComplete,
		now:          time.Now,
		sessions:     make(map[string]*sandboxSession),
	}
}

func (g *SandboxGate) Provider() string { return "sandbox" }

// Subscribe sets the listener callbacks are delivered to.
func (g *SandboxGate) Subscribe(l CallbackListener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listener = l
}

// SetRedeliveries makes every callback arrive 1+n times.
func (g *SandboxGate) SetRedeliveries(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.redeliveries = n
}

func (g *SandboxGate) CreateSession(ctx context.Context, req models.SessionRequest) (*models.PaymentSession, error) {
	if err := validateSessionRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPaymentFailure, err)
	}

	id := utils.NewHandle("sbx_cs_")
	g.mu.Lock()
	g.sessions[id] = &sandboxSession{req: req}
	g.mu.Unlock()

	s := &models.PaymentSession{
		ID:          id,
		BookingID:   req.BookingID,
		Provider:    g.Provider(),
		CheckoutURL: "sandbox://checkout/" + id,
		ExpiresAt:   g.now().Add(stripeSessionLifetime).UTC(),
	}

	if g.autoComplete > 0 {
		time.AfterFunc(g.autoComplete, func() {
			if _, err := g.Complete(context.Background(), id, models.PaymentSucceeded, ""); err != nil {
				g.logger.Warn("Sandbox: auto completion failed", zap.String("sessionId", id), zap.Error(err))
			}
		})
	}
	return s, nil
}

// ExpireSession closes a session. Later completions are refused.
func (g *SandboxGate) ExpireSession(ctx context.Context, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[sessionID]
	if !ok {
		return fmt.Errorf("unknown sandbox session %s", sessionID)
	}
	s.expired = true
	return nil
}

// Complete reports the outcome of a session to the listener and returns the callback sent.
func (g *SandboxGate) Complete(ctx context.Context, sessionID string, result models.PaymentResult, reason string) (models.PaymentCallback, error) {
	g.mu.Lock()
	s, ok := g.sessions[sessionID]
	var (
		req     models.SessionRequest
		expired bool
	)
	if ok {
		req, expired = s.req, s.expired
	}
	listener := g.listener
	deliveries := 1 + g.redeliveries
	g.mu.Unlock()

	if !ok {
		return models.PaymentCallback{}, fmt.Errorf("unknown sandbox session %s", sessionID)
	}
	if expired {
		return models.PaymentCallback{}, fmt.Errorf("%w: sandbox session %s expired", ErrSessionClosed, sessionID)
	}

	cb := models.PaymentCallback{
		BookingID: req.BookingID,
		SessionID: sessionID,
		Result:    result,
		Reason:    reason,
	}
	if result == models.PaymentSucceeded {
		cb.PaymentID = "sbx_pay_" + sessionID[len("sbx_cs_"):]
	}
	if listener == nil {
		g.logger.Warn("Sandbox: no listener subscribed, dropping callback", zap.String("bookingId", req.BookingID))
		return cb, nil
	}
	for i := 0; i < deliveries; i++ {
		listener(ctx, cb)
	}
	return cb, nil
}
