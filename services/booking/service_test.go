package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"mindease/database"
	counselorRepo "mindease/database/repository/counselor"
	ledgerRepo "mindease/database/repository/ledger"
	"mindease/metrics"
	"mindease/models"
	"mindease/services/payment"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) SendUserPushNotification(ctx context.Context, userID, title, body string, data map[string]string) error {
	return m.Called(ctx, userID, title, body, data).Error(0)
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: fmt.Sprintf("task-%d", len(f.tasks)), Type: task.Type()}, nil
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type failingGate struct{}

func (failingGate) Provider() string { return "failing" }

func (failingGate) CreateSession(context.Context, models.SessionRequest) (*models.PaymentSession, error) {
	return nil, errors.New("processor unreachable")
}

func (failingGate) ExpireSession(context.Context, string) error { return nil }

type fixture struct {
	svc      *DefaultBookingService
	ledger   ledgerRepo.BookingLedger
	gate     *payment.SandboxGate
	notifier *MockNotifier
	tasks    *fakeEnqueuer
	clock    *testClock
}

// Counselor 7 sees students on Wednesdays at 10:00 and 16:00.
var counselorSeven = models.Counselor{
	ID:               7,
	Name:             "Dr. Kavya Rao",
	Specialties:      []string{"Anxiety"},
	Mode:             models.ModeVirtual,
	AvailabilityRule: models.AvailabilityRule{"wednesday": {"10:00", "16:00"}},
}

func newFixture(t *testing.T, gate payment.PaymentGate) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	ledger := ledgerRepo.NewGormLedger(db, 15*time.Minute)
	require.NoError(t, ledger.EnsureSchema(ctx))
	counselors, err := counselorRepo.NewGormCounselorRepo(db)
	require.NoError(t, err)
	c := counselorSeven
	require.NoError(t, counselors.Upsert(ctx, &c))

	f := &fixture{
		ledger:   ledger,
		notifier: new(MockNotifier),
		tasks:    &fakeEnqueuer{},
		clock:    &testClock{t: time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)},
	}
	f.notifier.On("SendUserPushNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	sandbox := payment.NewSandboxGate(zap.NewNop(), 0)
	if gate == nil {
		gate = sandbox
	}
	f.gate = sandbox

	f.svc, err = NewDefaultBookingService(counselors, ledger, gate, f.notifier, f.tasks, zap.NewNop(), Options{
		Fee:          models.DefaultFeeINR,
		Currency:     "INR",
		Location:     time.UTC,
		ReminderLead: time.Hour,
		Now:          f.clock.Now,
	})
	require.NoError(t, err)
	sandbox.Subscribe(func(ctx context.Context, cb models.PaymentCallback) {
		_, _ = f.svc.OnPaymentCallback(ctx, cb)
	})
	return f
}

func reserveReq(user, date, clock string) models.ReserveRequest {
	return models.ReserveRequest{UserID: user, CounselorID: 7, DateISO: date, Time: clock}
}

func TestReserveSlot_ConcurrentRequestsExactlyOneWins(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.ReserveSlot(ctx, reserveReq(fmt.Sprintf("student-%d", i), "2025-09-10", "10:00"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, models.ErrSlotConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)

	all, err := f.svc.ListBookings(ctx, models.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEndToEnd_PayConfirmThenConflict(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	b, err := f.svc.ReserveSlot(ctx, reserveReq("p1", "2025-09-10", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusHeld, b.Status)
	assert.Equal(t, int64(100000), b.Amount)
	assert.Equal(t, "INR", b.Currency)
	assert.Equal(t, "Dr. Kavya Rao", b.CounselorName)

	session, err := f.svc.StartPayment(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, session.BookingID)

	cb, err := f.gate.Complete(ctx, session.ID, models.PaymentSucceeded, "")
	require.NoError(t, err)

	got, err := f.svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, cb.PaymentID, got.PaymentID)
	assert.Equal(t, b.Amount, got.Amount)

	f.notifier.AssertCalled(t, "SendUserPushNotification", mock.Anything, "p1", "Booking confirmed",
		"Payment successful. Your appointment is confirmed.", mock.Anything)
	require.Len(t, f.tasks.tasks, 1)
	assert.Equal(t, "reminder:send", f.tasks.tasks[0].Type())

	_, err = f.svc.ReserveSlot(ctx, reserveReq("p2", "2025-09-10", "10:00"))
	assert.ErrorIs(t, err, models.ErrSlotConflict)
}

func TestConfirm_IsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	b, err := f.svc.ReserveSlot(ctx, reserveReq("p1", "2025-09-10", "10:00"))
	require.NoError(t, err)

	first, applied, err := f.svc.guard.Confirm(ctx, b.ID, "pay_1")
	require.NoError(t, err)
	assert.True(t, applied)

	second, applied, err := f.svc.guard.Confirm(ctx, b.ID, "pay_1")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, first, second)

	_, _, err = f.svc.guard.Confirm(ctx, b.ID, "pay_2")
	assert.ErrorIs(t, err, models.ErrStaleState)

	out, err := f.svc.OnPaymentCallback(ctx, models.PaymentCallback{BookingID: b.ID, Result: models.PaymentSucceeded, PaymentID: "pay_1"})
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, models.StatusConfirmed, out.Status)
}

func TestRedeliveredCallbackConfirmsOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.gate.SetRedeliveries(2)

	b, err := f.svc.ReserveSlot(ctx, reserveReq("p1", "2025-09-10", "16:00"))
	require.NoError(t, err)
	session, err := f.svc.StartPayment(ctx, b.ID)
	require.NoError(t, err)
	_, err = f.gate.Complete(ctx, session.ID, models.PaymentSucceeded, "")
	require.NoError(t, err)

	f.notifier.AssertNumberOfCalls(t, "SendUserPushNotification", 1)
	assert.Len(t, f.tasks.tasks, 1)
}

func TestCancelThenAnotherUserReserves(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	b, err := f.svc.ReserveSlot(ctx, reserveReq("p1", "2025-09-10", "10:00"))
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	_, err = f.svc.ReserveSlot(ctx, reserveReq("p2", "2025-09-10", "10:00"))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, b.ID)
	assert.ErrorIs(t, err, models.ErrStaleState)

	_, err = f.svc.Cancel(ctx, "no-such-booking")
	assert.ErrorIs(t, err, models.ErrBookingNotFound)
}

func TestSweepFreesSlotAndLatePaymentIsOrphaned(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	b, err := f.svc.ReserveSlot(ctx, reserveReq("p1", "2025-09-10", "10:00"))
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	ids, err := f.svc.SweepExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	f.clock.Advance(6 * time.Minute)
	ids, err = f.svc.SweepExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids)

	_, err = f.svc.ReserveSlot(ctx, reserveReq("p2", "2025-09-10", "10:00"))
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.OrphanedPaymentsTotal)
	out, err := f.svc.OnPaymentCallback(ctx, models.PaymentCallback{BookingID: b.ID, Result: models.PaymentSucceeded, PaymentID: "pay_late"})
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, models.StatusExpired, out.Status)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.OrphanedPaymentsTotal))

	expired, err := f.svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, expired.PaymentID)
}

func TestCancelledHoldSessionCannotBePaid(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	b, err := f.svc.ReserveSlot(ctx, reserveReq("p1", "2025-09-10", "10:00"))
	require.NoError(t, err)
	session, err := f.svc.StartPayment(ctx, b.ID)
	require.NoError(t, err)

	held, err := f.svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, held.SessionID)

	_, err = f.svc.Cancel(ctx, b.ID)
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.OrphanedPaymentsTotal)
	_, err = f.gate.Complete(ctx, session.ID, models.PaymentSucceeded, "")
	assert.ErrorIs(t, err, payment.ErrSessionClosed)
	assert.Equal(t, before, testutil.ToFloat64(metrics.OrphanedPaymentsTotal))

	got, err := f.svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
	assert.Empty(t, got.PaymentID)
}

func TestSweptHoldSessionCannotBePaid(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	b, err := f.svc.ReserveSlot(ctx, reserveReq("p1", "2025-09-10", "16:00"))
	require.NoError(t, err)
	session, err := f.svc.StartPayment(ctx, b.ID)
	require.NoError(t, err)

	f.clock.Advance(16 * time.Minute)
	ids, err := f.svc.SweepExpiredHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids)

	_, err = f.gate.Complete(ctx, session.ID, models.PaymentSucceeded, "")
	assert.ErrorIs(t, err, payment.ErrSessionClosed)

	got, err := f.svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)
}

func TestPaymentFailureCallbackReleasesHold(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	b, err := f.svc.ReserveSlot(ctx, reserveReq("p1", "2025-09-10", "10:00"))
	require.NoError(t, err)
	session, err := f.svc.StartPayment(ctx, b.ID)
	require.NoError(t, err)
	_, err = f.gate.Complete(ctx, session.ID, models.PaymentFailed, "card_declined")
	require.NoError(t, err)

	got, err := f.svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	out, err := f.svc.OnPaymentCallback(ctx, models.PaymentCallback{BookingID: b.ID, Result: models.PaymentFailed})
	require.NoError(t, err)
	assert.False(t, out.Applied)
}

func TestStartPayment_GateFailureReleasesHold(t *testing.T) {
	f := newFixture(t, failingGate{})
	ctx := context.Background()

	b, err := f.svc.ReserveSlot(ctx, reserveReq("p1", "2025-09-10", "10:00"))
	require.NoError(t, err)

	_, err = f.svc.StartPayment(ctx, b.ID)
	assert.ErrorIs(t, err, models.ErrPaymentFailure)

	got, err := f.svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	_, err = f.svc.StartPayment(ctx, b.ID)
	assert.ErrorIs(t, err, models.ErrStaleState)
}

func TestReserveSlot_RejectsInvalidRequests(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.clock.Advance(51 * time.Hour) // Wednesday 2025-09-03 12:00

	tests := []struct {
		name string
		req  models.ReserveRequest
		want error
	}{
		{"missing user", reserveReq("", "2025-09-10", "10:00"), models.ErrInvalidRequest},
		{"bad date", reserveReq("p1", "2025-02-30", "10:00"), models.ErrInvalidRequest},
		{"bad time", reserveReq("p1", "2025-09-10", "25:00"), models.ErrInvalidRequest},
		{"not offered", reserveReq("p1", "2025-09-11", "10:00"), models.ErrInvalidRequest},
		{"past slot", reserveReq("p1", "2025-09-03", "10:00"), models.ErrInvalidRequest},
		{"unknown counselor", models.ReserveRequest{UserID: "p1", CounselorID: 99, DateISO: "2025-09-10", Time: "10:00"}, models.ErrCounselorNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ReserveSlot(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	all, err := f.svc.ListBookings(ctx, models.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = f.svc.ReserveSlot(ctx, reserveReq("p1", "2025-09-03", "16:00"))
	assert.NoError(t, err)
}

func TestListAvailableSlots(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	held, err := f.svc.ReserveSlot(ctx, reserveReq("p1", "2025-09-10", "10:00"))
	require.NoError(t, err)
	confirmed, err := f.svc.ReserveSlot(ctx, reserveReq("p2", "2025-09-10", "16:00"))
	require.NoError(t, err)
	_, _, err = f.svc.guard.Confirm(ctx, confirmed.ID, "pay_1")
	require.NoError(t, err)
	cancelled, err := f.svc.ReserveSlot(ctx, reserveReq("p3", "2025-09-17", "10:00"))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, cancelled.ID)
	require.NoError(t, err)

	out, err := f.svc.ListAvailableSlots(ctx, 7, 2025, 9)
	require.NoError(t, err)
	assert.Equal(t, 30, out.DaysInMonth)
	assert.Equal(t, models.YearMonth{Year: 2025, Month: 8}, out.Prev)
	assert.Equal(t, models.YearMonth{Year: 2025, Month: 10}, out.Next)
	assert.Len(t, out.Weeks, 5)

	offered := map[string]bool{}
	for _, s := range out.Slots {
		offered[s.DateISO+" "+s.Time] = true
	}
	// Four Wednesdays with two times each, minus the held and the confirmed slot.
	assert.Len(t, out.Slots, 6)
	assert.False(t, offered[held.DateISO+" "+held.Time])
	assert.False(t, offered[confirmed.DateISO+" "+confirmed.Time])
	assert.True(t, offered["2025-09-17 10:00"])

	// Midday on 3 September hides that morning's slot.
	f.clock.Advance(51 * time.Hour)
	out, err = f.svc.ListAvailableSlots(ctx, 7, 2025, 9)
	require.NoError(t, err)
	assert.Len(t, out.Slots, 5)
	assert.Equal(t, "2025-09-03", out.Slots[0].DateISO)
	assert.Equal(t, "16:00", out.Slots[0].Time)

	_, err = f.svc.ListAvailableSlots(ctx, 7, 2025, 13)
	assert.ErrorIs(t, err, models.ErrInvalidRequest)
	_, err = f.svc.ListAvailableSlots(ctx, 99, 2025, 9)
	assert.ErrorIs(t, err, models.ErrCounselorNotFound)
}

func TestListAvailableSlots_IncludesExpired(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.ReserveSlot(ctx, reserveReq("p1", "2025-09-24", "16:00"))
	require.NoError(t, err)
	out, err := f.svc.ListAvailableSlots(ctx, 7, 2025, 9)
	require.NoError(t, err)
	assert.Len(t, out.Slots, 7)

	f.clock.Advance(20 * time.Minute)
	_, err = f.svc.SweepExpiredHolds(ctx)
	require.NoError(t, err)

	out, err = f.svc.ListAvailableSlots(ctx, 7, 2025, 9)
	require.NoError(t, err)
	assert.Len(t, out.Slots, 8)
}

func TestSessionFeeOverride(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	c := counselorSeven
	c.SessionFee = 150000
	require.NoError(t, f.svc.counselors.Upsert(ctx, &c))

	b, err := f.svc.ReserveSlot(ctx, reserveReq("p1", "2025-09-10", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, int64(150000), b.Amount)
}
