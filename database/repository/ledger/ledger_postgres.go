package ledgerRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mindease/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const bookingColumns = "id, user_id, user_email, counselor_id, counselor_name, date_iso, slot_time, amount, currency, status, session_id, payment_id, created_at, updated_at"

const (
	insertBookingQuery = `INSERT INTO bookings (` + bookingColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	getActiveBookingQuery = `SELECT ` + bookingColumns + ` FROM bookings WHERE counselor_id = $1 AND date_iso = $2 AND slot_time = $3 AND status IN ('held', 'confirmed')`

	getBookingByIDQuery = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	transitionQuery = `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4 RETURNING ` + bookingColumns

	confirmQuery = `UPDATE bookings SET status = $1, payment_id = $2, updated_at = $3 WHERE id = $4 AND status = $5 RETURNING ` + bookingColumns

	attachSessionQuery = `UPDATE bookings SET session_id = $1, updated_at = $2 WHERE id = $3 AND status = 'held'`

	sweepQuery = `UPDATE bookings SET status = 'expired', updated_at = $1 WHERE status = 'held' AND created_at < $2 RETURNING id`

	activeSlotsQuery = `SELECT counselor_id, date_iso, slot_time FROM bookings WHERE counselor_id = $1 AND status IN ('held', 'confirmed') AND date_iso BETWEEN $2 AND $3`
)

// PostgresLedger implements BookingLedger on Postgres. The schema, including the partial
// unique index ux_bookings_active_slot, is applied by database.RunMigrations.
type PostgresLedger struct {
	db      *sqlx.DB
	holdTTL time.Duration
	now     func() time.Time
}

func NewPostgresLedger(db *sqlx.DB, holdTTL time.Duration) *PostgresLedger {
	return &PostgresLedger{db: db, holdTTL: holdTTL, now: time.Now}
}

func (r *PostgresLedger) Get(ctx context.Context, key models.SlotKey) (*models.Booking, error) {
	var b models.Booking
	if err := r.db.GetContext(ctx, &b, getActiveBookingQuery, key.CounselorID, key.DateISO, key.Time); err != nil {
		return nil, mapSQLError(err, "get booking")
	}
	return &b, nil
}

func (r *PostgresLedger) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	if err := r.db.GetContext(ctx, &b, getBookingByIDQuery, id); err != nil {
		return nil, mapSQLError(err, "get booking")
	}
	return &b, nil
}

func (r *PostgresLedger) InsertIfAbsent(ctx context.Context, b *models.Booking) error {
	_, err := r.db.ExecContext(ctx, insertBookingQuery,
		b.ID, b.UserID, b.UserEmail, b.CounselorID, b.CounselorName, b.DateISO, b.Time,
		b.Amount, b.Currency, b.Status, b.SessionID, b.PaymentID, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return models.ErrSlotConflict
		}
		return fmt.Errorf("%w: insert booking: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *PostgresLedger) Transition(ctx context.Context, id string, from, to models.BookingStatus, extra models.TransitionExtra) (*models.Booking, error) {
	if !transitionAllowed(from, to) {
		return nil, fmt.Errorf("ledger: transition %s -> %s is not allowed", from, to)
	}

	var (
		b   models.Booking
		err error
	)
	now := r.now().UTC()
	if to == models.StatusConfirmed {
		err = r.db.GetContext(ctx, &b, confirmQuery, to, extra.PaymentID, now, id, from)
	} else {
		err = r.db.GetContext(ctx, &b, transitionQuery, to, now, id, from)
	}
	if err == nil {
		return &b, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transition booking %s: %v", models.ErrStoreUnavailable, id, err)
	}
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, models.ErrStaleState
}

func (r *PostgresLedger) AttachSession(ctx context.Context, id, sessionID string) error {
	res, err := r.db.ExecContext(ctx, attachSessionQuery, sessionID, r.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("%w: attach session to %s: %v", models.ErrStoreUnavailable, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: attach session to %s: %v", models.ErrStoreUnavailable, id, err)
	}
	if n == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return models.ErrStaleState
	}
	return nil
}

func (r *PostgresLedger) SweepExpiredHolds(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, sweepQuery, now.UTC(), now.Add(-r.holdTTL).UTC()); err != nil {
		return nil, fmt.Errorf("%w: sweep holds: %v", models.ErrStoreUnavailable, err)
	}
	return ids, nil
}

type slotRow struct {
	CounselorID int64  `db:"counselor_id"`
	DateISO     string `db:"date_iso"`
	Time        string `db:"slot_time"`
}

func (r *PostgresLedger) ActiveSlots(ctx context.Context, counselorID int64, fromISO, toISO string) ([]models.SlotKey, error) {
	var rows []slotRow
	if err := r.db.SelectContext(ctx, &rows, activeSlotsQuery, counselorID, fromISO, toISO); err != nil {
		return nil, fmt.Errorf("%w: active slots: %v", models.ErrStoreUnavailable, err)
	}
	keys := make([]models.SlotKey, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, models.SlotKey{CounselorID: row.CounselorID, DateISO: row.DateISO, Time: row.Time})
	}
	return keys, nil
}

func (r *PostgresLedger) List(ctx context.Context, f models.BookingFilter) ([]models.Booking, error) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.CounselorID != 0 {
		args = append(args, f.CounselorID)
		conds = append(conds, fmt.Sprintf("counselor_id = $%d", len(args)))
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, listLimit(f))
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	var out []models.Booking
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("%w: list bookings: %v", models.ErrStoreUnavailable, err)
	}
	return out, nil
}

// EnsureSchema only checks connectivity; migrations own the Postgres schema.
func (r *PostgresLedger) EnsureSchema(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping postgres: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

func mapSQLError(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrBookingNotFound
	}
	return fmt.Errorf("%w: %s: %v", models.ErrStoreUnavailable, op, err)
}
