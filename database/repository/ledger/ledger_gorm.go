package ledgerRepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mindease/models"

	"gorm.io/gorm"
)

// bookingRow is the gorm mapping of models.Booking. Timestamps come from the ledger clock,
// so gorm's auto timestamps are off.
type bookingRow struct {
	ID            string    `gorm:"primaryKey;size:64"`
	UserID        string    `gorm:"column:user_id;not null"`
	UserEmail     string    `gorm:"column:user_email"`
	CounselorID   int64     `gorm:"column:counselor_id;not null"`
	CounselorName string    `gorm:"column:counselor_name"`
	DateISO       string    `gorm:"column:date_iso;size:10;not null"`
	SlotTime      string    `gorm:"column:slot_time;size:5;not null"`
	Amount        int64     `gorm:"column:amount;not null"`
	Currency      string    `gorm:"column:currency;size:3;not null"`
	Status        string    `gorm:"column:status;size:16;not null;index:idx_bookings_status_created,priority:1"`
	SessionID     string    `gorm:"column:session_id"`
	PaymentID     string    `gorm:"column:payment_id"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime:false;index:idx_bookings_status_created,priority:2"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (bookingRow) TableName() string { return "bookings" }

const activeSlotIndexDDL = `CREATE UNIQUE INDEX IF NOT EXISTS ux_bookings_active_slot
	ON bookings (counselor_id, date_iso, slot_time)
	WHERE status IN ('held', 'confirmed')`

func toRow(b *models.Booking) bookingRow {
	return bookingRow{
		ID:            b.ID,
		UserID:        b.UserID,
		UserEmail:     b.UserEmail,
		CounselorID:   b.CounselorID,
		CounselorName: b.CounselorName,
		DateISO:       b.DateISO,
		SlotTime:      b.Time,
		Amount:        b.Amount,
		Currency:      b.Currency,
		Status:        string(b.Status),
		SessionID:     b.SessionID,
		PaymentID:     b.PaymentID,
		CreatedAt:     b.CreatedAt.UTC(),
		UpdatedAt:     b.UpdatedAt.UTC(),
	}
}

func (r bookingRow) toModel() *models.Booking {
	return &models.Booking{
		ID:            r.ID,
		UserID:        r.UserID,
		UserEmail:     r.UserEmail,
		CounselorID:   r.CounselorID,
		CounselorName: r.CounselorName,
		DateISO:       r.DateISO,
		Time:          r.SlotTime,
		Amount:        r.Amount,
		Currency:      r.Currency,
		Status:        models.BookingStatus(r.Status),
		SessionID:     r.SessionID,
		PaymentID:     r.PaymentID,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

// GormLedger implements BookingLedger with gorm. It is used with SQLite for
// single-node deployments and in tests.
type GormLedger struct {
	db      *gorm.DB
	holdTTL time.Duration
	now     func() time.Time
}

// NewGormLedger expects db to be opened with gorm.Config{TranslateError: true}.
func NewGormLedger(db *gorm.DB, holdTTL time.Duration) *GormLedger {
	return &GormLedger{db: db, holdTTL: holdTTL, now: time.Now}
}

func (r *GormLedger) EnsureSchema(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if err := db.AutoMigrate(&bookingRow{}); err != nil {
		return fmt.Errorf("failed to migrate bookings: %w", err)
	}
	if err := db.Exec(activeSlotIndexDDL).Error; err != nil {
		return fmt.Errorf("failed to create active slot index: %w", err)
	}
	return nil
}

func (r *GormLedger) Get(ctx context.Context, key models.SlotKey) (*models.Booking, error) {
	var row bookingRow
	err := r.db.WithContext(ctx).
		Where("counselor_id = ? AND date_iso = ? AND slot_time = ? AND status IN ?",
			key.CounselorID, key.DateISO, key.Time, activeStatuses()).
		Take(&row).Error
	if err != nil {
		return nil, mapGormError(err, "get booking")
	}
	return row.toModel(), nil
}

func (r *GormLedger) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	var row bookingRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return nil, mapGormError(err, "get booking")
	}
	return row.toModel(), nil
}

func (r *GormLedger) InsertIfAbsent(ctx context.Context, b *models.Booking) error {
	row := toRow(b)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return models.ErrSlotConflict
		}
		return fmt.Errorf("%w: insert booking: %v", models.ErrStoreUnavailable, err)
	}
	return nil
}

func (r *GormLedger) Transition(ctx context.Context, id string, from, to models.BookingStatus, extra models.TransitionExtra) (*models.Booking, error) {
	if !transitionAllowed(from, to) {
		return nil, fmt.Errorf("ledger: transition %s -> %s is not allowed", from, to)
	}

	updates := map[string]any{
		"status":     string(to),
		"updated_at": r.now().UTC(),
	}
	if to == models.StatusConfirmed {
		updates["payment_id"] = extra.PaymentID
	}

	var row bookingRow
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&bookingRow{}).Where("id = ? AND status = ?", id, string(from)).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&bookingRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return models.ErrBookingNotFound
			}
			return models.ErrStaleState
		}
		return tx.Where("id = ?", id).Take(&row).Error
	})
	if err != nil {
		if errors.Is(err, models.ErrBookingNotFound) || errors.Is(err, models.ErrStaleState) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: transition booking %s: %v", models.ErrStoreUnavailable, id, err)
	}
	return row.toModel(), nil
}

func (r *GormLedger) AttachSession(ctx context.Context, id, sessionID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&bookingRow{}).
			Where("id = ? AND status = ?", id, string(models.StatusHeld)).
			Updates(map[string]any{"session_id": sessionID, "updated_at": r.now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		var n int64
		if err := tx.Model(&bookingRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return models.ErrBookingNotFound
		}
		return models.ErrStaleState
	})
	if err != nil {
		if errors.Is(err, models.ErrBookingNotFound) || errors.Is(err, models.ErrStaleState) {
			return err
		}
		return fmt.Errorf("%w: attach session to %s: %v", models.ErrStoreUnavailable, id, err)
	}
	return nil
}

func (r *GormLedger) SweepExpiredHolds(ctx context.Context, now time.Time) ([]string, error) {
	cutoff := now.Add(-r.holdTTL).UTC()

	var ids []string
	err := r.db.WithContext(ctx).Model(&bookingRow{}).
		Where("status = ? AND created_at < ?", string(models.StatusHeld), cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("%w: scan expired holds: %v", models.ErrStoreUnavailable, err)
	}

	var expired []string
	for _, id := range ids {
		if _, err := r.Transition(ctx, id, models.StatusHeld, models.StatusExpired, models.TransitionExtra{}); err != nil {
			if errors.Is(err, models.ErrStaleState) || errors.Is(err, models.ErrBookingNotFound) {
				continue
			}
			return expired, err
		}
		expired = append(expired, id)
	}
	return expired, nil
}

func (r *GormLedger) ActiveSlots(ctx context.Context, counselorID int64, fromISO, toISO string) ([]models.SlotKey, error) {
	var rows []bookingRow
	err := r.db.WithContext(ctx).
		Select("counselor_id", "date_iso", "slot_time").
		Where("counselor_id = ? AND status IN ? AND date_iso BETWEEN ? AND ?", counselorID, activeStatuses(), fromISO, toISO).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: active slots: %v", models.ErrStoreUnavailable, err)
	}
	keys := make([]models.SlotKey, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, models.SlotKey{CounselorID: row.CounselorID, DateISO: row.DateISO, Time: row.SlotTime})
	}
	return keys, nil
}

func (r *GormLedger) List(ctx context.Context, f models.BookingFilter) ([]models.Booking, error) {
	q := r.db.WithContext(ctx).Model(&bookingRow{})
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.CounselorID != 0 {
		q = q.Where("counselor_id = ?", f.CounselorID)
	}
	var rows []bookingRow
	if err := q.Order("created_at DESC").Limit(listLimit(f)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: list bookings: %v", models.ErrStoreUnavailable, err)
	}
	out := make([]models.Booking, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row.toModel())
	}
	return out, nil
}

func activeStatuses() []string {
	return []string{string(models.StatusHeld), string(models.StatusConfirmed)}
}

func mapGormError(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrBookingNotFound
	}
	return fmt.Errorf("%w: %s: %v", models.ErrStoreUnavailable, op, err)
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}
