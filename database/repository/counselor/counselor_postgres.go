package counselorRepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"mindease/models"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

const counselorColumns = "id, name, specialties, mode, avatar_url, availability_rule, blackout_dates, session_fee, currency"

const (
	listCounselorsQuery  = `SELECT ` + counselorColumns + ` FROM counselors ORDER BY id`
	getCounselorQuery    = `SELECT ` + counselorColumns + ` FROM counselors WHERE id = $1`
	countCounselorQuery  = `SELECT COUNT(*) FROM counselors`
	upsertCounselorQuery = `INSERT INTO counselors (` + counselorColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    specialties = EXCLUDED.specialties,
    mode = EXCLUDED.mode,
    avatar_url = EXCLUDED.avatar_url,
    availability_rule = EXCLUDED.availability_rule,
    blackout_dates = EXCLUDED.blackout_dates,
    session_fee = EXCLUDED.session_fee,
    currency = EXCLUDED.currency`
)

// counselorRecord carries the JSONB columns as raw text.
type counselorRecord struct {
	ID               int64          `db:"id"`
	Name             string         `db:"name"`
	Specialties      types.JSONText `db:"specialties"`
	Mode             string         `db:"mode"`
	AvatarURL        string         `db:"avatar_url"`
	AvailabilityRule types.JSONText `db:"availability_rule"`
	BlackoutDates    types.JSONText `db:"blackout_dates"`
	SessionFee       int64          `db:"session_fee"`
	Currency         string         `db:"currency"`
}

func (rec counselorRecord) toModel() (*models.Counselor, error) {
	c := &models.Counselor{
		ID:         rec.ID,
		Name:       rec.Name,
		Mode:       rec.Mode,
		AvatarURL:  rec.AvatarURL,
		SessionFee: rec.SessionFee,
		Currency:   rec.Currency,
	}
	if err := rec.Specialties.Unmarshal(&c.Specialties); err != nil {
		return nil, fmt.Errorf("counselor %d specialties: %w", rec.ID, err)
	}
	if err := rec.AvailabilityRule.Unmarshal(&c.AvailabilityRule); err != nil {
		return nil, fmt.Errorf("counselor %d availability: %w", rec.ID, err)
	}
	if err := rec.BlackoutDates.Unmarshal(&c.BlackoutDates); err != nil {
		return nil, fmt.Errorf("counselor %d blackout dates: %w", rec.ID, err)
	}
	return c, nil
}

type postgresCounselorRepo struct {
	db *sqlx.DB
}

func NewPostgresCounselorRepo(db *sqlx.DB) CounselorRepository {
	return &postgresCounselorRepo{db: db}
}

func (r *postgresCounselorRepo) List(ctx context.Context) ([]models.Counselor, error) {
	var recs []counselorRecord
	if err := r.db.SelectContext(ctx, &recs, listCounselorsQuery); err != nil {
		return nil, fmt.Errorf("%w: list counselors: %v", models.ErrStoreUnavailable, err)
	}
	out := make([]models.Counselor, 0, len(recs))
	for _, rec := range recs {
		c, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

func (r *postgresCounselorRepo) GetByID(ctx context.Context, id int64) (*models.Counselor, error) {
	var rec counselorRecord
	if err := r.db.GetContext(ctx, &rec, getCounselorQuery, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrCounselorNotFound
		}
		return nil, fmt.Errorf("%w: get counselor: %v", models.ErrStoreUnavailable, err)
	}
	return rec.toModel()
}

func (r *postgresCounselorRepo) Upsert(ctx context.Context, c *models.Counselor) error {
	specialties, err := jsonText(c.Specialties, "[]")
	if err != nil {
		return err
	}
	rule, err := jsonText(c.AvailabilityRule, "{}")
	if err != nil {
		return err
	}
	blackouts, err := jsonText(c.BlackoutDates, "[]")
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, upsertCounselorQuery,
		c.ID, c.Name, specialties, c.Mode, c.AvatarURL, rule, blackouts, c.SessionFee, c.Currency)
	if err != nil {
		return fmt.Errorf("%w: upsert counselor %d: %v", models.ErrStoreUnavailable, c.ID, err)
	}
	return nil
}

func (r *postgresCounselorRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, countCounselorQuery); err != nil {
		return 0, fmt.Errorf("%w: count counselors: %v", models.ErrStoreUnavailable, err)
	}
	return n, nil
}

func jsonText(v any, empty string) (types.JSONText, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode counselor field: %w", err)
	}
	if string(b) == "null" {
		return types.JSONText(empty), nil
	}
	return types.JSONText(b), nil
}
