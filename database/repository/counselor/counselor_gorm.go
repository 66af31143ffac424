package counselorRepo

import (
	"context"
	"errors"
	"fmt"

	"mindease/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type counselorRow struct {
	ID               int64                                       `gorm:"primaryKey;autoIncrement:false"`
	Name             string                                      `gorm:"not null"`
	Specialties      datatypes.JSONSlice[string]                 `gorm:"column:specialties"`
	Mode             string                                      `gorm:"column:mode"`
	AvatarURL        string                                      `gorm:"column:avatar_url"`
	AvailabilityRule datatypes.JSONType[models.AvailabilityRule] `gorm:"column:availability_rule"`
	BlackoutDates    datatypes.JSONSlice[string]                 `gorm:"column:blackout_dates"`
	SessionFee       int64                                       `gorm:"column:session_fee"`
	Currency         string                                      `gorm:"column:currency"`
}

func (counselorRow) TableName() string { return "counselors" }

func (r counselorRow) toModel() models.Counselor {
	return models.Counselor{
		ID:               r.ID,
		Name:             r.Name,
		Specialties:      []string(r.Specialties),
		Mode:             r.Mode,
		AvatarURL:        r.AvatarURL,
		AvailabilityRule: r.AvailabilityRule.Data(),
		BlackoutDates:    []string(r.BlackoutDates),
		SessionFee:       r.SessionFee,
		Currency:         r.Currency,
	}
}

type gormCounselorRepo struct {
	db *gorm.DB
}

// NewGormCounselorRepo migrates the counselors table and returns the repository.
func NewGormCounselorRepo(db *gorm.DB) (CounselorRepository, error) {
	if err := db.AutoMigrate(&counselorRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate counselors: %w", err)
	}
	return &gormCounselorRepo{db: db}, nil
}

func (r *gormCounselorRepo) List(ctx context.Context) ([]models.Counselor, error) {
	var rows []counselorRow
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: list counselors: %v", models.ErrStoreUnavailable, err)
	}
	out := make([]models.Counselor, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}

func (r *gormCounselorRepo) GetByID(ctx context.Context, id int64) (*models.Counselor, error) {
	var row counselorRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrCounselorNotFound
		}
		return nil, fmt.Errorf("%w: get counselor: %v", models.ErrStoreUnavailable, err)
	}
	c := row.toModel()
	return &c, nil
}

func (r *gormCounselorRepo) Upsert(ctx context.Context, c *models.Counselor) error {
	row := counselorRow{
		ID:               c.ID,
		Name:             c.Name,
		Specialties:      datatypes.JSONSlice[string](c.Specialties),
		Mode:             c.Mode,
		AvatarURL:        c.AvatarURL,
		AvailabilityRule: datatypes.NewJSONType(c.AvailabilityRule),
		BlackoutDates:    datatypes.JSONSlice[string](c.BlackoutDates),
		SessionFee:       c.SessionFee,
		Currency:         c.Currency,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: upsert counselor %d: %v", models.ErrStoreUnavailable, c.ID, err)
	}
	return nil
}

func (r *gormCounselorRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&counselorRow{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("%w: count counselors: %v", models.ErrStoreUnavailable, err)
	}
	return n, nil
}
