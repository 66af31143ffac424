package counselorRepo

import (
	"context"

	"mindease/models"
)

// CounselorRepository is the read side of the counselor directory plus the
// upsert used by seeding and admin tooling.
type CounselorRepository interface {
	// List returns every counselor ordered by id.
	List(ctx context.Context) ([]models.Counselor, error)
	// GetByID returns models.ErrCounselorNotFound for an unknown id.
	GetByID(ctx context.Context, id int64) (*models.Counselor, error)
	Upsert(ctx context.Context, c *models.Counselor) error
	Count(ctx context.Context) (int64, error)
}
