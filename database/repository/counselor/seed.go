package counselorRepo

import (
	"context"

	"mindease/models"

	"go.uber.org/zap"
)

var twiceDaily = []string{"10:00", "16:00"}

// DefaultCounselors is the directory a fresh deployment starts with.
func DefaultCounselors() []models.Counselor {
	return []models.Counselor{
		{
			ID:               1,
			Name:             "Dr. Aanya Sharma",
			Specialties:      []string{"Anxiety", "Stress Mgmt"},
			Mode:             models.ModeVirtual,
			AvatarURL:        "https://images.unsplash.com/photo-1554151228-14d9def656e4?q=80&w=1886&auto=format=fit",
			AvailabilityRule: models.AvailabilityRule{"monday": twiceDaily, "wednesday": twiceDaily},
		},
		{
			ID:               2,
			Name:             "Dr. Ravi Iyer",
			Specialties:      []string{"Depression", "Relationships"},
			Mode:             models.ModeHybrid,
			AvatarURL:        "https://images.unsplash.com/photo-1599566150163-29194dcaad36?q=80&w=1887&auto=format=fit",
			AvailabilityRule: models.AvailabilityRule{"tuesday": twiceDaily, "thursday": twiceDaily},
		},
		{
			ID:               3,
			Name:             "Dr. Priya Menon",
			Specialties:      []string{"Academic Burnout"},
			Mode:             models.ModeOnCampus,
			AvatarURL:        "https://images.unsplash.com/photo-1544723795-3fb6469f5b39?q=80&w=1887&auto=format=fit",
			AvailabilityRule: models.AvailabilityRule{"monday": twiceDaily, "friday": twiceDaily},
		},
		{
			ID:               4,
			Name:             "Dr. Arjun Verma",
			Specialties:      []string{"Grief", "Adjustment"},
			Mode:             models.ModeVirtual,
			AvatarURL:        "https://images.unsplash.com/photo-1544005313-94ddf0286df2?q=80&w=1887&auto=format=fit",
			AvailabilityRule: models.AvailabilityRule{"wednesday": twiceDaily, "friday": twiceDaily},
		},
	}
}

// SeedCounselors writes the default directory when the store is empty.
func SeedCounselors(ctx context.Context, repo CounselorRepository, logger *zap.Logger) error {
	n, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, c := range DefaultCounselors() {
		c := c
		if err := repo.Upsert(ctx, &c); err != nil {
			return err
		}
	}
	logger.Info("Seeded default counselors", zap.Int("count", len(DefaultCounselors())))
	return nil
}
