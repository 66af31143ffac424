package models

// Session delivery modes.
const (
	ModeVirtual   = "Virtual"
	ModeHybrid    = "Hybrid"
	ModeOnCampus  = "On-campus"
	DefaultFeeINR = 100000 // 1000 INR in paise
)

// AvailabilityRule maps a lowercase weekday name ("monday") to its ordered "HH:MM" start times.
type AvailabilityRule map[string][]string

// Counselor is admin-managed and read-only to the booking core.
type Counselor struct {
	ID               int64            `bson:"id" json:"id" db:"id"`
	Name             string           `bson:"name" json:"name" db:"name"`
	Specialties      []string         `bson:"specialties" json:"specialties"`
	Mode             string           `bson:"mode" json:"mode" db:"mode"`
	AvatarURL        string           `bson:"avatar_url,omitempty" json:"avatarUrl,omitempty" db:"avatar_url"`
	AvailabilityRule AvailabilityRule `bson:"availability_rule" json:"availabilityRule"`
	BlackoutDates    []string         `bson:"blackout_dates,omitempty" json:"blackoutDates,omitempty"`
	SessionFee       int64            `bson:"session_fee,omitempty" json:"sessionFee,omitempty" db:"session_fee"` // Minor units; 0 uses the default fee
	Currency         string           `bson:"currency,omitempty" json:"currency,omitempty" db:"currency"`
}
