package models

import "time"

// BookingStatus is the lifecycle state of a Booking.
type BookingStatus string

const (
	StatusHeld      BookingStatus = "held"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusExpired   BookingStatus = "expired"
)

// Active reports whether the status occupies its slot key.
func (s BookingStatus) Active() bool {
	return s == StatusHeld || s == StatusConfirmed
}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusHeld, StatusConfirmed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Booking is a reservation of one counselor slot.
type Booking struct {
	ID            string        `bson:"id" json:"id" db:"id"`                                            // UUID
	UserID        string        `bson:"user_id" json:"userId" db:"user_id"`                              // Student who booked
	UserEmail     string        `bson:"user_email,omitempty" json:"userEmail,omitempty" db:"user_email"` // Denormalized for admin listing
	CounselorID   int64         `bson:"counselor_id" json:"counselorId" db:"counselor_id"`               // Counselor booked
	CounselorName string        `bson:"counselor_name,omitempty" json:"counselorName,omitempty" db:"counselor_name"`
	DateISO       string        `bson:"date_iso" json:"dateISO" db:"date_iso"`                           // "YYYY-MM-DD"
	Time          string        `bson:"time" json:"time" db:"slot_time"`                                 // "HH:MM"
	Amount        int64         `bson:"amount" json:"amount" db:"amount"`                                // Minor currency units, fixed at hold time
	Currency      string        `bson:"currency" json:"currency" db:"currency"`                          // ISO 4217, e.g. "INR"
	Status        BookingStatus `bson:"status" json:"status" db:"status"`                                // held, confirmed, cancelled, expired
	SessionID     string        `bson:"session_id,omitempty" json:"sessionId,omitempty" db:"session_id"` // Open checkout session while held
	PaymentID     string        `bson:"payment_id,omitempty" json:"paymentId,omitempty" db:"payment_id"` // Set only when confirmed
	CreatedAt     time.Time     `bson:"created_at" json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time     `bson:"updated_at" json:"updatedAt" db:"updated_at"`
}

// Key returns the slot key the booking occupies.
func (b Booking) Key() SlotKey {
	return SlotKey{CounselorID: b.CounselorID, DateISO: b.DateISO, Time: b.Time}
}

// SlotKey identifies a bookable slot. At most one held or confirmed booking exists per key.
type SlotKey struct {
	CounselorID int64  `json:"counselorId"`
	DateISO     string `json:"dateISO"`
	Time        string `json:"time"`
}

// TransitionExtra carries fields written alongside a status change.
type TransitionExtra struct {
	PaymentID string
}

// BookingFilter narrows admin listings. Zero values match everything.
type BookingFilter struct {
	Status      BookingStatus
	CounselorID int64
	Limit       int
}

// ReserveRequest is the client input for placing a hold.
type ReserveRequest struct {
	UserID      string `json:"userId" binding:"required"`
	UserEmail   string `json:"userEmail" binding:"omitempty,email"`
	CounselorID int64  `json:"counselorId" binding:"required,gt=0"`
	DateISO     string `json:"dateISO" binding:"required,isodate"`
	Time        string `json:"time" binding:"required,hhmm"`
}

// ReserveResponse is returned from POST /bookings.
type ReserveResponse struct {
	BookingID      string          `json:"bookingId"`
	Status         BookingStatus   `json:"status"`
	Booking        *Booking        `json:"booking"`
	PaymentSession *PaymentSession `json:"paymentSession"`
}
