package models

// CandidateSlot is a derived (date, time) a counselor could be booked for. Never persisted.
type CandidateSlot struct {
	CounselorID int64  `json:"counselorId"`
	DateISO     string `json:"dateISO"`
	Time        string `json:"time"`
}

// Key returns the slot key of the candidate.
func (s CandidateSlot) Key() SlotKey {
	return SlotKey{CounselorID: s.CounselorID, DateISO: s.DateISO, Time: s.Time}
}

// YearMonth is a calendar month reference.
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// MonthAvailability is the response of GET /availability.
type MonthAvailability struct {
	CounselorID int64           `json:"counselorId"`
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	DaysInMonth int             `json:"daysInMonth"`
	Weeks       [][]int         `json:"weeks"` // Sunday-first, 0 marks an empty cell
	Prev        YearMonth       `json:"prev"`
	Next        YearMonth       `json:"next"`
	Slots       []CandidateSlot `json:"slots"`
}
