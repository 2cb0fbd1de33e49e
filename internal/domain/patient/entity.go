package patient

import (
	"strings"
	"time"
)

// Patient as stored by the practice-management application.
type Patient struct {
	ID          int64      `json:"id"`
	PatientCode string     `json:"patient_id"` // external identifier (national id / chart number)
	FirstName   string     `json:"firstname"`
	LastName    string     `json:"lastname"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Sex         string     `json:"sex,omitempty"`
	Mobile      string     `json:"mobile,omitempty"`
	Address     string     `json:"address,omitempty"`
	InsuranceID int64      `json:"insurance_id,omitempty"`
	Insurance   string     `json:"insurance,omitempty"`
	Picture     string     `json:"picture,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// FullName joins first and last name.
func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Age in whole years at now. ok is false when the birth date is unknown.
func (p *Patient) Age(now time.Time) (years int, ok bool) {
	if p.DateOfBirth == nil || p.DateOfBirth.IsZero() {
		return 0, false
	}
	dob := *p.DateOfBirth
	years = now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return years, true
}

// SearchQuery filters patients by id and name prefixes.
type SearchQuery struct {
	ID        int64
	FirstName string
	LastName  string
	Limit     int
}
