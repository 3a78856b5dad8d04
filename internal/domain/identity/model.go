package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	GenderMale   = "M"
	GenderFemale = "F"
)

const (
	maxAge            = 150
	maxNameLength     = 200
	maxPhoneLength    = 30
	maxDuplicateMatch = 5
	maxLookupResults  = 10
)

type Patient struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	Gender     string    `json:"gender"`
	Age        *int      `json:"age,omitempty"`
	Weight     *float64  `json:"weight,omitempty"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (p *Patient) String() string {
	return fmt.Sprintf("%s - %s", p.ExternalID, p.Name)
}

func (p *Patient) Summary() PatientSummary {
	return PatientSummary{ID: p.ID, ExternalID: p.ExternalID, Name: p.Name, Gender: p.Gender, Age: p.Age}
}

// PatientSummary is the payload of the public patient lookup.
type PatientSummary struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	Gender     string    `json:"gender"`
	Age        *int      `json:"age"`
}

// DuplicateWarning is returned by CreatePatient when existing patients look
// like the one being registered. The caller may retry with confirmation.
type DuplicateWarning struct {
	Matches []*Patient
}

func (w *DuplicateWarning) Error() string {
	return fmt.Sprintf("%d possible duplicate patient(s) found", len(w.Matches))
}

func normalizePatient(p *Patient) {
	p.Name = strings.TrimSpace(p.Name)
	p.Gender = strings.ToUpper(strings.TrimSpace(p.Gender))
	p.Phone = strings.TrimSpace(p.Phone)
	p.Address = strings.TrimSpace(p.Address)
}

// User is a login account. Doctors have exactly one.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Doctor holds the letterhead printed on prescriptions.
type Doctor struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	Name            string    `json:"name"`
	Title           string    `json:"title"`
	Credentials     string    `json:"credentials"`
	Specialization  string    `json:"specialization"`
	Phone           string    `json:"phone"`
	HospitalName    string    `json:"hospital_name"`
	HospitalAddress string    `json:"hospital_address"`
	HospitalTagline string    `json:"hospital_tagline"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DisplayName is the name as printed, e.g. "Dr. Ayesha Khan". Title is a
// designation such as "Assistant Professor" and is printed separately.
func (d *Doctor) DisplayName() string {
	return "Dr. " + d.Name
}

// LoginResult is returned by Authenticate.
type LoginResult struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	UserID    uuid.UUID  `json:"user_id"`
	Role      string     `json:"role"`
	DoctorID  *uuid.UUID `json:"doctor_id,omitempty"`
}
