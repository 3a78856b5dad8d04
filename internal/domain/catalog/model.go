package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Medicine forms.
const (
	FormTablet            = "Tab"
	FormDispersibleTablet = "Dispersible Tablet"
	FormCapsule           = "Cap"
	FormSyrup             = "Syp"
	FormInjection         = "Inj"
	FormNasalSpray        = "Nasal Spray"
	FormCream             = "Cream"
	FormGel               = "Gel"
	FormOintment          = "Ointment"
	FormLotion            = "Lotion"
	FormDrops             = "Drops"
	FormInhaler           = "Inhaler"
	FormNebulizer         = "Nebulizer"
	FormNebulizerSolution = "Nebulizer Solution"
	FormSachet            = "Sachet"
)

var validForms = map[string]bool{
	FormTablet: true, FormDispersibleTablet: true, FormCapsule: true, FormSyrup: true,
	FormInjection: true, FormNasalSpray: true, FormCream: true, FormGel: true,
	FormOintment: true, FormLotion: true, FormDrops: true, FormInhaler: true,
	FormNebulizer: true, FormNebulizerSolution: true, FormSachet: true,
}

// Lab test categories.
const (
	CategoryBlood     = "Blood"
	CategoryImaging   = "Imaging"
	CategoryPulmonary = "Pulmonary"
	CategoryOther     = "Other"
)

var validCategories = map[string]bool{
	CategoryBlood: true, CategoryImaging: true, CategoryPulmonary: true, CategoryOther: true,
}

type Medicine struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Form          string    `json:"form"`
	Strength      string    `json:"strength"`
	DefaultDosage string    `json:"default_dosage"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DisplayName renders the medicine the way it is printed, e.g. "Tab Panadol 500mg".
func (m *Medicine) DisplayName() string {
	s := m.Form + " " + m.Name
	if m.Strength != "" {
		s += " " + m.Strength
	}
	return s
}

func (m *Medicine) Summary() MedicineSummary {
	return MedicineSummary{ID: m.ID, Name: m.Name, Form: m.Form, Strength: m.Strength}
}

// MedicineSummary is the payload of the public medicine lookup.
type MedicineSummary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Form     string    `json:"form"`
	Strength string    `json:"strength"`
}

type LabTest struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Abbreviation string    `json:"abbreviation"`
	Category     string    `json:"category"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName is "ABBR (Name)" when an abbreviation is set.
func (t *LabTest) DisplayName() string {
	if t.Abbreviation != "" {
		return t.Abbreviation + " (" + t.Name + ")"
	}
	return t.Name
}

func normalizeMedicine(m *Medicine) {
	m.Name = strings.TrimSpace(m.Name)
	m.Strength = strings.TrimSpace(m.Strength)
	m.DefaultDosage = strings.TrimSpace(m.DefaultDosage)
	if m.Form == "" {
		m.Form = FormTablet
	}
}

func normalizeLabTest(t *LabTest) {
	t.Name = strings.TrimSpace(t.Name)
	t.Abbreviation = strings.TrimSpace(t.Abbreviation)
	if t.Category == "" {
		t.Category = CategoryBlood
	}
}
