package prescription

import (
	"time"

	"github.com/google/uuid"
)

// Duration presets of a line item.
const (
	DurationNone    = ""
	DurationWeek    = "1week"
	Duration2Weeks  = "2weeks"
	DurationMonth   = "1month"
	Duration2Months = "2months"
	DurationCustom  = "custom"
)

var validDurations = map[string]bool{
	DurationNone: true, DurationWeek: true, Duration2Weeks: true,
	DurationMonth: true, Duration2Months: true, DurationCustom: true,
}

const maxDosePerPeriod = 10

// History holds the medical history checkboxes.
type History struct {
	DM      bool   `json:"dm"`
	HTN     bool   `json:"htn"`
	IHD     bool   `json:"ihd"`
	TB      bool   `json:"tb"`
	Smoking bool   `json:"smoking"`
	HepB    bool   `json:"hep_b"`
	HepC    bool   `json:"hep_c"`
	Obesity bool   `json:"obesity"`
	Other   string `json:"other"`
}

// Labels lists the checked conditions in print order.
func (h History) Labels() []string {
	var out []string
	for _, f := range []struct {
		on    bool
		label string
	}{
		{h.DM, "DM"}, {h.HTN, "HTN"}, {h.IHD, "IHD"}, {h.TB, "TB"},
		{h.Smoking, "Smoking"}, {h.HepB, "Hep-B"}, {h.HepC, "Hep-C"}, {h.Obesity, "Obesity"},
	} {
		if f.on {
			out = append(out, f.label)
		}
	}
	if h.Other != "" {
		out = append(out, h.Other)
	}
	return out
}

// Vitals are free text as written by the doctor, e.g. "120/80".
type Vitals struct {
	Pulse           string `json:"pulse"`
	SpO2            string `json:"spo2"`
	BloodPressure   string `json:"blood_pressure"`
	Sugar           string `json:"sugar"`
	Temperature     string `json:"temperature"`
	RespiratoryRate string `json:"respiratory_rate"`
	Other           string `json:"other"`
	ChestNotes      string `json:"chest_notes"`
}

type Reading struct {
	Label string
	Value string
}

// Filled returns only the vitals that were recorded.
func (v Vitals) Filled() []Reading {
	var out []Reading
	for _, r := range []Reading{
		{"Pulse", v.Pulse}, {"SpO2", v.SpO2}, {"BP", v.BloodPressure}, {"Sugar", v.Sugar},
		{"Temp", v.Temperature}, {"RR", v.RespiratoryRate}, {"Other", v.Other}, {"Chest", v.ChestNotes},
	} {
		if r.Value != "" {
			out = append(out, r)
		}
	}
	return out
}

// Instructions are the standard advice checkboxes plus free text.
type Instructions struct {
	AvoidFood         bool   `json:"avoid_food"`
	NoSmoking         bool   `json:"no_smoking"`
	Gargles           bool   `json:"gargles"`
	WarmLiquids       bool   `json:"warm_liquids"`
	CounseledInDetail bool   `json:"counseled_in_detail"`
	RescueRxGiven     bool   `json:"rescue_rx_given"`
	Other             string `json:"other"`
	Special           string `json:"special"`
	FollowUp          string `json:"follow_up"`
}

// Lines renders the checked advice as printed.
func (in Instructions) Lines() []string {
	var out []string
	for _, f := range []struct {
		on   bool
		text string
	}{
		{in.AvoidFood, "Avoid citrus, fried, cold and junk food items"},
		{in.NoSmoking, "Smoking and cold drinks strongly prohibited"},
		{in.Gargles, "Gargles after any type of inhaler are mandatory"},
		{in.WarmLiquids, "Use warm liquids frequently"},
		{in.CounseledInDetail, "Counseled in detail"},
		{in.RescueRxGiven, "Rescue Rx given with IV steroid and nebulization"},
	} {
		if f.on {
			out = append(out, f.text)
		}
	}
	if in.Other != "" {
		out = append(out, in.Other)
	}
	return out
}

// DosePeriods counts the doses taken at each time of day.
type DosePeriods struct {
	Morning   int `json:"morning"`
	Afternoon int `json:"afternoon"`
	Evening   int `json:"evening"`
	Night     int `json:"night"`
}

type LineItem struct {
	ID             uuid.UUID   `json:"id"`
	PrescriptionID uuid.UUID   `json:"prescription_id"`
	Position       int         `json:"position"`
	MedicineID     *uuid.UUID  `json:"medicine_id"`
	MedicineName   string      `json:"medicine_name"`
	CustomMedicine string      `json:"custom_medicine"`
	Dosage         string      `json:"dosage"`
	DosePeriods    DosePeriods `json:"dose_periods"`
	Days           int         `json:"days"`
	DurationChoice string      `json:"duration_choice"`
	CustomDuration string      `json:"custom_duration"`
	Instructions   string      `json:"instructions"`
}

// DisplayName is the catalog name when linked, else the free text.
func (li *LineItem) DisplayName() string {
	if li.MedicineName != "" {
		return li.MedicineName
	}
	if li.CustomMedicine != "" {
		return li.CustomMedicine
	}
	return "Unknown"
}

func (li *LineItem) InstructionDisplay() string {
	return InstructionDisplay(li.Instructions)
}

func (li *LineItem) DurationDisplay() string {
	return DurationDisplay(li.DurationChoice, li.CustomDuration, li.Days)
}

// OrderedTest is a lab test attached to a prescription.
type OrderedTest struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type Prescription struct {
	ID             uuid.UUID     `json:"id"`
	PatientID      uuid.UUID     `json:"patient_id"`
	DoctorID       *uuid.UUID    `json:"doctor_id"`
	IssuedAt       time.Time     `json:"issued_at"`
	ClinicalRecord string        `json:"clinical_record"`
	History        History       `json:"history"`
	IsFirstVisit   bool          `json:"is_first_visit"`
	Vitals         Vitals        `json:"vitals"`
	LabTestIDs     []uuid.UUID   `json:"lab_test_ids"`
	LabTests       []OrderedTest `json:"lab_tests,omitempty"`
	Instructions   Instructions  `json:"instructions"`
	Medicines      []LineItem    `json:"medicines"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	// read-only, filled by list queries
	PatientName       string `json:"patient_name,omitempty"`
	PatientExternalID string `json:"patient_external_id,omitempty"`
}

// DraftSeed is what a template contributes to a new prescription.
type DraftSeed struct {
	ClinicalRecord      string
	SpecialInstructions string
	Medicines           []LineItem
}
