package rxtemplate

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicrx/clinic/internal/domain/prescription"
)

// Template is a reusable starting point for prescriptions of a common
// condition. Templates are never printed.
type Template struct {
	ID                  uuid.UUID          `json:"id"`
	Name                string             `json:"name"`
	Description         string             `json:"description"`
	DoctorID            *uuid.UUID         `json:"doctor_id"`
	ClinicalRecord      string             `json:"clinical_record"`
	SpecialInstructions string             `json:"special_instructions"`
	Active              bool               `json:"active"`
	Medicines           []TemplateMedicine `json:"medicines"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// TemplateMedicine mirrors a prescription line item.
type TemplateMedicine struct {
	ID             uuid.UUID                `json:"id"`
	TemplateID     uuid.UUID                `json:"template_id"`
	Position       int                      `json:"position"`
	MedicineID     *uuid.UUID               `json:"medicine_id"`
	MedicineName   string                   `json:"medicine_name"`
	CustomMedicine string                   `json:"custom_medicine"`
	Dosage         string                   `json:"dosage"`
	DosePeriods    prescription.DosePeriods `json:"dose_periods"`
	Days           int                      `json:"days"`
	DurationChoice string                   `json:"duration_choice"`
	CustomDuration string                   `json:"custom_duration"`
	Instructions   string                   `json:"instructions"`
}

func (m TemplateMedicine) lineItem() prescription.LineItem {
	return prescription.LineItem{
		Position:       m.Position,
		MedicineID:     m.MedicineID,
		MedicineName:   m.MedicineName,
		CustomMedicine: m.CustomMedicine,
		Dosage:         m.Dosage,
		DosePeriods:    m.DosePeriods,
		Days:           m.Days,
		DurationChoice: m.DurationChoice,
		CustomDuration: m.CustomDuration,
		Instructions:   m.Instructions,
	}
}

func fromLineItem(li prescription.LineItem) TemplateMedicine {
	return TemplateMedicine{
		Position:       li.Position,
		MedicineID:     li.MedicineID,
		MedicineName:   li.MedicineName,
		CustomMedicine: li.CustomMedicine,
		Dosage:         li.Dosage,
		DosePeriods:    li.DosePeriods,
		Days:           li.Days,
		DurationChoice: li.DurationChoice,
		CustomDuration: li.CustomDuration,
		Instructions:   li.Instructions,
	}
}

// Seed is the JSON the prescription form fetches to pre-fill itself.
type Seed struct {
	ClinicalRecord string         `json:"clinical_record"`
	Instructions   string         `json:"instructions"`
	Medicines      []SeedMedicine `json:"medicines"`
}

type SeedMedicine struct {
	MedicineID     *uuid.UUID               `json:"medicine_id"`
	MedicineName   string                   `json:"medicine_name"`
	CustomMedicine string                   `json:"custom_medicine"`
	Dosage         string                   `json:"dosage"`
	DosePeriods    prescription.DosePeriods `json:"dose_periods"`
	Days           int                      `json:"days"`
	Duration       SeedDuration             `json:"duration"`
	Instructions   string                   `json:"instructions"`
}

type SeedDuration struct {
	Choice string `json:"choice"`
	Custom string `json:"custom"`
}

func (t *Template) seed() *Seed {
	s := &Seed{
		ClinicalRecord: t.ClinicalRecord,
		Instructions:   t.SpecialInstructions,
		Medicines:      make([]SeedMedicine, 0, len(t.Medicines)),
	}
	for _, m := range t.Medicines {
		li := m.lineItem()
		s.Medicines = append(s.Medicines, SeedMedicine{
			MedicineID:     m.MedicineID,
			MedicineName:   li.DisplayName(),
			CustomMedicine: m.CustomMedicine,
			Dosage:         m.Dosage,
			DosePeriods:    m.DosePeriods,
			Days:           m.Days,
			Duration:       SeedDuration{Choice: m.DurationChoice, Custom: m.CustomDuration},
			Instructions:   m.Instructions,
		})
	}
	return s
}
