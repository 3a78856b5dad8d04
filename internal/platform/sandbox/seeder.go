// Package sandbox generates reproducible demo patients and prescriptions for
// developer on-boarding and UI demos.
package sandbox

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicrx/clinic/internal/domain/catalog"
	"github.com/clinicrx/clinic/internal/domain/identity"
	"github.com/clinicrx/clinic/internal/domain/prescription"
)

// SeedConfig controls the volume of generated demo data.
type SeedConfig struct {
	PatientCount      int   `json:"patient_count"`
	VisitsPerPatient  int   `json:"visits_per_patient"`
	MedicinesPerVisit int   `json:"medicines_per_visit"`
	Seed              int64 `json:"seed"`
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{PatientCount: 20, VisitsPerPatient: 2, MedicinesPerVisit: 3}
}

// SeedResult summarizes a seed run.
type SeedResult struct {
	Patients      int           `json:"patients"`
	Prescriptions int           `json:"prescriptions"`
	Duration      time.Duration `json:"duration"`
}

var (
	firstNamesMale   = []string{"Imran", "Bilal", "Usman", "Hamza", "Faisal", "Tariq", "Kamran", "Adnan", "Zubair", "Asif"}
	firstNamesFemale = []string{"Ayesha", "Sana", "Hina", "Nadia", "Fatima", "Rabia", "Saima", "Mehwish", "Amna", "Zainab"}
	lastNames        = []string{"Khan", "Ahmed", "Ali", "Malik", "Shah", "Butt", "Chaudhry", "Qureshi", "Raza", "Siddiqui"}
	areas            = []string{"Gulberg", "Model Town", "Johar Town", "DHA Phase 5", "Township", "Samanabad", "Cantt", "Iqbal Town"}
	cities           = []string{"Lahore", "Kasur", "Sheikhupura"}
	diagnoses        = []string{
		"Bronchial Asthma", "COPD", "Acute Bronchitis", "Community Acquired Pneumonia",
		"Allergic Rhinitis", "Upper Respiratory Tract Infection", "Pulmonary TB on ATT",
	}
	dosages      = []string{"1 tab", "2 puffs", "5 ml", "1 cap", "10 ml"}
	instructions = []string{"khaane ke baad", "khaane se pehle", "neend se pehle", "zaroorat ke waqt", ""}
	durations    = []string{prescription.DurationWeek, prescription.Duration2Weeks, prescription.DurationMonth, prescription.DurationNone}
	followUps    = []string{"After 1 week", "After 2 weeks", "After 1 month", ""}
)

// DataGenerator produces deterministic demo records.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator returns a generator seeded for reproducibility. If seed is
// 0 a time-based seed is chosen.
func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) chance(percent int) bool {
	return g.rng.Intn(100) < percent
}

// randomPhone returns a local mobile number, e.g. "0300-1234567".
func (g *DataGenerator) randomPhone() string {
	return fmt.Sprintf("03%02d-%07d", g.rng.Intn(50), g.rng.Intn(10000000))
}

// GeneratePatient returns an unsaved patient.
func (g *DataGenerator) GeneratePatient() *identity.Patient {
	var first, gender string
	if g.rng.Intn(2) == 0 {
		first, gender = g.pick(firstNamesMale), identity.GenderMale
	} else {
		first, gender = g.pick(firstNamesFemale), identity.GenderFemale
	}
	age := 5 + g.rng.Intn(80)
	weight := float64(15+g.rng.Intn(85)) + float64(g.rng.Intn(10))/10
	return &identity.Patient{
		Name:    first + " " + g.pick(lastNames),
		Gender:  gender,
		Age:     &age,
		Weight:  &weight,
		Phone:   g.randomPhone(),
		Address: fmt.Sprintf("House %d, %s, %s", 1+g.rng.Intn(400), g.pick(areas), g.pick(cities)),
	}
}

func (g *DataGenerator) vitals() prescription.Vitals {
	v := prescription.Vitals{
		Pulse: fmt.Sprintf("%d", 60+g.rng.Intn(50)),
		SpO2:  fmt.Sprintf("%d%%", 88+g.rng.Intn(12)),
	}
	if g.chance(70) {
		v.BloodPressure = fmt.Sprintf("%d/%d", 100+g.rng.Intn(60), 60+g.rng.Intn(30))
	}
	if g.chance(30) {
		v.Temperature = fmt.Sprintf("%.1f F", 97.0+float64(g.rng.Intn(40))/10)
	}
	if g.chance(20) {
		v.RespiratoryRate = fmt.Sprintf("%d", 14+g.rng.Intn(14))
	}
	return v
}

// GeneratePrescription returns an unsaved prescription for the patient whose
// line items draw on the given catalog medicines.
func (g *DataGenerator) GeneratePrescription(patientID uuid.UUID, medicines []catalog.MedicineSummary, count int) *prescription.Prescription {
	rx := &prescription.Prescription{
		PatientID:      patientID,
		ClinicalRecord: g.pick(diagnoses),
		History: prescription.History{
			DM:      g.chance(20),
			HTN:     g.chance(25),
			Smoking: g.chance(30),
			TB:      g.chance(5),
		},
		Vitals: g.vitals(),
		Instructions: prescription.Instructions{
			NoSmoking:   g.chance(40),
			WarmLiquids: g.chance(50),
			Gargles:     g.chance(30),
			FollowUp:    g.pick(followUps),
		},
	}
	if len(medicines) == 0 {
		return rx
	}
	if count > len(medicines) {
		count = len(medicines)
	}
	for _, i := range g.rng.Perm(len(medicines))[:count] {
		id := medicines[i].ID
		item := prescription.LineItem{
			MedicineID: &id,
			Dosage:     g.pick(dosages),
			DosePeriods: prescription.DosePeriods{
				Morning: g.rng.Intn(2) + 1,
				Night:   g.rng.Intn(2),
			},
			DurationChoice: g.pick(durations),
			Instructions:   g.pick(instructions),
		}
		if item.DurationChoice == prescription.DurationNone {
			item.Days = 3 + g.rng.Intn(12)
		}
		rx.Medicines = append(rx.Medicines, item)
	}
	return rx
}

// PatientCreator stores a new patient.
type PatientCreator interface {
	CreatePatient(ctx context.Context, p *identity.Patient, confirmNew bool) error
}

// PrescriptionCreator stores a new prescription.
type PrescriptionCreator interface {
	Create(ctx context.Context, rx *prescription.Prescription) (*prescription.Prescription, error)
}

// MedicineLister lists the active catalog medicines.
type MedicineLister interface {
	ListActiveMedicines(ctx context.Context) ([]catalog.MedicineSummary, error)
}

// Seeder writes generated records through the domain services, so demo data
// passes the same validation and external id assignment as real data.
type Seeder struct {
	config        SeedConfig
	generator     *DataGenerator
	patients      PatientCreator
	prescriptions PrescriptionCreator
	medicines     MedicineLister
	logger        zerolog.Logger
}

func NewSeeder(config SeedConfig, patients PatientCreator, prescriptions PrescriptionCreator, medicines MedicineLister, logger zerolog.Logger) *Seeder {
	return &Seeder{
		config:        config,
		generator:     NewDataGenerator(config.Seed),
		patients:      patients,
		prescriptions: prescriptions,
		medicines:     medicines,
		logger:        logger.With().Str("component", "sandbox").Logger(),
	}
}

// Run creates the configured number of patients, each with its visits. The
// prescriptions are issued on consecutive days ending today.
func (s *Seeder) Run(ctx context.Context) (*SeedResult, error) {
	start := time.Now()
	meds, err := s.medicines.ListActiveMedicines(ctx)
	if err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}

	res := &SeedResult{}
	for i := 0; i < s.config.PatientCount; i++ {
		p := s.generator.GeneratePatient()
		if err := s.patients.CreatePatient(ctx, p, true); err != nil {
			return res, fmt.Errorf("create patient %d: %w", i+1, err)
		}
		res.Patients++

		for v := 0; v < s.config.VisitsPerPatient; v++ {
			rx := s.generator.GeneratePrescription(p.ID, meds, s.config.MedicinesPerVisit)
			rx.IssuedAt = start.AddDate(0, 0, v-s.config.VisitsPerPatient+1)
			if _, err := s.prescriptions.Create(ctx, rx); err != nil {
				return res, fmt.Errorf("create prescription for %s: %w", p.ExternalID, err)
			}
			res.Prescriptions++
		}
	}
	res.Duration = time.Since(start)
	s.logger.Info().Int("patients", res.Patients).Int("prescriptions", res.Prescriptions).
		Dur("duration", res.Duration).Msg("demo data seeded")
	return res, nil
}
