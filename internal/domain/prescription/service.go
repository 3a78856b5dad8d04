package prescription

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"

	"github.com/clinicrx/clinic/internal/domain/identity"
	"github.com/clinicrx/clinic/internal/platform/apperr"
	"github.com/clinicrx/clinic/internal/platform/auth"
	"github.com/clinicrx/clinic/internal/platform/db"
	"github.com/clinicrx/clinic/internal/platform/telemetry"
)

const DefaultDiagnosisLimit = 100

// curatedDiagnoses lead the suggestion list, in this order.
var curatedDiagnoses = []string{
	"Bronchial Asthma",
	"Acute Exacerbation of Bronchial Asthma",
	"COPD",
	"Acute Exacerbation of COPD",
	"Community Acquired Pneumonia",
	"Pulmonary Tuberculosis",
	"Upper Respiratory Tract Infection",
	"Lower Respiratory Tract Infection",
	"Acute Bronchitis",
	"Bronchiectasis",
	"Interstitial Lung Disease",
	"Pleural Effusion",
	"Allergic Rhinitis",
	"Obstructive Sleep Apnea",
	"Post Viral Cough",
}

type PatientReader interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
}

type DoctorReader interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*identity.Doctor, error)
}

// TemplateSource provides the content a template pre-fills a draft with.
type TemplateSource interface {
	DraftSeed(ctx context.Context, templateID uuid.UUID) (*DraftSeed, error)
}

type Service struct {
	repo      Repository
	patients  PatientReader
	doctors   DoctorReader
	medicines MedicinePromoter
	logger    zerolog.Logger

	templates      TemplateSource
	tx             db.TxRunner
	metrics        *telemetry.Metrics
	diagnosisLimit int
	now            func() time.Time
}

func NewService(repo Repository, patients PatientReader, doctors DoctorReader, medicines MedicinePromoter, logger zerolog.Logger) *Service {
	return &Service{
		repo:           repo,
		patients:       patients,
		doctors:        doctors,
		medicines:      medicines,
		logger:         logger.With().Str("component", "prescription").Logger(),
		diagnosisLimit: DefaultDiagnosisLimit,
		now:            time.Now,
	}
}

func (s *Service) SetTemplateSource(t TemplateSource) { s.templates = t }
func (s *Service) SetTxRunner(tx db.TxRunner) { s.tx = tx }
func (s *Service) SetMetrics(m *telemetry.Metrics) { s.metrics = m }

// SetDiagnosisLimit caps DiagnosisSuggestions when the caller passes no limit.
func (s *Service) SetDiagnosisLimit(n int) {
	if n > 0 {
		s.diagnosisLimit = n
	}
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.RunInTx(ctx, fn)
}

func normalize(rx *Prescription) {
	rx.ClinicalRecord = strings.TrimSpace(rx.ClinicalRecord)
	rx.History.Other = strings.TrimSpace(rx.History.Other)
	v := &rx.Vitals
	for _, f := range []*string{&v.Pulse, &v.SpO2, &v.BloodPressure, &v.Sugar, &v.Temperature,
		&v.RespiratoryRate, &v.Other, &v.ChestNotes} {
		*f = strings.TrimSpace(*f)
	}
	in := &rx.Instructions
	in.Other = strings.TrimSpace(in.Other)
	in.Special = strings.TrimSpace(in.Special)
	in.FollowUp = strings.TrimSpace(in.FollowUp)
	rx.LabTestIDs = uniqueIDs(rx.LabTestIDs)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (s *Service) validate(ctx context.Context, rx *Prescription) error {
	normalize(rx)
	if rx.PatientID == uuid.Nil {
		return apperr.Validationf("patient is required")
	}
	if _, err := s.patients.GetPatient(ctx, rx.PatientID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Validationf("patient %s does not exist", rx.PatientID)
		}
		return err
	}
	if rx.DoctorID != nil {
		if _, err := s.doctors.GetDoctor(ctx, *rx.DoctorID); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.Validationf("doctor %s does not exist", *rx.DoctorID)
			}
			return err
		}
	}
	vitals := []struct {
		value string
		max   int
	}{
		{rx.Vitals.Pulse, 20}, {rx.Vitals.SpO2, 20}, {rx.Vitals.BloodPressure, 30},
		{rx.Vitals.Sugar, 30}, {rx.Vitals.Temperature, 20}, {rx.Vitals.RespiratoryRate, 20},
	}
	for _, v := range vitals {
		if len(v.value) > v.max {
			return apperr.Validationf("vital signs must be at most %d characters", v.max)
		}
	}
	if len(rx.Instructions.FollowUp) > 200 {
		return apperr.Validationf("follow up must be at most 200 characters")
	}
	return nil
}

// saveChildren writes line items and lab tests of rx, promoting custom
// medicines on the way. Must run inside the caller's transaction.
func (s *Service) saveChildren(ctx context.Context, rx *Prescription) error {
	items, err := PrepareLineItems(ctx, rx.Medicines, s.medicines)
	if err != nil {
		return err
	}
	if err := s.repo.ReplaceLineItems(ctx, rx.ID, items); err != nil {
		return err
	}
	return s.repo.ReplaceLabTests(ctx, rx.ID, rx.LabTestIDs)
}

// Create stores a new prescription. The first-visit flag is derived from the
// patient's history and the doctor defaults to the signed-in doctor.
func (s *Service) Create(ctx context.Context, rx *Prescription) (*Prescription, error) {
	if rx.DoctorID == nil {
		rx.DoctorID = auth.DoctorIDFromContext(ctx)
	}
	if err := s.validate(ctx, rx); err != nil {
		return nil, err
	}
	if rx.IssuedAt.IsZero() {
		rx.IssuedAt = s.now()
	}

	var saved *Prescription
	err := s.inTx(ctx, func(ctx context.Context) error {
		prior, err := s.repo.CountByPatient(ctx, rx.PatientID)
		if err != nil {
			return err
		}
		rx.IsFirstVisit = prior == 0
		if err := s.repo.Create(ctx, rx); err != nil {
			return err
		}
		if err := s.saveChildren(ctx, rx); err != nil {
			return err
		}
		saved, err = s.repo.GetByID(ctx, rx.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.PrescriptionSaved("create")
	s.logger.Info().Str("prescription_id", saved.ID.String()).Str("patient_id", saved.PatientID.String()).
		Bool("first_visit", saved.IsFirstVisit).Msg("prescription created")
	return saved, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.repo.GetByID(ctx, id)
}

// Update replaces the content of a prescription, including all line items
// and lab tests. The patient and first-visit flag never change.
func (s *Service) Update(ctx context.Context, rx *Prescription) (*Prescription, error) {
	var saved *Prescription
	err := s.inTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, rx.ID)
		if err != nil {
			return err
		}
		rx.PatientID = existing.PatientID
		rx.IsFirstVisit = existing.IsFirstVisit
		if rx.DoctorID == nil {
			rx.DoctorID = existing.DoctorID
		}
		if rx.IssuedAt.IsZero() {
			rx.IssuedAt = existing.IssuedAt
		}
		if err := s.validate(ctx, rx); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, rx); err != nil {
			return err
		}
		if err := s.saveChildren(ctx, rx); err != nil {
			return err
		}
		saved, err = s.repo.GetByID(ctx, rx.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.PrescriptionSaved("update")
	return saved, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	if _, err := s.patients.GetPatient(ctx, patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListRecent(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.ListRecent(ctx, limit, offset)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Duplicate copies a prescription for the same patient and doctor, dated now
// and never marked as a first visit. Line items and lab tests are copied in
// the same transaction, so a failure leaves nothing behind.
func (s *Service) Duplicate(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	var saved *Prescription
	err := s.inTx(ctx, func(ctx context.Context) error {
		src, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		dup := *src
		dup.ID = uuid.Nil
		dup.IssuedAt = s.now()
		dup.IsFirstVisit = false
		dup.LabTestIDs = append([]uuid.UUID(nil), src.LabTestIDs...)
		dup.Medicines = make([]LineItem, len(src.Medicines))
		copy(dup.Medicines, src.Medicines)

		if err := s.repo.Create(ctx, &dup); err != nil {
			return err
		}
		for i := range dup.Medicines {
			dup.Medicines[i].ID = uuid.Nil
			dup.Medicines[i].PrescriptionID = dup.ID
		}
		if err := s.repo.ReplaceLineItems(ctx, dup.ID, dup.Medicines); err != nil {
			return err
		}
		if err := s.repo.ReplaceLabTests(ctx, dup.ID, dup.LabTestIDs); err != nil {
			return err
		}
		saved, err = s.repo.GetByID(ctx, dup.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.PrescriptionSaved("duplicate")
	s.logger.Info().Str("source_id", id.String()).Str("prescription_id", saved.ID.String()).Msg("prescription duplicated")
	return saved, nil
}

// NewDraft returns an unsaved prescription for the patient, optionally
// pre-filled from a template.
func (s *Service) NewDraft(ctx context.Context, patientID uuid.UUID, templateID *uuid.UUID) (*Prescription, error) {
	if _, err := s.patients.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}
	prior, err := s.repo.CountByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	draft := &Prescription{
		PatientID:    patientID,
		DoctorID:     auth.DoctorIDFromContext(ctx),
		IssuedAt:     s.now(),
		IsFirstVisit: prior == 0,
		LabTestIDs:   []uuid.UUID{},
		Medicines:    []LineItem{},
	}
	if templateID == nil {
		return draft, nil
	}
	if s.templates == nil {
		return nil, apperr.Validationf("templates are not available")
	}
	seed, err := s.templates.DraftSeed(ctx, *templateID)
	if err != nil {
		return nil, err
	}
	draft.ClinicalRecord = seed.ClinicalRecord
	draft.Instructions.Special = seed.SpecialInstructions
	draft.Medicines = append(draft.Medicines, seed.Medicines...)
	return draft, nil
}

// DiagnosisSuggestions lists the curated diagnoses followed by the most
// recently used ones, without case-insensitive repeats.
func (s *Service) DiagnosisSuggestions(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 || limit > s.diagnosisLimit {
		limit = s.diagnosisLimit
	}
	recent, err := s.repo.RecentDiagnoses(ctx, limit)
	if err != nil {
		return nil, err
	}

	fold := cases.Fold()
	seen := make(map[string]bool, limit)
	out := make([]string, 0, limit)
	for _, group := range [][]string{curatedDiagnoses, recent} {
		for _, d := range group {
			if len(out) == limit {
				return out, nil
			}
			d = strings.TrimSpace(d)
			key := fold.String(d)
			if d == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, d)
		}
	}
	return out, nil
}
