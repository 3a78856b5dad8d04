// Package dashboard summarises clinic activity for the home screen.
package dashboard

import (
	"context"
	"fmt"

	"github.com/clinicrx/clinic/internal/domain/identity"
	"github.com/clinicrx/clinic/internal/domain/prescription"
)

const recentLimit = 5

type PatientSource interface {
	CountPatients(ctx context.Context) (int, error)
	ListPatients(ctx context.Context, q string, limit, offset int) ([]*identity.Patient, int, error)
}

type PrescriptionSource interface {
	Count(ctx context.Context) (int, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*prescription.Prescription, int, error)
}

type MedicineCounter interface {
	CountActiveMedicines(ctx context.Context) (int, error)
}

type Summary struct {
	TotalPatients       int                          `json:"total_patients"`
	TotalPrescriptions  int                          `json:"total_prescriptions"`
	ActiveMedicines     int                          `json:"active_medicines"`
	RecentPatients      []*identity.Patient          `json:"recent_patients"`
	RecentPrescriptions []*prescription.Prescription `json:"recent_prescriptions"`
}

type Service struct {
	patients      PatientSource
	prescriptions PrescriptionSource
	medicines     MedicineCounter
}

func NewService(patients PatientSource, prescriptions PrescriptionSource, medicines MedicineCounter) *Service {
	return &Service{patients: patients, prescriptions: prescriptions, medicines: medicines}
}

// Summary runs its queries one after another: they share the request's
// clinic connection, which serves one query at a time.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	var (
		out Summary
		err error
	)
	if out.TotalPatients, err = s.patients.CountPatients(ctx); err != nil {
		return nil, fmt.Errorf("count patients: %w", err)
	}
	if out.TotalPrescriptions, err = s.prescriptions.Count(ctx); err != nil {
		return nil, fmt.Errorf("count prescriptions: %w", err)
	}
	if out.ActiveMedicines, err = s.medicines.CountActiveMedicines(ctx); err != nil {
		return nil, fmt.Errorf("count medicines: %w", err)
	}
	if out.RecentPatients, _, err = s.patients.ListPatients(ctx, "", recentLimit, 0); err != nil {
		return nil, fmt.Errorf("recent patients: %w", err)
	}
	if out.RecentPrescriptions, _, err = s.prescriptions.ListRecent(ctx, recentLimit, 0); err != nil {
		return nil, fmt.Errorf("recent prescriptions: %w", err)
	}
	if out.RecentPatients == nil {
		out.RecentPatients = []*identity.Patient{}
	}
	if out.RecentPrescriptions == nil {
		out.RecentPrescriptions = []*prescription.Prescription{}
	}
	return &out, nil
}
