package prescription

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores prescriptions together with their line items and ordered
// lab tests. Multi-statement writes are expected to run inside a transaction
// carried by ctx.
type Repository interface {
	Create(ctx context.Context, rx *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	Update(ctx context.Context, rx *Prescription) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error)
	ListRecent(ctx context.Context, limit, offset int) ([]*Prescription, int, error)
	CountByPatient(ctx context.Context, patientID uuid.UUID) (int, error)
	Count(ctx context.Context) (int, error)

	ReplaceLineItems(ctx context.Context, rxID uuid.UUID, items []LineItem) error
	ReplaceLabTests(ctx context.Context, rxID uuid.UUID, testIDs []uuid.UUID) error

	// RecentDiagnoses returns distinct clinical records, most recently used first.
	RecentDiagnoses(ctx context.Context, limit int) ([]string, error)
}
