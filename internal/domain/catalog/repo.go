package catalog

import (
	"context"

	"github.com/google/uuid"
)

type MedicineRepository interface {
	Create(ctx context.Context, m *Medicine) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error)
	// GetByNameFold finds a medicine whose name equals name ignoring case,
	// preferring active and older rows.
	GetByNameFold(ctx context.Context, name string) (*Medicine, error)
	// CreateIfAbsent inserts m unless a row with the same name, form and
	// strength exists. On return m holds the stored row.
	CreateIfAbsent(ctx context.Context, m *Medicine) (bool, error)
	Update(ctx context.Context, m *Medicine) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, q string, activeOnly bool, limit, offset int) ([]*Medicine, int, error)
	ListActive(ctx context.Context) ([]*Medicine, error)
	CountActive(ctx context.Context) (int, error)
}

type LabTestRepository interface {
	Create(ctx context.Context, t *LabTest) error
	GetByID(ctx context.Context, id uuid.UUID) (*LabTest, error)
	CreateIfAbsent(ctx context.Context, t *LabTest) (bool, error)
	Update(ctx context.Context, t *LabTest) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool) ([]*LabTest, error)
}
