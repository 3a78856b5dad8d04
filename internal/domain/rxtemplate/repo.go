package rxtemplate

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, t *Template) error
	GetByID(ctx context.Context, id uuid.UUID) (*Template, error)
	Update(ctx context.Context, t *Template) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns templates ordered by name, without their medicines.
	List(ctx context.Context, activeOnly bool) ([]*Template, error)
	ReplaceMedicines(ctx context.Context, templateID uuid.UUID, items []TemplateMedicine) error
}
