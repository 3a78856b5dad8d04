package identity

import (
	"context"

	"github.com/google/uuid"
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByExternalID(ctx context.Context, externalID string) (*Patient, error)
	ExternalIDExists(ctx context.Context, externalID string) (bool, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns patients newest first; q matches external id, name or
	// phone as a case-insensitive substring.
	List(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error)
	// Lookup matches q against external id and name.
	Lookup(ctx context.Context, q string, limit int) ([]*Patient, error)
	// FindDuplicates matches exact phone, or name equal to or containing name
	// ignoring case. Empty arguments are ignored.
	FindDuplicates(ctx context.Context, name, phone string, limit int) ([]*Patient, error)
	Count(ctx context.Context) (int, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
}
