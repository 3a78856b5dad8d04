package rxtemplate

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicrx/clinic/internal/domain/prescription"
	"github.com/clinicrx/clinic/internal/platform/apperr"
	"github.com/clinicrx/clinic/internal/platform/auth"
	"github.com/clinicrx/clinic/internal/platform/db"
)

const maxNameLength = 200

type Service struct {
	repo      Repository
	medicines prescription.MedicinePromoter
	logger    zerolog.Logger
	tx        db.TxRunner
}

func NewService(repo Repository, medicines prescription.MedicinePromoter, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		medicines: medicines,
		logger:    logger.With().Str("component", "rxtemplate").Logger(),
	}
}

func (s *Service) SetTxRunner(tx db.TxRunner) { s.tx = tx }

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.RunInTx(ctx, fn)
}

func validate(t *Template) error {
	t.Name = strings.TrimSpace(t.Name)
	t.Description = strings.TrimSpace(t.Description)
	t.ClinicalRecord = strings.TrimSpace(t.ClinicalRecord)
	t.SpecialInstructions = strings.TrimSpace(t.SpecialInstructions)
	if t.Name == "" {
		return apperr.Validationf("name is required")
	}
	if len(t.Name) > maxNameLength {
		return apperr.Validationf("name must be at most %d characters", maxNameLength)
	}
	return nil
}

func (s *Service) saveMedicines(ctx context.Context, t *Template) error {
	items := make([]prescription.LineItem, len(t.Medicines))
	for i, m := range t.Medicines {
		items[i] = m.lineItem()
	}
	prepared, err := prescription.PrepareLineItems(ctx, items, s.medicines)
	if err != nil {
		return err
	}
	meds := make([]TemplateMedicine, len(prepared))
	for i, li := range prepared {
		meds[i] = fromLineItem(li)
	}
	return s.repo.ReplaceMedicines(ctx, t.ID, meds)
}

// Create stores a template and its medicines in one transaction. Templates
// created by a doctor belong to that doctor unless another owner is given.
func (s *Service) Create(ctx context.Context, t *Template) (*Template, error) {
	if err := validate(t); err != nil {
		return nil, err
	}
	if t.DoctorID == nil {
		t.DoctorID = auth.DoctorIDFromContext(ctx)
	}
	var saved *Template
	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, t); err != nil {
			return err
		}
		if err := s.saveMedicines(ctx, t); err != nil {
			return err
		}
		var err error
		saved, err = s.repo.GetByID(ctx, t.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("template_id", saved.ID.String()).Str("name", saved.Name).Msg("template created")
	return saved, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Template, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, t *Template) (*Template, error) {
	if err := validate(t); err != nil {
		return nil, err
	}
	var saved *Template
	err := s.inTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, t.ID)
		if err != nil {
			return err
		}
		if t.DoctorID == nil {
			t.DoctorID = existing.DoctorID
		}
		if err := s.repo.Update(ctx, t); err != nil {
			return err
		}
		if err := s.saveMedicines(ctx, t); err != nil {
			return err
		}
		saved, err = s.repo.GetByID(ctx, t.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]*Template, error) {
	items, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Template{}
	}
	return items, nil
}

// Seed returns the pre-fill data of a template.
func (s *Service) Seed(ctx context.Context, id uuid.UUID) (*Seed, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return t.seed(), nil
}

// DraftSeed lets prescription drafts start from a template.
func (s *Service) DraftSeed(ctx context.Context, id uuid.UUID) (*prescription.DraftSeed, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ds := &prescription.DraftSeed{
		ClinicalRecord:      t.ClinicalRecord,
		SpecialInstructions: t.SpecialInstructions,
		Medicines:           make([]prescription.LineItem, 0, len(t.Medicines)),
	}
	for _, m := range t.Medicines {
		ds.Medicines = append(ds.Medicines, m.lineItem())
	}
	return ds, nil
}
