package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicrx/clinic/internal/platform/apperr"
	"github.com/clinicrx/clinic/internal/platform/cache"
	"github.com/clinicrx/clinic/internal/platform/db"
	"github.com/clinicrx/clinic/internal/platform/telemetry"
)

const (
	maxNameLength     = 200
	activeMedicineKey = "medicines:active"
)

type Service struct {
	medicines MedicineRepository
	labTests  LabTestRepository
	logger    zerolog.Logger

	cache    cache.Store
	cacheTTL time.Duration
	tx       db.TxRunner
	metrics  *telemetry.Metrics
}

func NewService(meds MedicineRepository, tests LabTestRepository, logger zerolog.Logger) *Service {
	return &Service{
		medicines: meds,
		labTests:  tests,
		logger:    logger.With().Str("component", "catalog").Logger(),
	}
}

// SetCache enables caching of the active medicine lookup.
func (s *Service) SetCache(store cache.Store, ttl time.Duration) {
	s.cache = store
	s.cacheTTL = ttl
}

func (s *Service) SetMetrics(m *telemetry.Metrics) {
	s.metrics = m
}

// SetTxRunner makes SeedDefaults atomic.
func (s *Service) SetTxRunner(tx db.TxRunner) {
	s.tx = tx
}

// -- Medicine --

func validateMedicine(m *Medicine) error {
	normalizeMedicine(m)
	if m.Name == "" {
		return apperr.Validationf("name is required")
	}
	if len(m.Name) > maxNameLength {
		return apperr.Validationf("name must be at most %d characters", maxNameLength)
	}
	if !validForms[m.Form] {
		return apperr.Validationf("invalid form: %s", m.Form)
	}
	return nil
}

func (s *Service) CreateMedicine(ctx context.Context, m *Medicine) error {
	if err := validateMedicine(m); err != nil {
		return err
	}
	if err := s.medicines.Create(ctx, m); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) GetMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return s.medicines.GetByID(ctx, id)
}

func (s *Service) UpdateMedicine(ctx context.Context, m *Medicine) error {
	if err := validateMedicine(m); err != nil {
		return err
	}
	if err := s.medicines.Update(ctx, m); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// DeleteMedicine removes an unreferenced medicine. Medicines used by a line
// item yield an apperr.ErrReferenced error.
func (s *Service) DeleteMedicine(ctx context.Context, id uuid.UUID) error {
	if err := s.medicines.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) ListMedicines(ctx context.Context, q string, activeOnly bool, limit, offset int) ([]*Medicine, int, error) {
	return s.medicines.List(ctx, q, activeOnly, limit, offset)
}

// ListActiveMedicines returns the lookup list of active medicines ordered by
// name. The result is never nil.
func (s *Service) ListActiveMedicines(ctx context.Context) ([]MedicineSummary, error) {
	key := s.cacheKey(ctx)
	if s.cache != nil {
		var cached []MedicineSummary
		err := cache.GetJSON(ctx, s.cache, key, &cached)
		switch {
		case err == nil:
			s.metrics.CacheLookup("hit")
			if cached == nil {
				cached = []MedicineSummary{}
			}
			return cached, nil
		case errors.Is(err, cache.ErrMiss):
			s.metrics.CacheLookup("miss")
		default:
			s.metrics.CacheLookup("error")
			s.logger.Warn().Err(err).Str("key", key).Msg("medicine cache read failed")
		}
	}

	meds, err := s.medicines.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MedicineSummary, 0, len(meds))
	for _, m := range meds {
		out = append(out, m.Summary())
	}

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, key, out, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("medicine cache write failed")
		}
	}
	return out, nil
}

func (s *Service) CountActiveMedicines(ctx context.Context) (int, error) {
	return s.medicines.CountActive(ctx)
}

// PromoteCustomMedicine resolves a free-text medicine name to a catalog row,
// creating a tablet entry when no medicine of that name exists. It reports
// whether a row was created. Concurrent promotions of the same name converge
// on one row through the catalog's unique index.
func (s *Service) PromoteCustomMedicine(ctx context.Context, name string) (*Medicine, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, apperr.Validationf("custom medicine name is required")
	}
	if len(name) > maxNameLength {
		return nil, false, apperr.Validationf("custom medicine name must be at most %d characters", maxNameLength)
	}

	m, err := s.medicines.GetByNameFold(ctx, name)
	if err == nil {
		s.metrics.MedicinePromoted(false)
		return m, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	m = &Medicine{Name: name, Form: FormTablet, Active: true}
	created, err := s.medicines.CreateIfAbsent(ctx, m)
	if err != nil {
		return nil, false, err
	}
	s.metrics.MedicinePromoted(created)
	if created {
		s.logger.Info().Str("medicine_id", m.ID.String()).Str("name", m.Name).Msg("custom medicine added to catalog")
		s.invalidate(ctx)
	}
	return m, created, nil
}

// -- Lab tests --

func validateLabTest(t *LabTest) error {
	normalizeLabTest(t)
	if t.Name == "" {
		return apperr.Validationf("name is required")
	}
	if len(t.Name) > maxNameLength {
		return apperr.Validationf("name must be at most %d characters", maxNameLength)
	}
	if !validCategories[t.Category] {
		return apperr.Validationf("invalid category: %s", t.Category)
	}
	return nil
}

func (s *Service) CreateLabTest(ctx context.Context, t *LabTest) error {
	if err := validateLabTest(t); err != nil {
		return err
	}
	return s.labTests.Create(ctx, t)
}

func (s *Service) GetLabTest(ctx context.Context, id uuid.UUID) (*LabTest, error) {
	return s.labTests.GetByID(ctx, id)
}

func (s *Service) UpdateLabTest(ctx context.Context, t *LabTest) error {
	if err := validateLabTest(t); err != nil {
		return err
	}
	return s.labTests.Update(ctx, t)
}

func (s *Service) DeleteLabTest(ctx context.Context, id uuid.UUID) error {
	return s.labTests.Delete(ctx, id)
}

func (s *Service) ListLabTests(ctx context.Context, activeOnly bool) ([]*LabTest, error) {
	return s.labTests.List(ctx, activeOnly)
}

// -- cache --

func (s *Service) cacheKey(ctx context.Context) string {
	clinic := db.ClinicFromContext(ctx)
	if clinic == "" {
		clinic = "_"
	}
	return cache.Key(clinic, activeMedicineKey)
}

// invalidate drops the cached lookup once the current transaction, if any,
// has committed.
func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	key := s.cacheKey(ctx)
	db.AfterCommit(ctx, func() {
		if err := s.cache.Delete(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Warn().Err(err).Msg("medicine cache invalidation failed")
		}
	})
}
