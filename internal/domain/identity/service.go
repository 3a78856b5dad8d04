package identity

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicrx/clinic/internal/platform/apperr"
	"github.com/clinicrx/clinic/internal/platform/auth"
	"github.com/clinicrx/clinic/internal/platform/db"
	"github.com/clinicrx/clinic/internal/platform/telemetry"
)

// insert attempts for a new patient before a collision is reported
const maxInsertAttempts = 5

// ErrInvalidCredentials is returned by Authenticate for unknown users,
// inactive accounts and wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid username or password")

// hashed once per hasher and checked against when the username is unknown
const placeholderPassword = "no-such-account-placeholder"

// PasswordHasher hashes and checks account passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) (bool, error)
}

type Service struct {
	patients PatientRepository
	users    UserRepository
	doctors  DoctorRepository
	ids      *IDGenerator
	logger   zerolog.Logger

	tx      db.TxRunner
	hasher  PasswordHasher
	tokens  *auth.TokenIssuer
	metrics *telemetry.Metrics

	placeholderMu   sync.Mutex
	placeholderHash string
}

func NewService(patients PatientRepository, users UserRepository, doctors DoctorRepository, logger zerolog.Logger) *Service {
	return &Service{
		patients: patients,
		users:    users,
		doctors:  doctors,
		ids:      NewIDGenerator(),
		logger:   logger.With().Str("component", "identity").Logger(),
		hasher:   auth.NewPasswordHasher(),
	}
}

func (s *Service) SetIDGenerator(g *IDGenerator) { s.ids = g }
func (s *Service) SetTxRunner(tx db.TxRunner) { s.tx = tx }

func (s *Service) SetPasswordHasher(h PasswordHasher) {
	s.placeholderMu.Lock()
	defer s.placeholderMu.Unlock()
	s.hasher = h
	s.placeholderHash = ""
}

func (s *Service) SetTokenIssuer(ti *auth.TokenIssuer) { s.tokens = ti }
func (s *Service) SetMetrics(m *telemetry.Metrics) { s.metrics = m }

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.RunInTx(ctx, fn)
}

// -- Patient --

func validatePatient(p *Patient) error {
	normalizePatient(p)
	if p.Name == "" {
		return apperr.Validationf("name is required")
	}
	if len(p.Name) > maxNameLength {
		return apperr.Validationf("name must be at most %d characters", maxNameLength)
	}
	if p.Gender != GenderMale && p.Gender != GenderFemale {
		return apperr.Validationf("gender must be M or F")
	}
	if p.Age != nil && (*p.Age < 0 || *p.Age > maxAge) {
		return apperr.Validationf("age must be between 0 and %d", maxAge)
	}
	if p.Weight != nil && (*p.Weight < 0 || *p.Weight >= 1000) {
		return apperr.Validationf("weight must be between 0 and 999.99")
	}
	if len(p.Phone) > maxPhoneLength {
		return apperr.Validationf("phone must be at most %d characters", maxPhoneLength)
	}
	return nil
}

// CreatePatient registers a patient and assigns its external id. Unless
// confirmNew is set, likely duplicates abort the creation with a
// *DuplicateWarning listing them.
func (s *Service) CreatePatient(ctx context.Context, p *Patient, confirmNew bool) error {
	if err := validatePatient(p); err != nil {
		return err
	}

	if !confirmNew {
		matches, err := s.FindDuplicates(ctx, p.Name, p.Phone)
		if err != nil {
			return err
		}
		if len(matches) > 0 {
			s.metrics.DuplicateWarning()
			s.logger.Info().Int("matches", len(matches)).Msg("possible duplicate patient")
			return &DuplicateWarning{Matches: matches}
		}
	}

	for attempt := 1; ; attempt++ {
		externalID, collisions, err := s.ids.Generate(ctx, s.patients.ExternalIDExists)
		s.recordCollisions(collisions)
		if err != nil {
			return err
		}

		p.ExternalID = externalID
		err = s.patients.Create(ctx, p)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrExternalIDTaken) {
			return err
		}
		s.recordCollisions(1)
		if attempt >= maxInsertAttempts {
			return apperr.Conflictf("could not assign a unique patient id, try again")
		}
		s.logger.Warn().Str("external_id", externalID).Int("attempt", attempt).Msg("patient id taken on insert, regenerating")
	}

	s.metrics.PatientCreated()
	s.logger.Info().Str("patient_id", p.ID.String()).Str("external_id", p.ExternalID).Msg("patient registered")
	return nil
}

func (s *Service) recordCollisions(n int) {
	for i := 0; i < n; i++ {
		s.metrics.PatientIDCollision()
	}
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetPatientByExternalID(ctx context.Context, externalID string) (*Patient, error) {
	return s.patients.GetByExternalID(ctx, strings.TrimSpace(externalID))
}

// UpdatePatient saves the editable fields. The external id is kept.
func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	return s.patients.Update(ctx, p)
}

// DeletePatient removes the patient together with their prescriptions.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, strings.TrimSpace(q), limit, offset)
}

func (s *Service) CountPatients(ctx context.Context) (int, error) {
	return s.patients.Count(ctx)
}

// SearchPatientsLookup backs the public patient search. An empty query gives
// an empty, non-nil list.
func (s *Service) SearchPatientsLookup(ctx context.Context, q string) ([]PatientSummary, error) {
	q = strings.TrimSpace(q)
	out := []PatientSummary{}
	if q == "" {
		return out, nil
	}
	items, err := s.patients.Lookup(ctx, q, maxLookupResults)
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		out = append(out, p.Summary())
	}
	return out, nil
}

// FindDuplicates returns up to five existing patients with the same phone
// number, or whose name equals or contains name ignoring case.
func (s *Service) FindDuplicates(ctx context.Context, name, phone string) ([]*Patient, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" && phone == "" {
		return nil, nil
	}
	return s.patients.FindDuplicates(ctx, name, phone, maxDuplicateMatch)
}

// -- Users & Doctors --

var validRoles = map[string]bool{auth.RoleAdmin: true, auth.RoleDoctor: true, auth.RoleStaff: true}

func (s *Service) newUser(username, password, role string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Validationf("username is required")
	}
	if !validRoles[role] {
		return nil, apperr.Validationf("invalid role: %s", role)
	}
	if len(password) < auth.MinPasswordLength {
		return nil, apperr.Validationf("password must be at least %d characters", auth.MinPasswordLength)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	return &User{Username: username, PasswordHash: hash, Role: role, Active: true}, nil
}

// CreateUser adds an account without a doctor profile.
func (s *Service) CreateUser(ctx context.Context, username, password, role string) (*User, error) {
	u, err := s.newUser(username, password, role)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Str("role", u.Role).Msg("user created")
	return u, nil
}

func validateDoctor(d *Doctor) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return apperr.Validationf("doctor name is required")
	}
	if len(d.Name) > maxNameLength {
		return apperr.Validationf("doctor name must be at most %d characters", maxNameLength)
	}
	return nil
}

// CreateDoctorAccount creates a doctor login and its profile atomically.
func (s *Service) CreateDoctorAccount(ctx context.Context, username, password string, d *Doctor) (*User, error) {
	if err := validateDoctor(d); err != nil {
		return nil, err
	}
	u, err := s.newUser(username, password, auth.RoleDoctor)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		d.UserID = u.ID
		return s.doctors.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("doctor_id", d.ID.String()).Str("username", u.Username).Msg("doctor account created")
	return u, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByUserID(ctx, userID)
}

func (s *Service) UpdateDoctor(ctx context.Context, d *Doctor) error {
	if err := validateDoctor(d); err != nil {
		return err
	}
	return s.doctors.Update(ctx, d)
}

// DeleteDoctor removes the doctor and their account. Their prescriptions
// stay and lose the doctor reference; their templates are removed.
func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		d, err := s.doctors.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return s.users.Delete(ctx, d.UserID)
	})
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

// Authenticate checks the credentials and issues a token scoped to the
// clinic of ctx.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*LoginResult, error) {
	if s.tokens == nil {
		return nil, errors.New("token issuer not configured")
	}
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, apperr.ErrNotFound) {
		// same bcrypt work as a real account, so timing does not tell
		s.verifyPlaceholder(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	ok, err := s.hasher.Verify(u.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok || !u.Active {
		return nil, ErrInvalidCredentials
	}

	res := &LoginResult{UserID: u.ID, Role: u.Role}
	d, err := s.doctors.GetByUserID(ctx, u.ID)
	switch {
	case err == nil:
		res.DoctorID = &d.ID
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	res.Token, res.ExpiresAt, err = s.tokens.Issue(u.ID, db.ClinicFromContext(ctx), u.Role, res.DoctorID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Msg("login")
	return res, nil
}

func (s *Service) verifyPlaceholder(password string) {
	s.placeholderMu.Lock()
	if s.placeholderHash == "" {
		h, err := s.hasher.Hash(placeholderPassword)
		if err != nil {
			s.logger.Warn().Err(err).Msg("placeholder password hash failed")
		}
		s.placeholderHash = h
	}
	hash := s.placeholderHash
	s.placeholderMu.Unlock()
	_, _ = s.hasher.Verify(hash, password)
}
