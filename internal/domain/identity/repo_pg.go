package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicrx/clinic/internal/platform/apperr"
	"github.com/clinicrx/clinic/internal/platform/db"
)

// ErrExternalIDTaken is returned by PatientRepository.Create when the
// generated external id collided with an existing patient.
var ErrExternalIDTaken = errors.New("patient external id already taken")

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `id, external_id, name, gender, age, weight::float8, phone, address, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.ExternalID, &p.Name, &p.Gender, &p.Age, &p.Weight,
		&p.Phone, &p.Address, &p.CreatedAt, &p.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("patient")
	}
	return &p, err
}

func collectPatients(rows pgx.Rows) ([]*Patient, error) {
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patient (id, external_id, name, gender, age, weight, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		p.ID, p.ExternalID, p.Name, p.Gender, p.Age, p.Weight, p.Phone, p.Address).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if db.IsUniqueViolation(err, "patient_external_id_key") {
		return ErrExternalIDTaken
	}
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByExternalID(ctx context.Context, externalID string) (*Patient, error) {
	return scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE external_id = $1`, strings.ToUpper(externalID)))
}

func (r *patientRepoPG) ExternalIDExists(ctx context.Context, externalID string) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM patient WHERE external_id = $1)`, externalID).Scan(&exists)
	return exists, err
}

// Update never touches external_id.
func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE patient SET name = $2, gender = $3, age = $4, weight = $5, phone = $6,
			address = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING external_id, created_at, updated_at`,
		p.ID, p.Name, p.Gender, p.Age, p.Weight, p.Phone, p.Address).
		Scan(&p.ExternalID, &p.CreatedAt, &p.UpdatedAt)
	if db.IsNoRows(err) {
		return apperr.NotFound("patient")
	}
	return err
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("patient")
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error) {
	qb := db.NewSearchQuery("patient", patientCols)
	qb.AddContains(q, "external_id", "name", "phone")
	qb.OrderBy("created_at DESC")

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, qb.DataSQL(), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectPatients(rows)
	return items, total, err
}

func (r *patientRepoPG) Lookup(ctx context.Context, q string, limit int) ([]*Patient, error) {
	qb := db.NewSearchQuery("patient", patientCols)
	qb.AddContains(q, "external_id", "name")
	qb.OrderBy("created_at DESC")

	rows, err := db.Conn(ctx, r.pool).Query(ctx, qb.DataSQL(), qb.DataArgs(limit, 0)...)
	if err != nil {
		return nil, err
	}
	return collectPatients(rows)
}

func (r *patientRepoPG) FindDuplicates(ctx context.Context, name, phone string, limit int) ([]*Patient, error) {
	var (
		clauses []string
		args    []interface{}
	)
	if name != "" {
		args = append(args, name, db.ContainsPattern(name))
		clauses = append(clauses, fmt.Sprintf("lower(name) = lower($%d) OR name ILIKE $%d", len(args)-1, len(args)))
	}
	if phone != "" {
		args = append(args, phone)
		clauses = append(clauses, fmt.Sprintf("phone = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return nil, nil
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT %s FROM patient WHERE %s ORDER BY created_at DESC LIMIT $%d`,
		patientCols, strings.Join(clauses, " OR "), len(args))

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectPatients(rows)
}

func (r *patientRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&n)
	return n, err
}

// =========== User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

const userCols = `id, username, password_hash, role, active, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("user")
	}
	return &u, err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO app_user (id, username, password_hash, role, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		u.ID, u.Username, u.PasswordHash, u.Role, u.Active).Scan(&u.CreatedAt, &u.UpdatedAt)
	if db.IsUniqueViolation(err, "app_user_username_key") {
		return apperr.Conflictf("username %q is taken", u.Username)
	}
	return err
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userCols+` FROM app_user WHERE id = $1`, id))
}

func (r *userRepoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userCols+` FROM app_user WHERE lower(username) = lower($1)`, username))
}

// Delete removes the account; the linked doctor goes with it.
func (r *userRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM app_user WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user")
	}
	return nil
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

const doctorCols = `id, user_id, name, title, credentials, specialization, phone,
	hospital_name, hospital_address, hospital_tagline, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Title, &d.Credentials, &d.Specialization, &d.Phone,
		&d.HospitalName, &d.HospitalAddress, &d.HospitalTagline, &d.CreatedAt, &d.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("doctor")
	}
	return &d, err
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO doctor (id, user_id, name, title, credentials, specialization, phone,
			hospital_name, hospital_address, hospital_tagline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		d.ID, d.UserID, d.Name, d.Title, d.Credentials, d.Specialization, d.Phone,
		d.HospitalName, d.HospitalAddress, d.HospitalTagline).Scan(&d.CreatedAt, &d.UpdatedAt)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
}

func (r *doctorRepoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return scanDoctor(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE user_id = $1`, userID))
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE doctor SET name = $2, title = $3, credentials = $4, specialization = $5, phone = $6,
			hospital_name = $7, hospital_address = $8, hospital_tagline = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING user_id, created_at, updated_at`,
		d.ID, d.Name, d.Title, d.Credentials, d.Specialization, d.Phone,
		d.HospitalName, d.HospitalAddress, d.HospitalTagline).Scan(&d.UserID, &d.CreatedAt, &d.UpdatedAt)
	if db.IsNoRows(err) {
		return apperr.NotFound("doctor")
	}
	return err
}

func (r *doctorRepoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	qb := db.NewSearchQuery("doctor", doctorCols)
	qb.OrderBy("name")

	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, qb.DataSQL(), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}
