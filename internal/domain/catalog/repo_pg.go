package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicrx/clinic/internal/platform/apperr"
	"github.com/clinicrx/clinic/internal/platform/db"
)

// =========== Medicine Repository ===========

type medicineRepoPG struct{ pool *pgxpool.Pool }

func NewMedicineRepoPG(pool *pgxpool.Pool) MedicineRepository {
	return &medicineRepoPG{pool: pool}
}

const medicineCols = `id, name, form, strength, default_dosage, active, created_at, updated_at`

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine
	err := row.Scan(&m.ID, &m.Name, &m.Form, &m.Strength, &m.DefaultDosage, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("medicine")
	}
	return &m, err
}

func (r *medicineRepoPG) Create(ctx context.Context, m *Medicine) error {
	m.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO medicine (id, name, form, strength, default_dosage, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		m.ID, m.Name, m.Form, m.Strength, m.DefaultDosage, m.Active).Scan(&m.CreatedAt, &m.UpdatedAt)
	if db.IsUniqueViolation(err, "medicine_name_form_strength_key") {
		return apperr.Conflictf("medicine %q already exists", m.DisplayName())
	}
	return err
}

func (r *medicineRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return scanMedicine(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+medicineCols+` FROM medicine WHERE id = $1`, id))
}

func (r *medicineRepoPG) GetByNameFold(ctx context.Context, name string) (*Medicine, error) {
	return scanMedicine(db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+medicineCols+` FROM medicine
		WHERE lower(name) = lower($1)
		ORDER BY active DESC, created_at
		LIMIT 1`, name))
}

func (r *medicineRepoPG) CreateIfAbsent(ctx context.Context, m *Medicine) (bool, error) {
	id := uuid.New()
	conn := db.Conn(ctx, r.pool)
	err := conn.QueryRow(ctx, `
		INSERT INTO medicine (id, name, form, strength, default_dosage, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (lower(name), form, strength) DO NOTHING
		RETURNING `+medicineCols,
		id, m.Name, m.Form, m.Strength, m.DefaultDosage, m.Active).
		Scan(&m.ID, &m.Name, &m.Form, &m.Strength, &m.DefaultDosage, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	if err == nil {
		return true, nil
	}
	if !db.IsNoRows(err) {
		return false, err
	}

	// lost the race, or the row was already there
	existing, err := scanMedicine(conn.QueryRow(ctx, `
		SELECT `+medicineCols+` FROM medicine
		WHERE lower(name) = lower($1) AND form = $2 AND strength = $3`,
		m.Name, m.Form, m.Strength))
	if err != nil {
		return false, err
	}
	*m = *existing
	return false, nil
}

func (r *medicineRepoPG) Update(ctx context.Context, m *Medicine) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE medicine SET name = $2, form = $3, strength = $4, default_dosage = $5,
			active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		m.ID, m.Name, m.Form, m.Strength, m.DefaultDosage, m.Active).Scan(&m.CreatedAt, &m.UpdatedAt)
	switch {
	case db.IsNoRows(err):
		return apperr.NotFound("medicine")
	case db.IsUniqueViolation(err, "medicine_name_form_strength_key"):
		return apperr.Conflictf("medicine %q already exists", m.DisplayName())
	}
	return err
}

func (r *medicineRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM medicine WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return apperr.Referencedf("medicine is used by prescriptions or templates; deactivate it instead")
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("medicine")
	}
	return nil
}

func (r *medicineRepoPG) List(ctx context.Context, q string, activeOnly bool, limit, offset int) ([]*Medicine, int, error) {
	qb := db.NewSearchQuery("medicine", medicineCols)
	qb.AddContains(q, "name", "form")
	if activeOnly {
		qb.AddEq("active", true)
	}
	qb.OrderBy("name, form, strength")

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

	var items []*Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *medicineRepoPG) ListActive(ctx context.Context) ([]*Medicine, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+medicineCols+` FROM medicine WHERE active ORDER BY name, form, strength`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *medicineRepoPG) CountActive(ctx context.Context) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM medicine WHERE active`).Scan(&n)
	return n, err
}

// =========== Lab Test Repository ===========

type labTestRepoPG struct{ pool *pgxpool.Pool }

func NewLabTestRepoPG(pool *pgxpool.Pool) LabTestRepository {
	return &labTestRepoPG{pool: pool}
}

const labTestCols = `id, name, abbreviation, category, active, created_at, updated_at`

func scanLabTest(row pgx.Row) (*LabTest, error) {
	var t LabTest
	err := row.Scan(&t.ID, &t.Name, &t.Abbreviation, &t.Category, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("lab test")
	}
	return &t, err
}

func (r *labTestRepoPG) Create(ctx context.Context, t *LabTest) error {
	t.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO lab_test (id, name, abbreviation, category, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		t.ID, t.Name, t.Abbreviation, t.Category, t.Active).Scan(&t.CreatedAt, &t.UpdatedAt)
	if db.IsUniqueViolation(err, "lab_test_name_key") {
		return apperr.Conflictf("lab test %q already exists", t.Name)
	}
	return err
}

func (r *labTestRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*LabTest, error) {
	return scanLabTest(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+labTestCols+` FROM lab_test WHERE id = $1`, id))
}

func (r *labTestRepoPG) CreateIfAbsent(ctx context.Context, t *LabTest) (bool, error) {
	conn := db.Conn(ctx, r.pool)
	err := conn.QueryRow(ctx, `
		INSERT INTO lab_test (id, name, abbreviation, category, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lower(name)) DO NOTHING
		RETURNING `+labTestCols,
		uuid.New(), t.Name, t.Abbreviation, t.Category, t.Active).
		Scan(&t.ID, &t.Name, &t.Abbreviation, &t.Category, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err == nil {
		return true, nil
	}
	if !db.IsNoRows(err) {
		return false, err
	}
	existing, err := scanLabTest(conn.QueryRow(ctx,
		`SELECT `+labTestCols+` FROM lab_test WHERE lower(name) = lower($1)`, t.Name))
	if err != nil {
		return false, err
	}
	*t = *existing
	return false, nil
}

func (r *labTestRepoPG) Update(ctx context.Context, t *LabTest) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE lab_test SET name = $2, abbreviation = $3, category = $4, active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		t.ID, t.Name, t.Abbreviation, t.Category, t.Active).Scan(&t.CreatedAt, &t.UpdatedAt)
	switch {
	case db.IsNoRows(err):
		return apperr.NotFound("lab test")
	case db.IsUniqueViolation(err, "lab_test_name_key"):
		return apperr.Conflictf("lab test %q already exists", t.Name)
	}
	return err
}

func (r *labTestRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM lab_test WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("lab test")
	}
	return nil
}

func (r *labTestRepoPG) List(ctx context.Context, activeOnly bool) ([]*LabTest, error) {
	query := `SELECT ` + labTestCols + ` FROM lab_test`
	if activeOnly {
		query += ` WHERE active`
	}
	// category order follows the declaration order, not the alphabet
	query += ` ORDER BY array_position(ARRAY['Blood','Imaging','Pulmonary','Other']::varchar[], category), name`

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*LabTest
	for rows.Next() {
		t, err := scanLabTest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}
