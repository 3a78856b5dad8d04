package rxtemplate

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicrx/clinic/internal/domain/catalog"
	"github.com/clinicrx/clinic/internal/platform/apperr"
	"github.com/clinicrx/clinic/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const templateCols = `id, name, description, doctor_id, clinical_record, special_instructions, active, created_at, updated_at`

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.DoctorID, &t.ClinicalRecord, &t.SpecialInstructions,
		&t.Active, &t.CreatedAt, &t.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("template")
	}
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *Template) error {
	t.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO prescription_template (id, name, description, doctor_id, clinical_record, special_instructions, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		t.ID, t.Name, t.Description, t.DoctorID, t.ClinicalRecord, t.SpecialInstructions, t.Active).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if db.IsForeignKeyViolation(err) {
		return apperr.Validationf("unknown doctor")
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Template, error) {
	conn := db.Conn(ctx, r.pool)
	t, err := scanTemplate(conn.QueryRow(ctx, `SELECT `+templateCols+` FROM prescription_template WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	rows, err := conn.Query(ctx, `
		SELECT tm.id, tm.template_id, tm.position, tm.medicine_id, m.name, m.form, m.strength,
			tm.custom_medicine, tm.dosage, tm.morning, tm.afternoon, tm.evening, tm.night,
			tm.days, tm.duration_choice, tm.custom_duration, tm.instructions
		FROM template_medicine tm
		LEFT JOIN medicine m ON m.id = tm.medicine_id
		WHERE tm.template_id = $1
		ORDER BY tm.position, tm.id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	t.Medicines = []TemplateMedicine{}
	for rows.Next() {
		var tm TemplateMedicine
		var name, form, strength *string
		if err := rows.Scan(&tm.ID, &tm.TemplateID, &tm.Position, &tm.MedicineID, &name, &form, &strength,
			&tm.CustomMedicine, &tm.Dosage, &tm.DosePeriods.Morning, &tm.DosePeriods.Afternoon,
			&tm.DosePeriods.Evening, &tm.DosePeriods.Night, &tm.Days, &tm.DurationChoice,
			&tm.CustomDuration, &tm.Instructions); err != nil {
			return nil, err
		}
		if name != nil {
			m := catalog.Medicine{Name: *name, Form: deref(form), Strength: deref(strength)}
			tm.MedicineName = m.DisplayName()
		}
		t.Medicines = append(t.Medicines, tm)
	}
	return t, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *repoPG) Update(ctx context.Context, t *Template) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE prescription_template SET name = $2, description = $3, doctor_id = $4, clinical_record = $5,
			special_instructions = $6, active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		t.ID, t.Name, t.Description, t.DoctorID, t.ClinicalRecord, t.SpecialInstructions, t.Active).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	switch {
	case db.IsNoRows(err):
		return apperr.NotFound("template")
	case db.IsForeignKeyViolation(err):
		return apperr.Validationf("unknown doctor")
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM prescription_template WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("template")
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, activeOnly bool) ([]*Template, error) {
	query := `SELECT ` + templateCols + ` FROM prescription_template`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY name`

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *repoPG) ReplaceMedicines(ctx context.Context, templateID uuid.UUID, items []TemplateMedicine) error {
	conn := db.Conn(ctx, r.pool)
	if _, err := conn.Exec(ctx, `DELETE FROM template_medicine WHERE template_id = $1`, templateID); err != nil {
		return err
	}
	for i := range items {
		tm := &items[i]
		tm.ID = uuid.New()
		tm.TemplateID = templateID
		dp := tm.DosePeriods
		_, err := conn.Exec(ctx, `
			INSERT INTO template_medicine (id, template_id, position, medicine_id, custom_medicine, dosage,
				morning, afternoon, evening, night, days, duration_choice, custom_duration, instructions)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			tm.ID, templateID, tm.Position, tm.MedicineID, tm.CustomMedicine, tm.Dosage,
			dp.Morning, dp.Afternoon, dp.Evening, dp.Night, tm.Days, tm.DurationChoice, tm.CustomDuration, tm.Instructions)
		if db.IsForeignKeyViolation(err) {
			return apperr.Validationf("line %d: unknown medicine", i+1)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
