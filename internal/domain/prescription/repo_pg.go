package prescription

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

const rxCols = `p.id, p.patient_id, p.doctor_id, p.issued_at, p.clinical_record, p.is_first_visit,
	p.history_dm, p.history_htn, p.history_ihd, p.history_tb, p.history_smoking,
	p.history_hep_b, p.history_hep_c, p.history_obesity, p.history_other,
	p.pulse, p.spo2, p.blood_pressure, p.sugar, p.temperature, p.respiratory_rate,
	p.other_vitals, p.chest_notes,
	p.instruction_avoid_food, p.instruction_no_smoking, p.instruction_gargles,
	p.instruction_warm_liquids, p.counseled_in_detail, p.rescue_rx_given,
	p.other_instructions, p.special_instructions, p.follow_up,
	p.created_at, p.updated_at, pt.name, pt.external_id`

const rxFrom = `prescription p JOIN patient pt ON pt.id = p.patient_id`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var rx Prescription
	h, v, in := &rx.History, &rx.Vitals, &rx.Instructions
	err := row.Scan(&rx.ID, &rx.PatientID, &rx.DoctorID, &rx.IssuedAt, &rx.ClinicalRecord, &rx.IsFirstVisit,
		&h.DM, &h.HTN, &h.IHD, &h.TB, &h.Smoking, &h.HepB, &h.HepC, &h.Obesity, &h.Other,
		&v.Pulse, &v.SpO2, &v.BloodPressure, &v.Sugar, &v.Temperature, &v.RespiratoryRate, &v.Other, &v.ChestNotes,
		&in.AvoidFood, &in.NoSmoking, &in.Gargles, &in.WarmLiquids, &in.CounseledInDetail, &in.RescueRxGiven,
		&in.Other, &in.Special, &in.FollowUp,
		&rx.CreatedAt, &rx.UpdatedAt, &rx.PatientName, &rx.PatientExternalID)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("prescription")
	}
	return &rx, err
}

func headerArgs(rx *Prescription) []interface{} {
	h, v, in := rx.History, rx.Vitals, rx.Instructions
	return []interface{}{
		rx.ID, rx.PatientID, rx.DoctorID, rx.IssuedAt, rx.ClinicalRecord, rx.IsFirstVisit,
		h.DM, h.HTN, h.IHD, h.TB, h.Smoking, h.HepB, h.HepC, h.Obesity, h.Other,
		v.Pulse, v.SpO2, v.BloodPressure, v.Sugar, v.Temperature, v.RespiratoryRate, v.Other, v.ChestNotes,
		in.AvoidFood, in.NoSmoking, in.Gargles, in.WarmLiquids, in.CounseledInDetail, in.RescueRxGiven,
		in.Other, in.Special, in.FollowUp,
	}
}

func (r *repoPG) Create(ctx context.Context, rx *Prescription) error {
	rx.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO prescription (id, patient_id, doctor_id, issued_at, clinical_record, is_first_visit,
			history_dm, history_htn, history_ihd, history_tb, history_smoking,
			history_hep_b, history_hep_c, history_obesity, history_other,
			pulse, spo2, blood_pressure, sugar, temperature, respiratory_rate, other_vitals, chest_notes,
			instruction_avoid_food, instruction_no_smoking, instruction_gargles, instruction_warm_liquids,
			counseled_in_detail, rescue_rx_given, other_instructions, special_instructions, follow_up)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32)
		RETURNING created_at, updated_at`, headerArgs(rx)...).Scan(&rx.CreatedAt, &rx.UpdatedAt)
	if db.IsForeignKeyViolation(err) {
		return apperr.Validationf("unknown patient or doctor")
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	conn := db.Conn(ctx, r.pool)
	rx, err := scanPrescription(conn.QueryRow(ctx, `SELECT `+rxCols+` FROM `+rxFrom+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, err
	}
	if rx.Medicines, err = r.lineItems(ctx, conn, id); err != nil {
		return nil, err
	}
	if rx.LabTests, err = r.labTests(ctx, conn, id); err != nil {
		return nil, err
	}
	rx.LabTestIDs = make([]uuid.UUID, len(rx.LabTests))
	for i, t := range rx.LabTests {
		rx.LabTestIDs[i] = t.ID
	}
	return rx, nil
}

func (r *repoPG) lineItems(ctx context.Context, conn db.Querier, rxID uuid.UUID) ([]LineItem, error) {
	rows, err := conn.Query(ctx, `
		SELECT pm.id, pm.prescription_id, pm.position, pm.medicine_id, m.name, m.form, m.strength,
			pm.custom_medicine, pm.dosage, pm.morning, pm.afternoon, pm.evening, pm.night,
			pm.days, pm.duration_choice, pm.custom_duration, pm.instructions
		FROM prescription_medicine pm
		LEFT JOIN medicine m ON m.id = pm.medicine_id
		WHERE pm.prescription_id = $1
		ORDER BY pm.position, pm.id`, rxID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []LineItem{}
	for rows.Next() {
		var li LineItem
		var name, form, strength *string
		if err := rows.Scan(&li.ID, &li.PrescriptionID, &li.Position, &li.MedicineID, &name, &form, &strength,
			&li.CustomMedicine, &li.Dosage, &li.DosePeriods.Morning, &li.DosePeriods.Afternoon,
			&li.DosePeriods.Evening, &li.DosePeriods.Night, &li.Days, &li.DurationChoice,
			&li.CustomDuration, &li.Instructions); err != nil {
			return nil, err
		}
		li.MedicineName = medicineDisplayName(name, form, strength)
		items = append(items, li)
	}
	return items, rows.Err()
}

// medicineDisplayName formats the joined catalog columns, empty when the
// item has no catalog medicine.
func medicineDisplayName(name, form, strength *string) string {
	if name == nil {
		return ""
	}
	m := catalog.Medicine{Name: *name}
	if form != nil {
		m.Form = *form
	}
	if strength != nil {
		m.Strength = *strength
	}
	return m.DisplayName()
}

func (r *repoPG) labTests(ctx context.Context, conn db.Querier, rxID uuid.UUID) ([]OrderedTest, error) {
	rows, err := conn.Query(ctx, `
		SELECT t.id, t.name, t.abbreviation
		FROM prescription_lab_test pl
		JOIN lab_test t ON t.id = pl.lab_test_id
		WHERE pl.prescription_id = $1
		ORDER BY pl.position`, rxID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tests := []OrderedTest{}
	for rows.Next() {
		var t catalog.LabTest
		if err := rows.Scan(&t.ID, &t.Name, &t.Abbreviation); err != nil {
			return nil, err
		}
		tests = append(tests, OrderedTest{ID: t.ID, Name: t.DisplayName()})
	}
	return tests, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, rx *Prescription) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE prescription SET patient_id = $2, doctor_id = $3, issued_at = $4, clinical_record = $5,
			is_first_visit = $6, history_dm = $7, history_htn = $8, history_ihd = $9, history_tb = $10,
			history_smoking = $11, history_hep_b = $12, history_hep_c = $13, history_obesity = $14,
			history_other = $15, pulse = $16, spo2 = $17, blood_pressure = $18, sugar = $19,
			temperature = $20, respiratory_rate = $21, other_vitals = $22, chest_notes = $23,
			instruction_avoid_food = $24, instruction_no_smoking = $25, instruction_gargles = $26,
			instruction_warm_liquids = $27, counseled_in_detail = $28, rescue_rx_given = $29,
			other_instructions = $30, special_instructions = $31, follow_up = $32, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`, headerArgs(rx)...).Scan(&rx.CreatedAt, &rx.UpdatedAt)
	switch {
	case db.IsNoRows(err):
		return apperr.NotFound("prescription")
	case db.IsForeignKeyViolation(err):
		return apperr.Validationf("unknown patient or doctor")
	}
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM prescription WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("prescription")
	}
	return nil
}

func (r *repoPG) list(ctx context.Context, qb *db.SearchQuery, limit, offset int) ([]*Prescription, int, error) {
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

	var items []*Prescription
	for rows.Next() {
		rx, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rx)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	qb := db.NewSearchQuery(rxFrom, rxCols)
	qb.AddEq("p.patient_id", patientID)
	qb.OrderBy("p.issued_at DESC, p.created_at DESC")
	return r.list(ctx, qb, limit, offset)
}

func (r *repoPG) ListRecent(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	qb := db.NewSearchQuery(rxFrom, rxCols)
	qb.OrderBy("p.created_at DESC")
	return r.list(ctx, qb, limit, offset)
}

func (r *repoPG) CountByPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM prescription WHERE patient_id = $1`, patientID).Scan(&n)
	return n, err
}

func (r *repoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM prescription`).Scan(&n)
	return n, err
}

func (r *repoPG) ReplaceLineItems(ctx context.Context, rxID uuid.UUID, items []LineItem) error {
	conn := db.Conn(ctx, r.pool)
	if _, err := conn.Exec(ctx, `DELETE FROM prescription_medicine WHERE prescription_id = $1`, rxID); err != nil {
		return err
	}
	for i := range items {
		li := &items[i]
		li.ID = uuid.New()
		li.PrescriptionID = rxID
		dp := li.DosePeriods
		_, err := conn.Exec(ctx, `
			INSERT INTO prescription_medicine (id, prescription_id, position, medicine_id, custom_medicine,
				dosage, morning, afternoon, evening, night, days, duration_choice, custom_duration, instructions)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			li.ID, rxID, li.Position, li.MedicineID, li.CustomMedicine, li.Dosage,
			dp.Morning, dp.Afternoon, dp.Evening, dp.Night, li.Days, li.DurationChoice, li.CustomDuration, li.Instructions)
		if db.IsForeignKeyViolation(err) {
			return apperr.Validationf("line %d: unknown medicine", i+1)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) ReplaceLabTests(ctx context.Context, rxID uuid.UUID, testIDs []uuid.UUID) error {
	conn := db.Conn(ctx, r.pool)
	if _, err := conn.Exec(ctx, `DELETE FROM prescription_lab_test WHERE prescription_id = $1`, rxID); err != nil {
		return err
	}
	for i, id := range testIDs {
		_, err := conn.Exec(ctx, `
			INSERT INTO prescription_lab_test (prescription_id, lab_test_id, position)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`, rxID, id, i)
		if db.IsForeignKeyViolation(err) {
			return apperr.Validationf("unknown lab test %s", id)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) RecentDiagnoses(ctx context.Context, limit int) ([]string, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT diagnosis FROM (
			SELECT btrim(clinical_record) AS diagnosis, MAX(created_at) AS last_used
			FROM prescription
			WHERE btrim(clinical_record) <> ''
			GROUP BY btrim(clinical_record)
		) d
		ORDER BY last_used DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
