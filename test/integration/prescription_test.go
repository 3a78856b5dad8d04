//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicrx/clinic/internal/domain/catalog"
	"github.com/clinicrx/clinic/internal/domain/prescription"
	"github.com/clinicrx/clinic/internal/domain/rxtemplate"
	"github.com/clinicrx/clinic/internal/platform/apperr"
	"github.com/clinicrx/clinic/internal/platform/sandbox"
)

func newPrescription(patientID uuid.UUID, items ...prescription.LineItem) *prescription.Prescription {
	return &prescription.Prescription{
		PatientID:      patientID,
		ClinicalRecord: "Bronchial Asthma",
		History:        prescription.History{Smoking: true},
		Vitals:         prescription.Vitals{Pulse: "88", SpO2: "95%"},
		Medicines:      items,
	}
}

func TestPrescription_CreateFirstVisitAndPromotion(t *testing.T) {
	clinic := newClinic(t)
	svc := newServices()

	withClinic(t, clinic, func(ctx context.Context) {
		patient := createPatient(t, ctx, svc, "Imran Ali", "03001234567")
		doctor := createDoctor(t, ctx, svc, "dr_ayesha")
		panadol := createMedicine(t, ctx, svc, "Panadol")
		cbc := &catalog.LabTest{Name: "Complete Blood Count", Abbreviation: "CBC", Category: catalog.CategoryBlood, Active: true}
		require.NoError(t, svc.catalog.CreateLabTest(ctx, cbc))

		ctx = doctorCtx(ctx, doctor)
		rx := newPrescription(patient.ID,
			prescription.LineItem{MedicineID: &panadol.ID, DosePeriods: prescription.DosePeriods{Morning: 1, Night: 1}, Days: 5},
			prescription.LineItem{CustomMedicine: "Zinconia", DosePeriods: prescription.DosePeriods{Morning: 1}, Days: 10},
			prescription.LineItem{CustomMedicine: " zinconia ", DosePeriods: prescription.DosePeriods{Night: 1}},
		)
		rx.LabTestIDs = []uuid.UUID{cbc.ID}

		first, err := svc.prescriptions.Create(ctx, rx)
		require.NoError(t, err)
		assert.True(t, first.IsFirstVisit)
		require.NotNil(t, first.DoctorID)
		assert.Equal(t, doctor.ID, *first.DoctorID)
		require.Len(t, first.Medicines, 3)
		require.Len(t, first.LabTests, 1)

		promoted := first.Medicines[1].MedicineID
		require.NotNil(t, promoted)
		require.NotNil(t, first.Medicines[2].MedicineID)
		assert.Equal(t, *promoted, *first.Medicines[2].MedicineID)
		assert.Empty(t, first.Medicines[1].CustomMedicine)
		assert.Equal(t, 1, first.Medicines[2].Days, "zero days defaults to one")

		_, total, err := svc.catalog.ListMedicines(ctx, "zinconia", false, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, total)

		second, err := svc.prescriptions.Create(ctx, newPrescription(patient.ID,
			prescription.LineItem{CustomMedicine: "ZINCONIA", Days: 3}))
		require.NoError(t, err)
		assert.False(t, second.IsFirstVisit)
		assert.Equal(t, *promoted, *second.Medicines[0].MedicineID)

		_, total, err = svc.catalog.ListMedicines(ctx, "zinconia", false, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})
}

func TestPrescription_Duplicate(t *testing.T) {
	clinic := newClinic(t)
	svc := newServices()

	withClinic(t, clinic, func(ctx context.Context) {
		patient := createPatient(t, ctx, svc, "Sana Malik", "03007654321")
		doctor := createDoctor(t, ctx, svc, "dr_dup")
		med := createMedicine(t, ctx, svc, "Augmentin")
		ctx = doctorCtx(ctx, doctor)

		orig, err := svc.prescriptions.Create(ctx, newPrescription(patient.ID,
			prescription.LineItem{MedicineID: &med.ID, DosePeriods: prescription.DosePeriods{Morning: 1, Evening: 1},
				DurationChoice: prescription.DurationWeek, Instructions: "after meal"}))
		require.NoError(t, err)

		dup, err := svc.prescriptions.Duplicate(ctx, orig.ID)
		require.NoError(t, err)
		assert.NotEqual(t, orig.ID, dup.ID)
		assert.False(t, dup.IsFirstVisit)
		assert.Equal(t, orig.ClinicalRecord, dup.ClinicalRecord)
		assert.Equal(t, orig.History, dup.History)
		assert.Equal(t, orig.Vitals, dup.Vitals)
		require.Len(t, dup.Medicines, 1)
		assert.Equal(t, orig.Medicines[0].MedicineID, dup.Medicines[0].MedicineID)
		assert.Equal(t, orig.Medicines[0].DosePeriods, dup.Medicines[0].DosePeriods)
		assert.Equal(t, prescription.DurationWeek, dup.Medicines[0].DurationChoice)

		_, total, err := svc.prescriptions.ListByPatient(ctx, patient.ID, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
	})
}

func TestPrescription_DoctorDeletionKeepsRecord(t *testing.T) {
	clinic := newClinic(t)
	svc := newServices()

	withClinic(t, clinic, func(ctx context.Context) {
		patient := createPatient(t, ctx, svc, "Bilal Ahmed", "03111111111")
		doctor := createDoctor(t, ctx, svc, "dr_leaving")

		rx, err := svc.prescriptions.Create(doctorCtx(ctx, doctor), newPrescription(patient.ID))
		require.NoError(t, err)
		require.NotNil(t, rx.DoctorID)

		require.NoError(t, svc.identity.DeleteDoctor(ctx, doctor.ID))

		got, err := svc.prescriptions.Get(ctx, rx.ID)
		require.NoError(t, err)
		assert.Nil(t, got.DoctorID)
	})
}

func TestPrescription_PatientDeletionCascades(t *testing.T) {
	clinic := newClinic(t)
	svc := newServices()

	withClinic(t, clinic, func(ctx context.Context) {
		patient := createPatient(t, ctx, svc, "Hina Shah", "03222222222")
		doctor := createDoctor(t, ctx, svc, "dr_cascade")
		rx, err := svc.prescriptions.Create(doctorCtx(ctx, doctor), newPrescription(patient.ID,
			prescription.LineItem{CustomMedicine: "Ventolin", Days: 2}))
		require.NoError(t, err)

		require.NoError(t, svc.identity.DeletePatient(ctx, patient.ID))

		_, err = svc.prescriptions.Get(ctx, rx.ID)
		assert.True(t, errors.Is(err, apperr.ErrNotFound), "got %v", err)
	})
}

func TestMedicine_DeleteReferencedIsRejected(t *testing.T) {
	clinic := newClinic(t)
	svc := newServices()

	withClinic(t, clinic, func(ctx context.Context) {
		patient := createPatient(t, ctx, svc, "Usman Tariq", "03333333333")
		doctor := createDoctor(t, ctx, svc, "dr_ref")
		med := createMedicine(t, ctx, svc, "Montiget")
		unused := createMedicine(t, ctx, svc, "Risek")

		_, err := svc.prescriptions.Create(doctorCtx(ctx, doctor), newPrescription(patient.ID,
			prescription.LineItem{MedicineID: &med.ID, Days: 30}))
		require.NoError(t, err)

		err = svc.catalog.DeleteMedicine(ctx, med.ID)
		assert.True(t, errors.Is(err, apperr.ErrReferenced), "got %v", err)

		assert.NoError(t, svc.catalog.DeleteMedicine(ctx, unused.ID))
	})
}

func TestTemplate_SeedsDraft(t *testing.T) {
	clinic := newClinic(t)
	svc := newServices()

	withClinic(t, clinic, func(ctx context.Context) {
		patient := createPatient(t, ctx, svc, "Nadia Khan", "03444444444")
		doctor := createDoctor(t, ctx, svc, "dr_tpl")
		med := createMedicine(t, ctx, svc, "Seretide")
		ctx = doctorCtx(ctx, doctor)

		tpl, err := svc.templates.Create(ctx, &rxtemplate.Template{
			Name:                "Asthma follow up",
			ClinicalRecord:      "Bronchial Asthma",
			SpecialInstructions: "Avoid dust",
			Active:              true,
			Medicines: []rxtemplate.TemplateMedicine{
				{MedicineID: &med.ID, DosePeriods: prescription.DosePeriods{Morning: 2, Night: 2}, DurationChoice: prescription.DurationMonth},
				{CustomMedicine: "Steam inhalation", Days: 7},
			},
		})
		require.NoError(t, err)
		require.Len(t, tpl.Medicines, 2)
		require.NotNil(t, tpl.Medicines[1].MedicineID, "custom template medicine is promoted")

		draft, err := svc.prescriptions.NewDraft(ctx, patient.ID, &tpl.ID)
		require.NoError(t, err)
		assert.Equal(t, "Bronchial Asthma", draft.ClinicalRecord)
		require.Len(t, draft.Medicines, 2)
		assert.Equal(t, med.ID, *draft.Medicines[0].MedicineID)
		assert.Equal(t, prescription.DurationMonth, draft.Medicines[0].DurationChoice)
	})
}

func TestClinicIsolation(t *testing.T) {
	a := newClinic(t)
	b := newClinic(t)
	svc := newServices()

	withClinic(t, a, func(ctx context.Context) {
		createPatient(t, ctx, svc, "Only In A", "03555555555")
	})
	withClinic(t, b, func(ctx context.Context) {
		n, err := svc.identity.CountPatients(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})
}

func TestSandboxSeeder_DemoData(t *testing.T) {
	clinic := newClinic(t)
	svc := newServices()

	withClinic(t, clinic, func(ctx context.Context) {
		_, err := svc.catalog.SeedDefaults(ctx)
		require.NoError(t, err)

		cfg := sandbox.SeedConfig{PatientCount: 3, VisitsPerPatient: 2, MedicinesPerVisit: 3, Seed: 99}
		res, err := sandbox.NewSeeder(cfg, svc.identity, svc.prescriptions, svc.catalog, zerolog.Nop()).Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, res.Patients)
		assert.Equal(t, 6, res.Prescriptions)

		n, err := svc.prescriptions.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 6, n)

		recent, _, err := svc.prescriptions.ListRecent(ctx, 10, 0)
		require.NoError(t, err)
		require.NotEmpty(t, recent)
		assert.NotEmpty(t, recent[0].PatientExternalID)
	})
}
