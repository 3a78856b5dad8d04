package catalog

import (
	"context"
	"fmt"
)

// SeedResult counts the catalog rows SeedDefaults inserted.
type SeedResult struct {
	Medicines int `json:"medicines"`
	LabTests  int `json:"lab_tests"`
}

var defaultMedicines = []Medicine{
	// antibiotics and antivirals
	{Name: "Acyclovir", Form: FormTablet, Strength: "800mg"},
	{Name: "Acyclovir", Form: FormTablet, Strength: "400mg"},
	{Name: "Amoxicillin", Form: FormCapsule, Strength: "500mg"},
	{Name: "Amoxicillin", Form: FormCapsule, Strength: "250mg"},
	{Name: "Azithromycin", Form: FormTablet, Strength: "500mg"},
	{Name: "Azithromycin", Form: FormTablet, Strength: "250mg"},
	{Name: "Ciprofloxacin", Form: FormTablet, Strength: "500mg"},
	{Name: "Levofloxacin", Form: FormTablet, Strength: "500mg"},
	{Name: "Co-Amoxiclav", Form: FormTablet, Strength: "625mg"},
	{Name: "Cefixime", Form: FormTablet, Strength: "400mg"},

	// analgesics
	{Name: "Panadol", Form: FormTablet, Strength: "500mg"},
	{Name: "Paracetamol", Form: FormTablet, Strength: "500mg"},
	{Name: "Paracetamol", Form: FormTablet, Strength: "650mg"},
	{Name: "Ibuprofen", Form: FormTablet, Strength: "400mg"},
	{Name: "Ibuprofen", Form: FormTablet, Strength: "200mg"},
	{Name: "Diclofenac", Form: FormTablet, Strength: "50mg"},
	{Name: "Naproxen", Form: FormTablet, Strength: "500mg"},

	// respiratory
	{Name: "Salbutamol", Form: FormInhaler, Strength: "100mcg"},
	{Name: "Budesonide", Form: FormInhaler, Strength: "200mcg"},
	{Name: "Fluticasone", Form: FormInhaler, Strength: "250mcg"},
	{Name: "Montelukast", Form: FormTablet, Strength: "10mg"},
	{Name: "Theophylline", Form: FormTablet, Strength: "200mg"},
	{Name: "Dextromethorphan", Form: FormSyrup},
	{Name: "Ambroxol", Form: FormSyrup},
	{Name: "Bromhexine", Form: FormSyrup},

	// antihistamines
	{Name: "Cetirizine", Form: FormTablet, Strength: "10mg"},
	{Name: "Loratadine", Form: FormTablet, Strength: "10mg"},
	{Name: "Fexofenadine", Form: FormTablet, Strength: "180mg"},
	{Name: "Desloratadine", Form: FormTablet, Strength: "5mg"},
	{Name: "Chlorpheniramine", Form: FormTablet, Strength: "4mg"},

	// gastrointestinal
	{Name: "Omeprazole", Form: FormCapsule, Strength: "20mg"},
	{Name: "Omeprazole", Form: FormCapsule, Strength: "40mg"},
	{Name: "Esomeprazole", Form: FormTablet, Strength: "40mg"},
	{Name: "Pantoprazole", Form: FormTablet, Strength: "40mg"},
	{Name: "Domperidone", Form: FormTablet, Strength: "10mg"},
	{Name: "Metoclopramide", Form: FormTablet, Strength: "10mg"},

	// topical
	{Name: "Calamine", Form: FormLotion},
	{Name: "Hydrocortisone", Form: FormCream, Strength: "1%"},
	{Name: "Betamethasone", Form: FormCream, Strength: "0.1%"},
	{Name: "Mupirocin", Form: FormCream, Strength: "2%"},
	{Name: "Clotrimazole", Form: FormCream, Strength: "1%"},

	// vitamins and supplements
	{Name: "Vitamin C", Form: FormTablet, Strength: "500mg"},
	{Name: "Vitamin D3", Form: FormTablet, Strength: "1000IU"},
	{Name: "Multivitamins", Form: FormTablet},
	{Name: "Calcium + Vitamin D", Form: FormTablet, Strength: "500mg"},
	{Name: "Zinc", Form: FormTablet, Strength: "20mg"},

	{Name: "Prednisolone", Form: FormTablet, Strength: "5mg"},
	{Name: "Prednisone", Form: FormTablet, Strength: "10mg"},
	{Name: "Metformin", Form: FormTablet, Strength: "500mg"},
	{Name: "Amlodipine", Form: FormTablet, Strength: "5mg"},
	{Name: "Losartan", Form: FormTablet, Strength: "50mg"},
	{Name: "Atorvastatin", Form: FormTablet, Strength: "10mg"},
}

var defaultLabTests = []LabTest{
	{Name: "Complete Blood Count", Abbreviation: "CBC", Category: CategoryBlood},
	{Name: "Erythrocyte Sedimentation Rate", Abbreviation: "ESR", Category: CategoryBlood},
	{Name: "C-Reactive Protein", Abbreviation: "CRP", Category: CategoryBlood},
	{Name: "Procalcitonin", Abbreviation: "Pro Cal", Category: CategoryBlood},
	{Name: "Liver Function Tests", Abbreviation: "LFTs", Category: CategoryBlood},
	{Name: "Renal Function Tests", Abbreviation: "RFTs", Category: CategoryBlood},
	{Name: "Serum Electrolytes", Abbreviation: "S/E", Category: CategoryBlood},
	{Name: "Blood Sugar Random", Abbreviation: "BSR", Category: CategoryBlood},
	{Name: "Blood Sugar Fasting", Abbreviation: "BSF", Category: CategoryBlood},
	{Name: "HbA1c", Abbreviation: "HbA1c", Category: CategoryBlood},
	{Name: "IgE Levels", Abbreviation: "IgE", Category: CategoryBlood},
	{Name: "Pro BNP", Abbreviation: "Pro BNP", Category: CategoryBlood},
	{Name: "Coagulation Profile", Abbreviation: "Coag", Category: CategoryBlood},
	{Name: "Hepatitis B & C Screening", Abbreviation: "Hep B,C", Category: CategoryBlood},
	{Name: "Arterial Blood Gases", Abbreviation: "ABG", Category: CategoryBlood},

	{Name: "Chest X-Ray", Abbreviation: "CXR", Category: CategoryImaging},
	{Name: "X-Ray Paranasal Sinuses", Abbreviation: "XRAY PNS", Category: CategoryImaging},
	{Name: "Echocardiography", Abbreviation: "ECHO", Category: CategoryImaging},
	{Name: "Electrocardiogram", Abbreviation: "ECG", Category: CategoryImaging},
	{Name: "HRCT Chest", Abbreviation: "HRCT", Category: CategoryImaging},
	{Name: "CECT Chest", Abbreviation: "CECT", Category: CategoryImaging},
	{Name: "USG Chest", Abbreviation: "USG Chest", Category: CategoryImaging},
	{Name: "USG Abdomen", Abbreviation: "USG Abdomen", Category: CategoryImaging},
	{Name: "Pleural Fluid R/E, ADA, Cytology", Abbreviation: "Pleural Fluid", Category: CategoryOther},

	{Name: "Spirometry", Abbreviation: "Spiro", Category: CategoryPulmonary},
	{Name: "Bronchoscopy", Abbreviation: "Bronch", Category: CategoryPulmonary},
	{Name: "Sleep Studies", Abbreviation: "Sleep Study", Category: CategoryPulmonary},

	{Name: "Sputum Gram Stain", Abbreviation: "Sputum GS", Category: CategoryOther},
	{Name: "Sputum C/S", Abbreviation: "Sputum C/S", Category: CategoryOther},
	{Name: "Sputum Fungal (KOH) Stain", Abbreviation: "KOH", Category: CategoryOther},
	{Name: "Sputum Gene XPERT", Abbreviation: "GeneXpert", Category: CategoryOther},
	{Name: "AFB Smear", Abbreviation: "AFB", Category: CategoryOther},
	{Name: "AFB C/S", Abbreviation: "AFB C/S", Category: CategoryOther},
}

// SeedDefaults inserts the starter catalog. Rows that already exist are left
// untouched, so running it again is harmless.
func (s *Service) SeedDefaults(ctx context.Context) (SeedResult, error) {
	var res SeedResult
	seed := func(ctx context.Context) error {
		res = SeedResult{}
		for _, d := range defaultMedicines {
			m := d
			m.Active = true
			created, err := s.medicines.CreateIfAbsent(ctx, &m)
			if err != nil {
				return fmt.Errorf("seed medicine %s: %w", m.DisplayName(), err)
			}
			if created {
				res.Medicines++
			}
		}
		for _, d := range defaultLabTests {
			t := d
			t.Active = true
			created, err := s.labTests.CreateIfAbsent(ctx, &t)
			if err != nil {
				return fmt.Errorf("seed lab test %s: %w", t.Name, err)
			}
			if created {
				res.LabTests++
			}
		}
		return nil
	}

	var err error
	if s.tx != nil {
		err = s.tx.RunInTx(ctx, seed)
	} else {
		err = seed(ctx)
	}
	if err != nil {
		return SeedResult{}, err
	}
	if res.Medicines > 0 {
		s.invalidate(ctx)
	}
	s.logger.Info().Int("medicines", res.Medicines).Int("lab_tests", res.LabTests).Msg("catalog seeded")
	return res, nil
}
