package prescription

import (
	"context"
	"strings"

	"github.com/clinicrx/clinic/internal/domain/catalog"
	"github.com/clinicrx/clinic/internal/platform/apperr"
)

const (
	maxCustomMedicineLength = 200
	maxDosageLength         = 100
	maxInstructionLength    = 200
	maxCustomDurationLength = 50
)

// MedicinePromoter turns a free-text medicine name into a catalog entry,
// reusing an existing one with the same name.
type MedicinePromoter interface {
	PromoteCustomMedicine(ctx context.Context, name string) (*catalog.Medicine, bool, error)
}

func validateLineItem(n int, li *LineItem) error {
	dp := li.DosePeriods
	for _, v := range []int{dp.Morning, dp.Afternoon, dp.Evening, dp.Night} {
		if v < 0 || v > maxDosePerPeriod {
			return apperr.Validationf("line %d: dose per period must be between 0 and %d", n, maxDosePerPeriod)
		}
	}
	if li.Days < 0 {
		return apperr.Validationf("line %d: days must be positive", n)
	}
	if !validDurations[li.DurationChoice] {
		return apperr.Validationf("line %d: invalid duration %q", n, li.DurationChoice)
	}
	if li.DurationChoice == DurationCustom && li.CustomDuration == "" {
		return apperr.Validationf("line %d: custom duration is required", n)
	}
	switch {
	case len(li.CustomMedicine) > maxCustomMedicineLength:
		return apperr.Validationf("line %d: medicine name must be at most %d characters", n, maxCustomMedicineLength)
	case len(li.Dosage) > maxDosageLength:
		return apperr.Validationf("line %d: dosage must be at most %d characters", n, maxDosageLength)
	case len(li.Instructions) > maxInstructionLength:
		return apperr.Validationf("line %d: instructions must be at most %d characters", n, maxInstructionLength)
	case len(li.CustomDuration) > maxCustomDurationLength:
		return apperr.Validationf("line %d: custom duration must be at most %d characters", n, maxCustomDurationLength)
	}
	return nil
}

// PrepareLineItems normalizes submitted rows before they are stored. Rows
// naming no medicine are dropped, every remaining row is validated, and only
// then are free-text medicines promoted into the catalog so that the row
// references the catalog entry instead of carrying the text.
func PrepareLineItems(ctx context.Context, items []LineItem, promoter MedicinePromoter) ([]LineItem, error) {
	out := make([]LineItem, 0, len(items))
	for _, li := range items {
		li.CustomMedicine = strings.TrimSpace(li.CustomMedicine)
		li.Dosage = strings.TrimSpace(li.Dosage)
		li.Instructions = strings.TrimSpace(li.Instructions)
		li.CustomDuration = strings.TrimSpace(li.CustomDuration)
		if li.MedicineID == nil && li.CustomMedicine == "" {
			continue
		}
		if err := validateLineItem(len(out)+1, &li); err != nil {
			return nil, err
		}
		if li.Days == 0 {
			li.Days = 1
		}
		if li.DurationChoice != DurationCustom {
			li.CustomDuration = ""
		}
		li.Position = len(out)
		out = append(out, li)
	}

	for i := range out {
		li := &out[i]
		if li.MedicineID != nil {
			li.CustomMedicine = ""
			continue
		}
		m, _, err := promoter.PromoteCustomMedicine(ctx, li.CustomMedicine)
		if err != nil {
			return nil, err
		}
		id := m.ID
		li.MedicineID = &id
		li.MedicineName = m.DisplayName()
		li.CustomMedicine = ""
	}
	return out, nil
}
