package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicrx/clinic/internal/domain/identity"
	"github.com/clinicrx/clinic/internal/domain/prescription"
)

type fakeSources struct {
	patients      []*identity.Patient
	prescriptions []*prescription.Prescription
	medicines     int
	err           error
	lastLimit     int
}

func (f *fakeSources) CountPatients(context.Context) (int, error) {
	return len(f.patients), f.err
}

func (f *fakeSources) ListPatients(_ context.Context, _ string, limit, _ int) ([]*identity.Patient, int, error) {
	f.lastLimit = limit
	if len(f.patients) > limit {
		return f.patients[:limit], len(f.patients), nil
	}
	return f.patients, len(f.patients), nil
}

func (f *fakeSources) Count(context.Context) (int, error) {
	return len(f.prescriptions), nil
}

func (f *fakeSources) ListRecent(_ context.Context, limit, _ int) ([]*prescription.Prescription, int, error) {
	if len(f.prescriptions) > limit {
		return f.prescriptions[:limit], len(f.prescriptions), nil
	}
	return f.prescriptions, len(f.prescriptions), nil
}

func (f *fakeSources) CountActiveMedicines(context.Context) (int, error) {
	return f.medicines, nil
}

func TestSummary(t *testing.T) {
	src := &fakeSources{medicines: 52}
	for i := 0; i < 7; i++ {
		src.patients = append(src.patients, &identity.Patient{ID: uuid.New()})
		src.prescriptions = append(src.prescriptions, &prescription.Prescription{ID: uuid.New()})
	}
	svc := NewService(src, src, src)

	s, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, s.TotalPatients)
	assert.Equal(t, 7, s.TotalPrescriptions)
	assert.Equal(t, 52, s.ActiveMedicines)
	assert.Len(t, s.RecentPatients, 5)
	assert.Len(t, s.RecentPrescriptions, 5)
	assert.Equal(t, 5, src.lastLimit)
}

func TestSummary_EmptyClinic(t *testing.T) {
	src := &fakeSources{}
	s, err := NewService(src, src, src).Summary(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s.RecentPatients)
	assert.NotNil(t, s.RecentPrescriptions)
}

func TestSummary_Error(t *testing.T) {
	src := &fakeSources{err: errors.New("connection refused")}
	_, err := NewService(src, src, src).Summary(context.Background())
	assert.ErrorContains(t, err, "count patients")
}

func TestHandler_Get(t *testing.T) {
	src := &fakeSources{medicines: 3}
	h := NewHandler(NewService(src, src, src))

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil), rec)
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"active_medicines":3`))
	assert.True(t, strings.Contains(rec.Body.String(), `"recent_patients":[]`))
}
