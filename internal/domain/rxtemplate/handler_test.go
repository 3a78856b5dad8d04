package rxtemplate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func expectHTTPStatus(t *testing.T, err error, code int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	if he.Code != code {
		t.Errorf("expected %d, got %d (%v)", code, he.Code, he.Message)
	}
}

func TestHandler_GetSeedShape(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	tpl, err := svc.Create(context.Background(), asthmaTemplate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(tpl.ID.String())
	if err := h.GetSeed(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"clinical_record", "instructions", "medicines"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	var meds []map[string]json.RawMessage
	if err := json.Unmarshal(got["medicines"], &meds); err != nil {
		t.Fatalf("decode medicines: %v", err)
	}
	for _, key := range []string{"medicine_id", "medicine_name", "custom_medicine", "dose_periods", "days", "duration", "instructions"} {
		if _, ok := meds[0][key]; !ok {
			t.Errorf("missing medicine key %q", key)
		}
	}
	var duration map[string]json.RawMessage
	if err := json.Unmarshal(meds[0]["duration"], &duration); err != nil {
		t.Fatalf("decode duration: %v", err)
	}
	if len(duration) != 2 || duration["choice"] == nil || duration["custom"] == nil {
		t.Errorf("duration = %s, want {choice, custom}", meds[0]["duration"])
	}
}

func TestHandler_GetSeedNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	for _, id := range []string{uuid.NewString(), "nope"} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(id)
		expectHTTPStatus(t, h.GetSeed(c), http.StatusNotFound)
	}
}

func TestHandler_CreateAndList(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	body := `{"name":"COPD","medicines":[{"custom_medicine":"Tiotropium","dose_periods":{"morning":1},"days":30}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/templates", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	if err := h.List(e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/templates?active=true", nil), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"name":"COPD"`) {
		t.Errorf("unexpected list %s", rec.Body.String())
	}
}
