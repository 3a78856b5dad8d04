package catalog

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

func newTestHandler() (*Handler, *mockMedicineRepo, *echo.Echo) {
	svc, repo := newTestService()
	return NewHandler(svc), repo, echo.New()
}

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

func TestHandler_CreateMedicine(t *testing.T) {
	h, _, e := newTestHandler()

	body := `{"name":"Azithromycin","form":"Tab","strength":"500mg"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/medicines", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateMedicine(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var m Medicine
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !m.Active {
		t.Error("new medicines should default to active")
	}
}

func TestHandler_CreateMedicine_BadForm(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"X","form":"Pill"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	expectHTTPStatus(t, h.CreateMedicine(c), http.StatusBadRequest)
}

func TestHandler_LookupMedicines_EmptyArray(t *testing.T) {
	h, _, e := newTestHandler()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/medicines", nil), rec)
	if err := h.LookupMedicines(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("expected [], got %s", got)
	}
}

func TestHandler_LookupMedicines_Shape(t *testing.T) {
	h, _, e := newTestHandler()
	if err := h.svc.CreateMedicine(context.Background(), &Medicine{Name: "Zinc", Strength: "20mg", Active: true}); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/medicines", nil), rec)
	if err := h.LookupMedicines(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var items []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	for _, k := range []string{"id", "name", "form", "strength"} {
		if _, ok := items[0][k]; !ok {
			t.Errorf("missing key %q", k)
		}
	}
	if len(items[0]) != 4 {
		t.Errorf("expected exactly 4 keys, got %v", items[0])
	}
}

func TestHandler_GetMedicine_NotFound(t *testing.T) {
	h, _, e := newTestHandler()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	expectHTTPStatus(t, h.GetMedicine(c), http.StatusNotFound)
}

func TestHandler_GetMedicine_InvalidID(t *testing.T) {
	h, _, e := newTestHandler()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	expectHTTPStatus(t, h.GetMedicine(c), http.StatusBadRequest)
}

func TestHandler_DeleteMedicine_Referenced(t *testing.T) {
	h, repo, e := newTestHandler()
	m := &Medicine{Name: "Budesonide", Form: FormInhaler, Strength: "200mcg", Active: true}
	if err := h.svc.CreateMedicine(context.Background(), m); err != nil {
		t.Fatal(err)
	}
	repo.referenced[m.ID] = true

	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(m.ID.String())

	expectHTTPStatus(t, h.DeleteMedicine(c), http.StatusConflict)
}

func TestHandler_DeleteMedicine(t *testing.T) {
	h, _, e := newTestHandler()
	m := &Medicine{Name: "Naproxen", Strength: "500mg", Active: true}
	if err := h.svc.CreateMedicine(context.Background(), m); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(m.ID.String())

	if err := h.DeleteMedicine(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandler_ListMedicines_Search(t *testing.T) {
	h, _, e := newTestHandler()
	ctx := context.Background()
	for _, n := range []string{"Omeprazole", "Esomeprazole", "Zinc"} {
		if err := h.svc.CreateMedicine(ctx, &Medicine{Name: n, Active: true}); err != nil {
			t.Fatal(err)
		}
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/medicines?q=prazole", nil), rec)
	if err := h.ListMedicines(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp struct {
		Data  []Medicine `json:"data"`
		Total int        `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 || len(resp.Data) != 2 {
		t.Errorf("expected 2 matches, got total=%d len=%d", resp.Total, len(resp.Data))
	}
}

func TestHandler_UpdateLabTest_NotFound(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"name":"CBC"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	expectHTTPStatus(t, h.UpdateLabTest(c), http.StatusNotFound)
}
