package db

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newClinicContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestExtractClinicID_Priority(t *testing.T) {
	c := newClinicContext("/?clinic_id=query")
	c.Request().Header.Set(ClinicHeader, "header")
	c.Set("jwt_clinic_id", "token")

	if got := extractClinicID(c, "default", true); got != "token" {
		t.Errorf("expected token claim to win, got %s", got)
	}

	c.Set("jwt_clinic_id", "")
	if got := extractClinicID(c, "default", true); got != "header" {
		t.Errorf("expected header over query, got %s", got)
	}
}

func TestExtractClinicID_QueryAndDefault(t *testing.T) {
	if got := extractClinicID(newClinicContext("/?clinic_id=Westside"), "default", true); got != "westside" {
		t.Errorf("expected lower-cased query clinic, got %s", got)
	}
	if got := extractClinicID(newClinicContext("/"), "default", true); got != "default" {
		t.Errorf("expected default, got %s", got)
	}
}

func TestExtractClinicID_AnonymousPinnedToDefault(t *testing.T) {
	c := newClinicContext("/?clinic_id=westside")
	c.Request().Header.Set(ClinicHeader, "eastside")
	if got := extractClinicID(c, "default", false); got != "default" {
		t.Errorf("expected header and query to be ignored, got %s", got)
	}

	c.Set("jwt_clinic_id", "eastside")
	if got := extractClinicID(c, "default", false); got != "eastside" {
		t.Errorf("expected token claim to apply, got %s", got)
	}
}

func TestValidClinicID(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"default", true},
		{"clinic_1", true},
		{"a", true},
		{"", false},
		{"a-b", false},
		{"a.b", false},
		{"drop;table", false},
		{"UPPER", false},
		{"abcdefghijabcdefghijabcdefghijabcdefghijabcdefghij", false},
	}
	for _, tt := range tests {
		if got := ValidClinicID(tt.input); got != tt.valid {
			t.Errorf("ValidClinicID(%q) = %v, want %v", tt.input, got, tt.valid)
		}
	}
}

func TestClinicMiddleware_RejectsInvalidID(t *testing.T) {
	c := newClinicContext("/")
	c.Request().Header.Set(ClinicHeader, "bad-id")

	h := ClinicMiddleware(nil, "default", nil, func(echo.Context) bool { return true })(func(c echo.Context) error {
		t.Fatal("handler should not run")
		return nil
	})
	err := h(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestClinicMiddleware_Skipper(t *testing.T) {
	c := newClinicContext("/health")
	ran := false
	h := ClinicMiddleware(nil, "default", func(echo.Context) bool { return true }, nil)(func(c echo.Context) error {
		ran = true
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Error("expected handler to run for skipped path")
	}
}

func TestCreateClinicSchema_InvalidIDs(t *testing.T) {
	for _, id := range []string{"with-dash", "with.dot", "sp ace", "drop;table"} {
		if err := CreateClinicSchema(context.Background(), nil, id, ""); err == nil {
			t.Errorf("expected error for invalid clinic ID %q", id)
		}
	}
}

func TestContextAccessors_WrongTypes(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBConnKey, "not-a-conn")
	if ConnFromContext(ctx) != nil {
		t.Error("expected nil conn for wrong type")
	}
	ctx = context.WithValue(context.Background(), DBTxKey, "not-a-tx")
	if TxFromContext(ctx) != nil {
		t.Error("expected nil tx for wrong type")
	}
	ctx = context.WithValue(context.Background(), ClinicIDKey, 42)
	if ClinicFromContext(ctx) != "" {
		t.Error("expected empty clinic for wrong type")
	}
}

func TestWithTx_NoConnection(t *testing.T) {
	_, _, err := WithTx(context.Background())
	if err == nil {
		t.Fatal("expected error when no connection in context")
	}
	if err.Error() != "no database connection in context" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
}

func TestWithClinicConn_InvalidID(t *testing.T) {
	err := WithClinicConn(context.Background(), nil, "Bad ID", func(context.Context) error { return nil })
	if err == nil {
		t.Error("expected error for invalid clinic id")
	}
}
