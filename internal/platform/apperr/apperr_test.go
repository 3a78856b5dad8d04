package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validationf("name is required"), http.StatusBadRequest},
		{"not found", NotFound("patient"), http.StatusNotFound},
		{"conflict", Conflictf("medicine already exists"), http.StatusConflict},
		{"referenced", Referencedf("medicine is used by prescriptions"), http.StatusConflict},
		{"wrapped", fmt.Errorf("create: %w", NotFound("doctor")), http.StatusNotFound},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestToHTTP_MasksInternal(t *testing.T) {
	err := ToHTTP(errors.New("pq: relation \"patient\" does not exist"))
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if he.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", he.Code)
	}
	if he.Message != "internal server error" {
		t.Errorf("internal message leaked: %v", he.Message)
	}
	if he.Internal == nil {
		t.Error("expected original error kept as Internal")
	}
}

func TestToHTTP_KeepsDomainMessage(t *testing.T) {
	err := ToHTTP(fmt.Errorf("update patient: %w", Validationf("gender must be M or F")))
	he := err.(*echo.HTTPError)
	if he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", he.Code)
	}
	if he.Message != "gender must be M or F" {
		t.Errorf("unexpected message %v", he.Message)
	}
}
