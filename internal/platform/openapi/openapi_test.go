package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func noop(c echo.Context) error { return nil }

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.GET("/api/medicines", noop)
	v1 := e.Group("/api/v1")
	v1.GET("/patients", noop)
	v1.POST("/patients", noop)
	v1.GET("/patients/:id", noop)
	v1.DELETE("/patients/:id", noop)
	v1.POST("/prescriptions/:id/duplicate", noop)
	e.GET("/prescriptions/:id/print", noop)
	return e
}

func newTestGenerator(e *echo.Echo) *Generator {
	return NewGenerator(e.Routes, "1.0.0", "http://localhost:8000", func(p string) bool {
		return p == "/api/medicines"
	})
}

func TestGenerateSpec_Structure(t *testing.T) {
	spec := newTestGenerator(newTestEcho()).GenerateSpec()

	if spec["openapi"] != "3.0.3" {
		t.Errorf("expected openapi '3.0.3', got %v", spec["openapi"])
	}
	info, ok := spec["info"].(map[string]interface{})
	if !ok {
		t.Fatal("expected info object")
	}
	if info["title"] != "Clinic Prescription API" || info["version"] != "1.0.0" {
		t.Errorf("unexpected info %v", info)
	}
	servers, ok := spec["servers"].([]map[string]string)
	if !ok || len(servers) != 1 || servers[0]["url"] != "http://localhost:8000" {
		t.Errorf("unexpected servers %v", spec["servers"])
	}
}

func TestGenerateSpec_Paths(t *testing.T) {
	spec := newTestGenerator(newTestEcho()).GenerateSpec()
	paths := spec["paths"].(map[string]interface{})

	item, ok := paths["/api/v1/patients/{id}"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected converted path parameter, got paths %v", keys(paths))
	}
	if _, ok := item["get"]; !ok {
		t.Error("expected get operation")
	}
	del, ok := item["delete"].(map[string]interface{})
	if !ok {
		t.Fatal("expected delete operation")
	}
	if _, ok := del["responses"].(map[string]interface{})["204"]; !ok {
		t.Error("expected 204 response for delete")
	}
	params := del["parameters"].([]map[string]interface{})
	if len(params) != 1 || params[0]["name"] != "id" || params[0]["in"] != "path" {
		t.Errorf("unexpected parameters %v", params)
	}

	create := paths["/api/v1/patients"].(map[string]interface{})["post"].(map[string]interface{})
	if _, ok := create["requestBody"]; !ok {
		t.Error("expected request body on post")
	}
	if create["operationId"] != "postApiV1Patients" {
		t.Errorf("unexpected operationId %v", create["operationId"])
	}
	tags := create["tags"].([]string)
	if len(tags) != 1 || tags[0] != "patients" {
		t.Errorf("unexpected tags %v", tags)
	}

	if _, ok := paths["/prescriptions/{id}/print"]; !ok {
		t.Error("expected print route")
	}
}

func TestGenerateSpec_Security(t *testing.T) {
	spec := newTestGenerator(newTestEcho()).GenerateSpec()
	paths := spec["paths"].(map[string]interface{})

	lookup := paths["/api/medicines"].(map[string]interface{})["get"].(map[string]interface{})
	if _, ok := lookup["security"]; ok {
		t.Error("public lookup should not require a token")
	}
	list := paths["/api/v1/patients"].(map[string]interface{})["get"].(map[string]interface{})
	if _, ok := list["security"]; !ok {
		t.Error("api route should require a bearer token")
	}
}

func TestTagFor(t *testing.T) {
	tests := map[string]string{
		"/api/v1/patients/:id":          "patients",
		"/api/templates/:id":            "templates",
		"/prescriptions/:id/print":      "prescriptions",
		"/api/v1/diagnoses/suggestions": "diagnoses",
		"/":                             "root",
	}
	for path, want := range tests {
		if got := tagFor(path); got != want {
			t.Errorf("tagFor(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestRegisterRoutes(t *testing.T) {
	e := newTestEcho()
	newTestGenerator(e).RegisterRoutes(e.Group("/api"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	paths := doc["paths"].(map[string]interface{})
	if _, ok := paths["/api/openapi.json"]; !ok {
		t.Error("the document lists its own route")
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/docs", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for docs, got %d", rec.Code)
	}
}

func keys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
