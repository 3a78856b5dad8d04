package prescription

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicrx/clinic/internal/platform/apperr"
	"github.com/clinicrx/clinic/internal/platform/auth"
	"github.com/clinicrx/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleStaff))
	read.GET("/prescriptions", h.ListRecent)
	read.GET("/prescriptions/draft", h.NewDraft)
	read.GET("/prescriptions/:id", h.Get)
	read.GET("/patients/:id/prescriptions", h.ListByPatient)
	read.GET("/diagnoses/suggestions", h.DiagnosisSuggestions)

	write := api.Group("", auth.RequireRole(auth.RoleDoctor))
	write.POST("/prescriptions", h.Create)
	write.PUT("/prescriptions/:id", h.Update)
	write.DELETE("/prescriptions/:id", h.Delete)
	write.POST("/prescriptions/:id/duplicate", h.Duplicate)
}

// RegisterPrintRoutes mounts the printable page outside the JSON API.
func (h *Handler) RegisterPrintRoutes(g *echo.Group) {
	g.GET("/prescriptions/:id/print", h.Print, auth.RequireRole(auth.RoleDoctor, auth.RoleStaff))
}

// prescriptionRequest is the editable part of a prescription. The
// first-visit flag is not accepted from clients.
type prescriptionRequest struct {
	PatientID      uuid.UUID    `json:"patient_id"`
	DoctorID       *uuid.UUID   `json:"doctor_id"`
	IssuedAt       *time.Time   `json:"issued_at"`
	ClinicalRecord string       `json:"clinical_record"`
	History        History      `json:"history"`
	Vitals         Vitals       `json:"vitals"`
	LabTestIDs     []uuid.UUID  `json:"lab_test_ids"`
	Instructions   Instructions `json:"instructions"`
	Medicines      []LineItem   `json:"medicines"`
}

func (r prescriptionRequest) toModel() *Prescription {
	rx := &Prescription{
		PatientID:      r.PatientID,
		DoctorID:       r.DoctorID,
		ClinicalRecord: r.ClinicalRecord,
		History:        r.History,
		Vitals:         r.Vitals,
		LabTestIDs:     r.LabTestIDs,
		Instructions:   r.Instructions,
		Medicines:      r.Medicines,
	}
	if r.IssuedAt != nil {
		rx.IssuedAt = *r.IssuedAt
	}
	return rx
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	var req prescriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rx, err := h.svc.Create(c.Request().Context(), req.toModel())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, rx)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	rx, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, rx)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req prescriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rx := req.toModel()
	rx.ID = id
	saved, err := h.svc.Update(c.Request().Context(), rx)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, saved)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Duplicate(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	rx, err := h.svc.Duplicate(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, rx)
}

func (h *Handler) ListRecent(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListRecent(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Prescription{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) ListByPatient(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Prescription{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) NewDraft(c echo.Context) error {
	patientID, err := uuid.Parse(c.QueryParam("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	var templateID *uuid.UUID
	if raw := c.QueryParam("template_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid template_id")
		}
		templateID = &id
	}
	draft, err := h.svc.NewDraft(c.Request().Context(), patientID, templateID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, draft)
}

func (h *Handler) DiagnosisSuggestions(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	items, err := h.svc.DiagnosisSuggestions(c.Request().Context(), limit)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Print(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := h.svc.RenderPrint(c.Request().Context(), id, &buf); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}
