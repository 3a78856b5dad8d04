package rxtemplate

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicrx/clinic/internal/platform/apperr"
	"github.com/clinicrx/clinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes mounts the seed lookup used by the prescription form.
func (h *Handler) RegisterPublicRoutes(public *echo.Group) {
	public.GET("/templates/:id", h.GetSeed)
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleStaff))
	read.GET("/templates", h.List)
	read.GET("/templates/:id", h.Get)

	write := api.Group("", auth.RequireRole(auth.RoleDoctor))
	write.POST("/templates", h.Create)
	write.PUT("/templates/:id", h.Update)
	write.DELETE("/templates/:id", h.Delete)
}

type templateRequest struct {
	Name                string             `json:"name"`
	Description         string             `json:"description"`
	DoctorID            *uuid.UUID         `json:"doctor_id"`
	ClinicalRecord      string             `json:"clinical_record"`
	SpecialInstructions string             `json:"special_instructions"`
	Active              *bool              `json:"active"`
	Medicines           []TemplateMedicine `json:"medicines"`
}

func (r templateRequest) toModel() *Template {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &Template{
		Name:                r.Name,
		Description:         r.Description,
		DoctorID:            r.DoctorID,
		ClinicalRecord:      r.ClinicalRecord,
		SpecialInstructions: r.SpecialInstructions,
		Active:              active,
		Medicines:           r.Medicines,
	}
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func (h *Handler) GetSeed(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "template not found")
	}
	seed, err := h.svc.Seed(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, seed)
}

func (h *Handler) Create(c echo.Context) error {
	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := h.svc.Create(c.Request().Context(), req.toModel())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) List(c echo.Context) error {
	active, _ := strconv.ParseBool(c.QueryParam("active"))
	items, err := h.svc.List(c.Request().Context(), active)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req templateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t := req.toModel()
	t.ID = id
	saved, err := h.svc.Update(c.Request().Context(), t)
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
