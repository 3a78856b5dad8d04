package catalog

import (
	"net/http"
	"strconv"

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

// RegisterPublicRoutes mounts the lookup used by the prescription form.
func (h *Handler) RegisterPublicRoutes(public *echo.Group) {
	public.GET("/medicines", h.LookupMedicines)
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleDoctor, auth.RoleStaff))
	read.GET("/medicines", h.ListMedicines)
	read.GET("/medicines/:id", h.GetMedicine)
	read.GET("/lab-tests", h.ListLabTests)
	read.GET("/lab-tests/:id", h.GetLabTest)

	write := api.Group("", auth.RequireRole(auth.RoleDoctor))
	write.POST("/medicines", h.CreateMedicine)
	write.PUT("/medicines/:id", h.UpdateMedicine)
	write.DELETE("/medicines/:id", h.DeleteMedicine)
	write.POST("/lab-tests", h.CreateLabTest)
	write.PUT("/lab-tests/:id", h.UpdateLabTest)
	write.DELETE("/lab-tests/:id", h.DeleteLabTest)
	write.POST("/catalog/seed", h.Seed, auth.RequireRole(auth.RoleAdmin))
}

type medicineRequest struct {
	Name          string `json:"name"`
	Form          string `json:"form"`
	Strength      string `json:"strength"`
	DefaultDosage string `json:"default_dosage"`
	Active        *bool  `json:"active"`
}

func (r medicineRequest) toModel() *Medicine {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &Medicine{
		Name:          r.Name,
		Form:          r.Form,
		Strength:      r.Strength,
		DefaultDosage: r.DefaultDosage,
		Active:        active,
	}
}

type labTestRequest struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	Category     string `json:"category"`
	Active       *bool  `json:"active"`
}

func (r labTestRequest) toModel() *LabTest {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &LabTest{Name: r.Name, Abbreviation: r.Abbreviation, Category: r.Category, Active: active}
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func activeOnly(c echo.Context) bool {
	v, err := strconv.ParseBool(c.QueryParam("active"))
	return err == nil && v
}

// -- Medicine Handlers --

func (h *Handler) LookupMedicines(c echo.Context) error {
	items, err := h.svc.ListActiveMedicines(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) CreateMedicine(c echo.Context) error {
	var req medicineRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m := req.toModel()
	if err := h.svc.CreateMedicine(c.Request().Context(), m); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetMedicine(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	m, err := h.svc.GetMedicine(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListMedicines(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMedicines(c.Request().Context(), c.QueryParam("q"), activeOnly(c), pg.Limit, pg.Offset)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Medicine{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) UpdateMedicine(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req medicineRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m := req.toModel()
	m.ID = id
	if err := h.svc.UpdateMedicine(c.Request().Context(), m); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) DeleteMedicine(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteMedicine(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Lab Test Handlers --

func (h *Handler) CreateLabTest(c echo.Context) error {
	var req labTestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t := req.toModel()
	if err := h.svc.CreateLabTest(c.Request().Context(), t); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) GetLabTest(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	t, err := h.svc.GetLabTest(c.Request().Context(), id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) ListLabTests(c echo.Context) error {
	items, err := h.svc.ListLabTests(c.Request().Context(), activeOnly(c))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*LabTest{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateLabTest(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req labTestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t := req.toModel()
	t.ID = id
	if err := h.svc.UpdateLabTest(c.Request().Context(), t); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) DeleteLabTest(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteLabTest(c.Request().Context(), id); err != nil {
		return apperr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Seed(c echo.Context) error {
	res, err := h.svc.SeedDefaults(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}
