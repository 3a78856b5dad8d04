package dashboard

import (
	"net/http"

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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard", h.Get, auth.RequireRole(auth.RoleDoctor, auth.RoleStaff))
}

func (h *Handler) Get(c echo.Context) error {
	s, err := h.svc.Summary(c.Request().Context())
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, s)
}
