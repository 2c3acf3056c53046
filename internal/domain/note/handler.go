package note

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dentaray/dentaray/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts clinical-note routes. Notes are authored and edited
// by doctors; admins additionally read and delete.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	staffGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor))
	staffGroup.GET("/notes/patient/:patient_id", h.ListForPatient)
	staffGroup.GET("/notes/:id", h.Get)
	staffGroup.DELETE("/notes/:id", h.Delete)

	doctorGroup := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctorGroup.GET("/notes/doctor", h.ListForDoctor)
	doctorGroup.POST("/notes", h.Create)
	doctorGroup.PUT("/notes/:id", h.Update)
}

func noteID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid note id")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	caller := auth.IdentityFromContext(c.Request().Context())

	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	n, err := h.svc.Create(c.Request().Context(), caller, in)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "note created",
		"note":    n,
	})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := noteID(c)
	if err != nil {
		return err
	}
	caller := auth.IdentityFromContext(c.Request().Context())

	n, err := h.svc.Get(c.Request().Context(), caller, id)
	if err != nil {
		return noteError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"note": n})
}

func (h *Handler) Update(c echo.Context) error {
	id, err := noteID(c)
	if err != nil {
		return err
	}
	caller := auth.IdentityFromContext(c.Request().Context())

	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	n, err := h.svc.Update(c.Request().Context(), caller, id, in)
	if err != nil {
		return noteError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "note updated",
		"note":    n,
	})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := noteID(c)
	if err != nil {
		return err
	}
	caller := auth.IdentityFromContext(c.Request().Context())

	if err := h.svc.Delete(c.Request().Context(), caller, id); err != nil {
		return noteError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "note deleted"})
}

func (h *Handler) ListForPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	notes, err := h.svc.ListForPatient(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if notes == nil {
		notes = []*Note{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"notes": notes})
}

func (h *Handler) ListForDoctor(c echo.Context) error {
	caller := auth.IdentityFromContext(c.Request().Context())

	notes, err := h.svc.ListForDoctor(c.Request().Context(), caller.Email)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if notes == nil {
		notes = []*Note{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"notes": notes})
}

func noteError(err error) error {
	switch {
	case errors.Is(err, ErrNoteNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "note not found")
	case errors.Is(err, ErrAccessDenied):
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
