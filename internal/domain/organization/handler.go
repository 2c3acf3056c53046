package organization

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dentaray/dentaray/internal/platform/auth"
	"github.com/dentaray/dentaray/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts clinic routes on the authenticated API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/organizations", h.List)
	api.GET("/organizations/:id", h.Get)
	api.GET("/organizations/:id/members", h.Members)
	api.POST("/organizations/join", h.Join)
	api.POST("/organizations/:id/leave", h.Leave)

	manageGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor))
	manageGroup.POST("/organizations", h.Create)
	manageGroup.PUT("/organizations/:id", h.Update)
	manageGroup.GET("/organizations/:id/invite-code", h.InviteCode)

	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.DELETE("/organizations/:id", h.Delete)
	adminGroup.POST("/organizations/:id/invite-code/regenerate", h.RegenerateInviteCode)
}

func orgID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid organization id")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	org, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":      "organization created",
		"organization": org,
	})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := orgID(c)
	if err != nil {
		return err
	}

	org, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "organization not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// The invite code is only shared with members and admins.
	caller := auth.IdentityFromContext(c.Request().Context())
	if !caller.IsAdmin() && caller.OrganizationID != org.ID.String() {
		org.InviteCode = ""
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"organization": org})
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	orgs, total, err := h.svc.List(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	caller := auth.IdentityFromContext(c.Request().Context())
	if !caller.IsAdmin() {
		for _, org := range orgs {
			if caller.OrganizationID != org.ID.String() {
				org.InviteCode = ""
			}
		}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(orgs, total, p.Limit, p.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := orgID(c)
	if err != nil {
		return err
	}

	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	caller := auth.IdentityFromContext(c.Request().Context())
	org, err := h.svc.Update(c.Request().Context(), caller, id, in)
	if err != nil {
		switch {
		case errors.Is(err, ErrOrgNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "organization not found")
		case errors.Is(err, ErrAccessDenied):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":      "organization updated",
		"organization": org,
	})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := orgID(c)
	if err != nil {
		return err
	}

	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "organization not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "organization deleted"})
}

func (h *Handler) InviteCode(c echo.Context) error {
	id, err := orgID(c)
	if err != nil {
		return err
	}

	caller := auth.IdentityFromContext(c.Request().Context())
	org, err := h.svc.InviteCode(c.Request().Context(), caller, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrAccessDenied):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, ErrOrgNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "organization not found")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"invite_code":       org.InviteCode,
		"organization_name": org.Name,
	})
}

func (h *Handler) RegenerateInviteCode(c echo.Context) error {
	id, err := orgID(c)
	if err != nil {
		return err
	}

	org, err := h.svc.RegenerateInviteCode(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "organization not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message":     "invite code regenerated",
		"invite_code": org.InviteCode,
	})
}

func (h *Handler) Join(c echo.Context) error {
	var in struct {
		InviteCode string `json:"invite_code"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if in.InviteCode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invite code is required")
	}

	caller := auth.IdentityFromContext(c.Request().Context())
	org, err := h.svc.Join(c.Request().Context(), caller, in.InviteCode)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInviteCode), errors.Is(err, ErrAlreadyMember):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "joined organization",
		"organization": map[string]string{
			"id":   org.ID.String(),
			"name": org.Name,
			"type": org.Type,
		},
	})
}

func (h *Handler) Leave(c echo.Context) error {
	id, err := orgID(c)
	if err != nil {
		return err
	}

	caller := auth.IdentityFromContext(c.Request().Context())
	if err := h.svc.Leave(c.Request().Context(), caller, id); err != nil {
		switch {
		case errors.Is(err, ErrNotMember):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrOrgNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "organization not found")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "left organization"})
}

func (h *Handler) Members(c echo.Context) error {
	id, err := orgID(c)
	if err != nil {
		return err
	}

	caller := auth.IdentityFromContext(c.Request().Context())
	members, err := h.svc.Members(c.Request().Context(), caller, id)
	if err != nil {
		switch {
		case errors.Is(err, ErrAccessDenied):
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case errors.Is(err, ErrOrgNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "organization not found")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"members": members})
}
