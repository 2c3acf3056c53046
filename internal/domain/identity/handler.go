package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dentaray/dentaray/internal/platform/auth"
	"github.com/dentaray/dentaray/pkg/pagination"
)

type Handler struct {
	svc    *Service
	issuer *auth.TokenIssuer
}

// NewHandler creates the identity handler. The issuer is nil in federated
// mode, which disables local register/login.
func NewHandler(svc *Service, issuer *auth.TokenIssuer) *Handler {
	return &Handler{svc: svc, issuer: issuer}
}

// RegisterRoutes mounts public auth routes and authenticated profile and
// admin user-management routes.
func (h *Handler) RegisterRoutes(public *echo.Group, api *echo.Group) {
	if h.issuer != nil {
		public.POST("/register", h.Register)
		public.POST("/login", h.Login)
	}

	api.GET("/me", h.Me)
	api.PUT("/me", h.UpdateMe)

	adminGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/users/stats", h.Stats)
	adminGroup.GET("/users", h.ListUsers)
	adminGroup.GET("/users/:email", h.GetUser)
	adminGroup.PUT("/users/:email", h.UpdateUser)
	adminGroup.DELETE("/users/:email", h.DeleteUser)
	adminGroup.POST("/users/:email/toggle-status", h.ToggleStatus)
}

func (h *Handler) Register(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		// Duplicates are a plain input rejection, same as missing fields
		// or a bad invite code.
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, err := h.issuer.Issue(user.Identity())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message": "registration successful",
		"token":   token,
		"user":    user,
	})
}

func (h *Handler) Login(c echo.Context) error {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if in.Email == "" || in.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	user, err := h.svc.Authenticate(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	token, err := h.issuer.Issue(user.Identity())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "login successful",
		"token":   token,
		"user":    user,
	})
}

func (h *Handler) Me(c echo.Context) error {
	id := auth.IdentityFromContext(c.Request().Context())

	user, err := h.svc.Get(c.Request().Context(), id.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load user")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"user": user})
}

func (h *Handler) UpdateMe(c echo.Context) error {
	id := auth.IdentityFromContext(c.Request().Context())

	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	// Callers cannot change their own role.
	in.Role = nil

	user, err := h.svc.Update(c.Request().Context(), id.Email, in)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"user": user})
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) ListUsers(c echo.Context) error {
	p := pagination.FromContext(c)
	users, total, err := h.svc.List(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(users, total, p.Limit, p.Offset))
}

func (h *Handler) GetUser(c echo.Context) error {
	user, err := h.svc.Get(c.Request().Context(), c.Param("email"))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) UpdateUser(c echo.Context) error {
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.svc.Update(c.Request().Context(), c.Param("email"), in)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		case errors.Is(err, ErrInvalidRole):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteUser(c echo.Context) error {
	id := auth.IdentityFromContext(c.Request().Context())
	email := c.Param("email")
	if email == id.Email {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot delete your own account")
	}

	if err := h.svc.Delete(c.Request().Context(), email); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ToggleStatus(c echo.Context) error {
	user, err := h.svc.ToggleStatus(c.Request().Context(), c.Param("email"))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, user)
}
