package analysis

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dentaray/dentaray/internal/platform/auth"
	"github.com/dentaray/dentaray/internal/platform/imagestore"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the analysis lifecycle routes. Direct analysis and
// the pending queue are clinical-staff operations; referral submission is
// the patient side of the same flow.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/history", h.History)
	api.GET("/analysis/:id", h.Get)
	api.DELETE("/analysis/:id", h.Delete)

	staffGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor))
	staffGroup.POST("/analyze", h.Analyze)
	staffGroup.GET("/doctor/pending-xrays", h.PendingXrays)

	patientGroup := api.Group("", auth.RequireRole(auth.RolePatient))
	patientGroup.POST("/patient/send-xray", h.SendXray)
}

func formImage(c echo.Context) (*multipart.FileHeader, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if fh.Filename == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "file name is empty")
	}
	return fh, nil
}

// Analyze handles a direct upload. When an analysis_id form field is present
// the upload completes that pending referral instead of creating a record.
func (h *Handler) Analyze(c echo.Context) error {
	caller := auth.IdentityFromContext(c.Request().Context())

	fh, err := formImage(c)
	if err != nil {
		return err
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file could not be read")
	}
	defer src.Close()

	var a *Analysis
	if analysisID := c.FormValue("analysis_id"); analysisID != "" {
		a, err = h.svc.CompleteReferral(c.Request().Context(), caller, analysisID, fh.Filename, src)
		if errors.Is(err, ErrAnalysisNotFound) {
			// The referral id no longer resolves; treat the upload as a
			// fresh analysis. CompleteReferral checks the id before it
			// touches the file, so the reader is still unconsumed.
			a, err = h.svc.Analyze(c.Request().Context(), caller, fh.Filename, src)
		}
	} else {
		a, err = h.svc.Analyze(c.Request().Context(), caller, fh.Filename, src)
	}
	if err != nil {
		return analysisError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":  "analysis complete",
		"analysis": a,
	})
}

func (h *Handler) SendXray(c echo.Context) error {
	caller := auth.IdentityFromContext(c.Request().Context())

	fh, err := formImage(c)
	if err != nil {
		return err
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file could not be read")
	}
	defer src.Close()

	in := ReferralInput{
		OrganizationID: c.FormValue("organization_id"),
		DoctorEmail:    c.FormValue("doctor_email"),
		PatientNote:    c.FormValue("patient_note"),
	}
	a, err := h.svc.SubmitReferral(c.Request().Context(), caller, fh.Filename, src, in)
	if err != nil {
		return analysisError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":     "x-ray sent to doctor",
		"analysis_id": a.ID,
		"status":      a.Status,
	})
}

func (h *Handler) History(c echo.Context) error {
	caller := auth.IdentityFromContext(c.Request().Context())

	analyses, err := h.svc.History(c.Request().Context(), caller)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if analyses == nil {
		analyses = []*Analysis{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"history": analyses})
}

func (h *Handler) Get(c echo.Context) error {
	caller := auth.IdentityFromContext(c.Request().Context())

	a, err := h.svc.Get(c.Request().Context(), caller, c.Param("id"))
	if err != nil {
		return analysisError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"analysis": a})
}

func (h *Handler) Delete(c echo.Context) error {
	caller := auth.IdentityFromContext(c.Request().Context())

	if err := h.svc.Delete(c.Request().Context(), caller, c.Param("id")); err != nil {
		return analysisError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "analysis deleted"})
}

func (h *Handler) PendingXrays(c echo.Context) error {
	caller := auth.IdentityFromContext(c.Request().Context())

	analyses, err := h.svc.PendingForDoctor(c.Request().Context(), caller)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if analyses == nil {
		analyses = []*Analysis{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"pending_xrays": analyses,
		"count":         len(analyses),
	})
}

func analysisError(err error) error {
	switch {
	case errors.Is(err, ErrAnalysisNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "analysis not found")
	case errors.Is(err, ErrAnalysisConflict):
		return echo.NewHTTPError(http.StatusConflict, "analysis already completed")
	case errors.Is(err, ErrAccessDenied):
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	case errors.Is(err, ErrAnalysisFailed):
		return echo.NewHTTPError(http.StatusInternalServerError, "image could not be analyzed")
	case errors.Is(err, imagestore.ErrUnsupportedFormat),
		errors.Is(err, imagestore.ErrImageTooLarge),
		errors.Is(err, imagestore.ErrMissingFileName):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
}
