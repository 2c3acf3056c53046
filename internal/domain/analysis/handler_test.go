package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/dentaray/dentaray/internal/platform/auth"
	"github.com/dentaray/dentaray/internal/platform/detect"
)

func newTestHandler(det *mockDetector) (*Handler, *Service, *echo.Echo) {
	svc, _, _ := newTestService(det)
	return NewHandler(svc), svc, echo.New()
}

func withIdentity(c echo.Context, id *auth.Identity) {
	req := c.Request()
	c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), id)))
}

func multipartUpload(t *testing.T, fileName string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("fake image bytes")); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func TestHandler_Analyze(t *testing.T) {
	det := &mockDetector{
		findings: []detect.Finding{cariesFinding()},
		dims:     &detect.ImageSize{Width: 800, Height: 600},
	}
	h, _, e := newTestHandler(det)

	body, contentType := multipartUpload(t, "xray.png", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	withIdentity(c, doctorCaller)

	if err := h.Analyze(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Analysis Analysis `json:"analysis"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Analysis.Status != StatusAnalyzed {
		t.Errorf("expected analyzed status, got %s", resp.Analysis.Status)
	}
	if resp.Analysis.TotalFindings != 1 {
		t.Errorf("expected one finding, got %d", resp.Analysis.TotalFindings)
	}
}

func TestHandler_Analyze_MissingFile(t *testing.T) {
	h, _, e := newTestHandler(&mockDetector{})

	body, contentType := multipartUpload(t, "", map[string]string{"note": "x"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	c := e.NewContext(req, httptest.NewRecorder())
	withIdentity(c, doctorCaller)

	err := h.Analyze(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without file, got %v", err)
	}
}

func TestHandler_Analyze_DetectorDown(t *testing.T) {
	h, _, e := newTestHandler(&mockDetector{err: detect.ErrUnavailable})

	body, contentType := multipartUpload(t, "xray.png", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	c := e.NewContext(req, httptest.NewRecorder())
	withIdentity(c, doctorCaller)

	err := h.Analyze(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 when detection fails, got %v", err)
	}
}

func TestHandler_SendXray_And_CompleteReferral(t *testing.T) {
	det := &mockDetector{findings: []detect.Finding{cariesFinding()}}
	h, _, e := newTestHandler(det)

	body, contentType := multipartUpload(t, "xray.png", map[string]string{
		"organization_id": "org-1",
		"doctor_email":    doctorCaller.Email,
		"patient_note":    "upper left pain",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patient/send-xray", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	withIdentity(c, patientCaller)

	if err := h.SendXray(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var sent struct {
		AnalysisID string `json:"analysis_id"`
		Status     string `json:"status"`
	}
	json.Unmarshal(rec.Body.Bytes(), &sent)
	if sent.Status != StatusPending {
		t.Errorf("expected pending status, got %s", sent.Status)
	}

	// Doctor completes the referral through the analyze endpoint.
	body, contentType = multipartUpload(t, "xray.png", map[string]string{"analysis_id": sent.AnalysisID})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	withIdentity(c, doctorCaller)

	if err := h.Analyze(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// A repeat completion reports the conflict.
	body, contentType = multipartUpload(t, "xray.png", map[string]string{"analysis_id": sent.AnalysisID})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	c = e.NewContext(req, httptest.NewRecorder())
	withIdentity(c, doctorCaller)

	err := h.Analyze(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Errorf("expected 409 on repeat completion, got %v", err)
	}
}

func TestHandler_Analyze_UnknownReferralFallsBack(t *testing.T) {
	det := &mockDetector{findings: []detect.Finding{cariesFinding()}}
	h, svc, e := newTestHandler(det)

	body, contentType := multipartUpload(t, "xray.png", map[string]string{
		"analysis_id": "analysis_20250101_000000_deadbeef",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	withIdentity(c, doctorCaller)

	if err := h.Analyze(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Analysis Analysis `json:"analysis"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Analysis.Status != StatusAnalyzed {
		t.Errorf("expected fresh analyzed record, got status %s", resp.Analysis.Status)
	}
	if resp.Analysis.ID == "analysis_20250101_000000_deadbeef" {
		t.Error("expected a new analysis id, not the unknown referral id")
	}
	if got, err := svc.Get(context.Background(), doctorCaller, resp.Analysis.ID); err != nil || got.TotalFindings != 1 {
		t.Errorf("expected fresh record persisted with results, got %v, %v", got, err)
	}
}

func TestHandler_SendXray_MissingTarget(t *testing.T) {
	h, _, e := newTestHandler(&mockDetector{})

	body, contentType := multipartUpload(t, "xray.png", map[string]string{"doctor_email": doctorCaller.Email})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patient/send-xray", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	c := e.NewContext(req, httptest.NewRecorder())
	withIdentity(c, patientCaller)

	err := h.SendXray(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without organization, got %v", err)
	}
}

func TestHandler_Get_Forbidden(t *testing.T) {
	h, svc, e := newTestHandler(&mockDetector{})

	a, err := svc.SubmitReferral(context.Background(), patientCaller, "xray.png", strings.NewReader("img"), ReferralInput{
		OrganizationID: "org-1", DoctorEmail: doctorCaller.Email,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(a.ID)
	withIdentity(c, &auth.Identity{Email: "stranger@clinic.test", Role: auth.RolePatient})

	gotErr := h.Get(c)
	httpErr, ok := gotErr.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", gotErr)
	}
}

func TestHandler_Get_NotFound(t *testing.T) {
	h, _, e := newTestHandler(&mockDetector{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("analysis_20250101_000000_deadbeef")
	withIdentity(c, adminCaller)

	err := h.Get(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_History_EmptyIsArray(t *testing.T) {
	h, _, e := newTestHandler(&mockDetector{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	withIdentity(c, patientCaller)

	if err := h.History(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"history":[]`) {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}
