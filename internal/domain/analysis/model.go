package analysis

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dentaray/dentaray/internal/platform/detect"
)

var (
	ErrAnalysisNotFound = errors.New("analysis not found")
	// ErrAnalysisConflict is returned when a referral is submitted for
	// analysis a second time. The first set of results stands.
	ErrAnalysisConflict = errors.New("analysis already completed")
	ErrAnalysisFailed   = errors.New("image could not be analyzed")
	ErrAccessDenied     = errors.New("access denied")
)

// Analysis lifecycle states. A direct upload is born analyzed; a referral
// sits pending until the assigned doctor runs detection on it.
const (
	StatusPending  = "pending"
	StatusAnalyzed = "analyzed"
)

// Analysis is one X-ray submission and, once detection has run, its results.
type Analysis struct {
	ID             string  `json:"id"`
	UserEmail      string  `json:"user_email"`
	Timestamp      string  `json:"timestamp"`
	FileName       string  `json:"filename"`
	ImageURL       string  `json:"image_url"`
	OrganizationID *string `json:"organization_id,omitempty"`
	DoctorEmail    *string `json:"doctor_email,omitempty"`
	PatientNote    string  `json:"patient_note,omitempty"`
	Status         string  `json:"status"`

	Findings        []detect.Finding  `json:"findings"`
	TotalFindings   int               `json:"total_findings"`
	ImageDimensions *detect.ImageSize `json:"image_dimensions,omitempty"`

	AnalyzedAt *time.Time `json:"analyzed_at,omitempty"`
	AnalyzedBy *string    `json:"analyzed_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// timestampLayout matches the human-sortable timestamp embedded in IDs.
const timestampLayout = "20060102_150405"

// NewID builds an analysis id from the creation time plus a short random
// suffix so two submissions within the same second never collide.
func NewID(now time.Time) string {
	return fmt.Sprintf("analysis_%s_%s", now.Format(timestampLayout), uuid.New().String()[:8])
}
