package analysis

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dentaray/dentaray/internal/platform/auth"
	"github.com/dentaray/dentaray/internal/platform/detect"
	"github.com/dentaray/dentaray/internal/platform/imagestore"
)

// ReferralInput carries a patient's X-ray handoff to a doctor.
type ReferralInput struct {
	OrganizationID string
	DoctorEmail    string
	PatientNote    string
}

type Service struct {
	analyses Repository
	images   imagestore.Store
	detector detect.Detector
}

func NewService(analyses Repository, images imagestore.Store, detector detect.Detector) *Service {
	return &Service{analyses: analyses, images: images, detector: detector}
}

// Analyze stores an uploaded X-ray, runs detection on it and records the
// result. Nothing is persisted when detection fails.
func (s *Service) Analyze(ctx context.Context, caller *auth.Identity, fileName string, content io.Reader) (*Analysis, error) {
	stored, err := s.images.Save(ctx, fileName, content)
	if err != nil {
		return nil, err
	}

	findings, dims, err := s.detector.Analyze(ctx, s.images.Path(stored.FileName))
	if err != nil {
		_ = s.images.Remove(ctx, stored.FileName)
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	now := time.Now()
	a := &Analysis{
		ID:              NewID(now),
		UserEmail:       caller.Email,
		Timestamp:       now.Format(timestampLayout),
		FileName:        stored.FileName,
		ImageURL:        "/uploads/" + stored.FileName,
		Status:          StatusAnalyzed,
		Findings:        findings,
		TotalFindings:   len(findings),
		ImageDimensions: dims,
		AnalyzedAt:      &now,
		AnalyzedBy:      &caller.Email,
		CreatedAt:       now,
	}
	if err := s.analyses.Create(ctx, a); err != nil {
		_ = s.images.Remove(ctx, stored.FileName)
		return nil, err
	}
	return a, nil
}

// SubmitReferral records a patient-uploaded X-ray as pending review by the
// chosen doctor. Detection does not run until the doctor picks it up.
func (s *Service) SubmitReferral(ctx context.Context, caller *auth.Identity, fileName string, content io.Reader, in ReferralInput) (*Analysis, error) {
	if in.OrganizationID == "" || in.DoctorEmail == "" {
		return nil, fmt.Errorf("organization and doctor are required")
	}

	stored, err := s.images.Save(ctx, fileName, content)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	a := &Analysis{
		ID:             NewID(now),
		UserEmail:      caller.Email,
		Timestamp:      now.Format(timestampLayout),
		FileName:       stored.FileName,
		ImageURL:       "/uploads/" + stored.FileName,
		OrganizationID: &in.OrganizationID,
		DoctorEmail:    &in.DoctorEmail,
		PatientNote:    in.PatientNote,
		Status:         StatusPending,
		Findings:       []detect.Finding{},
		CreatedAt:      now,
	}
	if err := s.analyses.Create(ctx, a); err != nil {
		_ = s.images.Remove(ctx, stored.FileName)
		return nil, err
	}
	return a, nil
}

// CompleteReferral runs detection for a pending referral and attaches the
// results. A referral can be completed exactly once; a second attempt is
// reported as ErrAnalysisConflict.
func (s *Service) CompleteReferral(ctx context.Context, caller *auth.Identity, analysisID, fileName string, content io.Reader) (*Analysis, error) {
	existing, err := s.analyses.GetByID(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && (existing.DoctorEmail == nil || *existing.DoctorEmail != caller.Email) {
		return nil, ErrAccessDenied
	}

	stored, err := s.images.Save(ctx, fileName, content)
	if err != nil {
		return nil, err
	}

	findings, dims, err := s.detector.Analyze(ctx, s.images.Path(stored.FileName))
	if err != nil {
		_ = s.images.Remove(ctx, stored.FileName)
		return nil, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	res := Results{Findings: findings, TotalFindings: len(findings), ImageDimensions: dims}
	a, err := s.analyses.MarkAnalyzed(ctx, analysisID, res, caller.Email, time.Now())
	if err != nil {
		_ = s.images.Remove(ctx, stored.FileName)
		return nil, err
	}
	return a, nil
}

// Get returns one analysis. Visible to the submitter, the assigned doctor
// and admins.
func (s *Service) Get(ctx context.Context, caller *auth.Identity, id string) (*Analysis, error) {
	a, err := s.analyses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canRead(caller, a) {
		return nil, ErrAccessDenied
	}
	return a, nil
}

// Delete removes an analysis and its stored image. Only the submitter or an
// admin may delete; the assigned doctor may read but not remove a referral.
func (s *Service) Delete(ctx context.Context, caller *auth.Identity, id string) error {
	a, err := s.analyses.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !caller.Owns(a.UserEmail) {
		return ErrAccessDenied
	}
	if err := s.analyses.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.images.Remove(ctx, a.FileName)
	return nil
}

// History returns the caller's analyses newest-first. Admins see everything.
func (s *Service) History(ctx context.Context, caller *auth.Identity) ([]*Analysis, error) {
	if caller.IsAdmin() {
		return s.analyses.ListAll(ctx)
	}
	return s.analyses.ListForUser(ctx, caller.Email)
}

// PendingForDoctor returns referrals awaiting the calling doctor. Admins see
// every pending referral.
func (s *Service) PendingForDoctor(ctx context.Context, caller *auth.Identity) ([]*Analysis, error) {
	if caller.IsAdmin() {
		return s.analyses.ListPending(ctx)
	}
	return s.analyses.ListPendingForDoctor(ctx, caller.Email)
}

func (s *Service) canRead(caller *auth.Identity, a *Analysis) bool {
	if caller.Owns(a.UserEmail) {
		return true
	}
	return a.DoctorEmail != nil && *a.DoctorEmail == caller.Email
}
