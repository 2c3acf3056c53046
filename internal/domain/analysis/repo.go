package analysis

import (
	"context"
	"time"

	"github.com/dentaray/dentaray/internal/platform/detect"
)

// Results is the detection output written onto a record.
type Results struct {
	Findings        []detect.Finding
	TotalFindings   int
	ImageDimensions *detect.ImageSize
}

// Repository defines persistence for analysis records. All list methods
// return newest-first.
type Repository interface {
	Create(ctx context.Context, a *Analysis) error
	GetByID(ctx context.Context, id string) (*Analysis, error)
	// MarkAnalyzed flips a pending record to analyzed and attaches results.
	// It returns ErrAnalysisNotFound when no record exists and
	// ErrAnalysisConflict when the record exists but is no longer pending.
	MarkAnalyzed(ctx context.Context, id string, res Results, analyzedBy string, analyzedAt time.Time) (*Analysis, error)
	Delete(ctx context.Context, id string) error
	ListForUser(ctx context.Context, email string) ([]*Analysis, error)
	ListAll(ctx context.Context) ([]*Analysis, error)
	ListPending(ctx context.Context) ([]*Analysis, error)
	ListPendingForDoctor(ctx context.Context, doctorEmail string) ([]*Analysis, error)
}
