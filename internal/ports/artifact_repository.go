package ports

import (
	"context"

	"github.com/shopspring/decimal"

	domain "claimflow/internal/domain/assessment"
)

type Estimate struct {
	EstimateID   string
	AssessmentID string
	Status       string
	Total        decimal.Decimal
}

// ArtifactRepository creates per-assessment child records. Every method is
// idempotent: repeated calls return the existing rows.
type ArtifactRepository interface {
	EnsureVehicleValues(ctx context.Context, assessmentID string, now string) (id string, created bool, err error)
	EnsureDamage(ctx context.Context, assessmentID string, now string) (id string, created bool, err error)
	EnsureEstimate(ctx context.Context, assessmentID string, now string) (id string, created bool, err error)
	EnsurePreIncidentEstimate(ctx context.Context, assessmentID string, now string) (id string, created bool, err error)
	// UpsertTyres returns every tyre id of the assessment and the positions
	// this call inserted.
	UpsertTyres(ctx context.Context, assessmentID string, positions []domain.TyrePosition, now string) (ids map[domain.TyrePosition]string, created []domain.TyrePosition, err error)
	UpsertPhotoAlbums(ctx context.Context, assessmentID string, categories []domain.PhotoCategory, now string) (ids map[domain.PhotoCategory]string, created []domain.PhotoCategory, err error)
	GetArtifacts(ctx context.Context, assessmentID string) (domain.ArtifactSet, error)
	GetEstimate(ctx context.Context, estimateID string) (Estimate, error)
}
