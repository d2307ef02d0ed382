package serving

import (
	"context"
	"time"

	"adserve/domain"
)

// ---- Repository / collaborator interfaces ----

// CatalogRepository persists whole catalog generations.
type CatalogRepository interface {
	Replace(ctx context.Context, version int, lastUpdated time.Time, ads []domain.CreativeAd) error
	Load(ctx context.Context) (version int, lastUpdated time.Time, ads []domain.CreativeAd, err error)
}

// EventRepository is the append-only ad-event history store. GetEventsSince
// returns events time-ordered, most recent last. GetServedCounts and
// GetConvertedCreatives aggregate over the whole history with no time bound.
type EventRepository interface {
	SaveEvent(ctx context.Context, event domain.AdEvent) error
	GetEventsSince(ctx context.Context, since time.Time) ([]domain.AdEvent, error)
	GetServedCounts(ctx context.Context) (map[string]int, error)
	GetConvertedCreatives(ctx context.Context) (map[string]struct{}, error)
	GetUnreconciledServed(ctx context.Context, before time.Time) ([]domain.AdEvent, error)
	HasInteractionAfter(ctx context.Context, creativeInstanceID string, after time.Time) (bool, error)
	MarkReconciled(ctx context.Context, ids []uint) error
}

// AntiTargetingRepository maps recently visited sites to segments the user
// should not receive ads for.
type AntiTargetingRepository interface {
	GetSegmentsForSites(ctx context.Context, sites []string) (map[string][]string, error)
}

// EmbeddingRepository supplies per-segment text-embedding centroids.
type EmbeddingRepository interface {
	GetCentroid(ctx context.Context, segment string) ([]float32, bool, error)
}

// SubdivisionResolver resolves the user's geographic subdivision code.
// supported=false disables subdivision targeting entirely.
type SubdivisionResolver interface {
	Subdivision(ctx context.Context) (code string, supported bool, err error)
}

// IssuerStatus reports whether the confirmation-token issuers are currently
// valid; token handling itself lives outside this core.
type IssuerStatus interface {
	IssuersValid(ctx context.Context) bool
}

// ---- static implementations used by wiring and tests ----

type StaticSubdivisionResolver struct {
	Code string
}

func (r StaticSubdivisionResolver) Subdivision(ctx context.Context) (string, bool, error) {
	return r.Code, r.Code != "", nil
}

type StaticIssuerStatus struct {
	Valid bool
}

func (s StaticIssuerStatus) IssuersValid(ctx context.Context) bool {
	return s.Valid
}
