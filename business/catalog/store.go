package catalog

import (
	"sync/atomic"
	"time"

	"adserve/domain"
	"adserve/pkg/logger"
)

// Snapshot is one immutable catalog generation. Pipelines keep whichever
// snapshot they fetched for the whole attempt; a catalog replace swaps the
// store's pointer and is never visible mid-attempt.
type Snapshot struct {
	version     int
	lastUpdated time.Time

	// keyed ad_type -> segment -> ads
	bySegment map[string]map[string][]domain.CreativeAd
}

// BuildSnapshot indexes a full catalog by ad type and segment. Malformed
// entries are skipped with a diagnostic rather than failing the whole
// catalog.
func BuildSnapshot(version int, lastUpdated time.Time, ads []domain.CreativeAd) *Snapshot {
	snap := &Snapshot{
		version:     version,
		lastUpdated: lastUpdated,
		bySegment:   make(map[string]map[string][]domain.CreativeAd),
	}

	for _, ad := range ads {
		if err := ad.Validate(); err != nil {
			logger.Warn("skipping invalid creative ad", "error", err)
			invalidCreativesTotal.Inc()
			continue
		}

		perType, ok := snap.bySegment[ad.AdType]
		if !ok {
			perType = make(map[string][]domain.CreativeAd)
			snap.bySegment[ad.AdType] = perType
		}
		perType[ad.Segment] = append(perType[ad.Segment], ad)
	}

	return snap
}

func (s *Snapshot) Version() int {
	return s.version
}

func (s *Snapshot) LastUpdated() time.Time {
	return s.lastUpdated
}

// AdsForSegment returns the creatives targeting a segment for the given ad
// unit type. The returned slice must be treated as read-only.
func (s *Snapshot) AdsForSegment(adType, segment string) []domain.CreativeAd {
	perType, ok := s.bySegment[adType]
	if !ok {
		return nil
	}
	return perType[segment]
}

// AdByCreativeInstanceID looks up a creative across all ad types and
// segments. Used to enrich inbound events with campaign/advertiser ids.
func (s *Snapshot) AdByCreativeInstanceID(creativeInstanceID string) (domain.CreativeAd, bool) {
	for _, perType := range s.bySegment {
		for _, ads := range perType {
			for _, ad := range ads {
				if ad.CreativeInstanceID == creativeInstanceID {
					return ad, true
				}
			}
		}
	}
	return domain.CreativeAd{}, false
}

// Store hands out the current catalog snapshot. Replacement is an atomic
// pointer swap; there is no partial mutation.
type Store struct {
	snap atomic.Pointer[Snapshot]
}

func NewStore() *Store {
	return &Store{}
}

// Replace installs a new catalog generation.
func (s *Store) Replace(snap *Snapshot) {
	s.snap.Store(snap)
	if snap != nil {
		logger.Info("catalog replaced", "version", snap.version, "last_updated", snap.lastUpdated)
	}
}

// Snapshot returns the current catalog generation, or nil when no catalog
// has been loaded yet.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}
