package prediction

import (
	"strings"
	"time"

	"adserve/business/history"
	"adserve/domain"
)

// neverSeenHours is the sentinel recency for creatives and advertisers with
// no served history.
const neverSeenHours = 24.0 * 365.0

// Inputs is the named feature vector computed per candidate. Boolean
// features are encoded 1.0/0.0.
type Inputs struct {
	MatchesIntentChild    float64
	MatchesIntentParent   float64
	MatchesInterestChild  float64
	MatchesInterestParent float64
	MatchesLatentChild    float64
	MatchesLatentParent   float64

	AdLastSeenHours         float64
	AdvertiserLastSeenHours float64

	// Inverse-normalized priority: lower raw priority integer scores higher.
	Priority float64

	BanditArmValue      float64
	EmbeddingSimilarity float64
}

// ParentSegment returns the parent category of a taxonomy key. Keys use the
// "parent-child" convention; a key with no separator is its own parent.
func ParentSegment(segment string) string {
	if idx := strings.Index(segment, "-"); idx > 0 {
		return segment[:idx]
	}
	return segment
}

func matchesChildSegment(adSegment string, segments []string) bool {
	for _, seg := range segments {
		if seg == adSegment {
			return true
		}
	}
	return false
}

func matchesParentSegment(adSegment string, segments []string) bool {
	parent := ParentSegment(adSegment)
	for _, seg := range segments {
		if ParentSegment(seg) == parent {
			return true
		}
	}
	return false
}

func boolFeature(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

func hoursSince(t time.Time, ok bool, now time.Time) float64 {
	if !ok {
		return neverSeenHours
	}
	return now.Sub(t).Hours()
}

// BuildInputs assembles the feature vector for one candidate from the user
// model, the event-history index and the candidate's bandit arm value.
func BuildInputs(
	ad domain.CreativeAd,
	user domain.UserModel,
	ix *history.Index,
	armValue float64,
	embeddingSimilarity float64,
	now time.Time,
) Inputs {
	adLastSeen, adSeen := ix.LastServedForCreative(ad.CreativeInstanceID)
	advLastSeen, advSeen := ix.LastServedForAdvertiser(ad.AdvertiserID)

	return Inputs{
		MatchesIntentChild:    boolFeature(matchesChildSegment(ad.Segment, user.IntentSegments)),
		MatchesIntentParent:   boolFeature(matchesParentSegment(ad.Segment, user.IntentSegments)),
		MatchesInterestChild:  boolFeature(matchesChildSegment(ad.Segment, user.InterestSegments)),
		MatchesInterestParent: boolFeature(matchesParentSegment(ad.Segment, user.InterestSegments)),
		MatchesLatentChild:    boolFeature(matchesChildSegment(ad.Segment, user.LatentInterestSegments)),
		MatchesLatentParent:   boolFeature(matchesParentSegment(ad.Segment, user.LatentInterestSegments)),

		AdLastSeenHours:         hoursSince(adLastSeen, adSeen, now),
		AdvertiserLastSeenHours: hoursSince(advLastSeen, advSeen, now),

		Priority: 1.0 / float64(ad.Priority),

		BanditArmValue:      armValue,
		EmbeddingSimilarity: embeddingSimilarity,
	}
}
