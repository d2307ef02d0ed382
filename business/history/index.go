package history

import (
	"time"

	"adserve/domain"
)

// Index is an immutable per-attempt view over a snapshot of the event
// history, bucketed the way exclusion rules and scoring query it. The
// snapshot is taken once at candidate-fetch time; the index never re-reads
// the store mid-pipeline.
type Index struct {
	servedByCreative   map[string][]time.Time
	servedByCampaign   map[string][]time.Time
	servedByAdvertiser map[string][]time.Time

	byTypeAndCreative map[string][]time.Time
	byTypeAndCampaign map[string][]time.Time

	allServed []time.Time

	lifetime LifetimeStats
}

// LifetimeStats carries all-time per-creative aggregates computed by the
// event store. The event snapshot the index is built from is bounded, so
// rules without a rolling window read these instead of the snapshot buckets.
type LifetimeStats struct {
	ServedCounts       map[string]int
	ConvertedCreatives map[string]struct{}
}

// NewIndex buckets events by creative, campaign, advertiser and confirmation
// type. Events must be time-ordered, most recent last; the bucket slices
// preserve that order.
func NewIndex(events []domain.AdEvent) *Index {
	ix := &Index{
		servedByCreative:   make(map[string][]time.Time),
		servedByCampaign:   make(map[string][]time.Time),
		servedByAdvertiser: make(map[string][]time.Time),
		byTypeAndCreative:  make(map[string][]time.Time),
		byTypeAndCampaign:  make(map[string][]time.Time),
	}

	for _, ev := range events {
		ix.byTypeAndCreative[ev.ConfirmationType+"|"+ev.CreativeInstanceID] = append(
			ix.byTypeAndCreative[ev.ConfirmationType+"|"+ev.CreativeInstanceID], ev.CreatedAt)
		ix.byTypeAndCampaign[ev.ConfirmationType+"|"+ev.CampaignID] = append(
			ix.byTypeAndCampaign[ev.ConfirmationType+"|"+ev.CampaignID], ev.CreatedAt)

		if ev.ConfirmationType != domain.ConfirmationServed {
			continue
		}

		ix.allServed = append(ix.allServed, ev.CreatedAt)
		ix.servedByCreative[ev.CreativeInstanceID] = append(ix.servedByCreative[ev.CreativeInstanceID], ev.CreatedAt)
		ix.servedByCampaign[ev.CampaignID] = append(ix.servedByCampaign[ev.CampaignID], ev.CreatedAt)
		ix.servedByAdvertiser[ev.AdvertiserID] = append(ix.servedByAdvertiser[ev.AdvertiserID], ev.CreatedAt)
	}

	return ix
}

// AttachLifetimeStats overlays all-time aggregates onto the index. Slices
// built from the bounded snapshot are untouched.
func (ix *Index) AttachLifetimeStats(stats LifetimeStats) {
	ix.lifetime = stats
}

func (ix *Index) AllServed() []time.Time {
	return ix.allServed
}

// TotalServedForCreative returns the all-time served count for the creative,
// falling back to the snapshot bucket when no lifetime stats are attached.
func (ix *Index) TotalServedForCreative(creativeInstanceID string) int {
	if ix.lifetime.ServedCounts != nil {
		return ix.lifetime.ServedCounts[creativeInstanceID]
	}
	return len(ix.servedByCreative[creativeInstanceID])
}

// HasConversionForCreative reports whether the user ever converted on the
// creative, falling back to the snapshot bucket when no lifetime stats are
// attached.
func (ix *Index) HasConversionForCreative(creativeInstanceID string) bool {
	if ix.lifetime.ConvertedCreatives != nil {
		_, ok := ix.lifetime.ConvertedCreatives[creativeInstanceID]
		return ok
	}
	return len(ix.byTypeAndCreative[domain.ConfirmationConversion+"|"+creativeInstanceID]) > 0
}

func (ix *Index) ServedForCreative(creativeInstanceID string) []time.Time {
	return ix.servedByCreative[creativeInstanceID]
}

func (ix *Index) ServedForCampaign(campaignID string) []time.Time {
	return ix.servedByCampaign[campaignID]
}

func (ix *Index) ServedForAdvertiser(advertiserID string) []time.Time {
	return ix.servedByAdvertiser[advertiserID]
}

// ForCreativeByType returns timestamps of events of the given confirmation
// type for one creative.
func (ix *Index) ForCreativeByType(confirmationType, creativeInstanceID string) []time.Time {
	return ix.byTypeAndCreative[confirmationType+"|"+creativeInstanceID]
}

// ForCampaignByType returns timestamps of events of the given confirmation
// type for one campaign.
func (ix *Index) ForCampaignByType(confirmationType, campaignID string) []time.Time {
	return ix.byTypeAndCampaign[confirmationType+"|"+campaignID]
}

// LastServedForCreative returns the most recent served timestamp for the
// creative, if any.
func (ix *Index) LastServedForCreative(creativeInstanceID string) (time.Time, bool) {
	times := ix.servedByCreative[creativeInstanceID]
	if len(times) == 0 {
		return time.Time{}, false
	}
	return times[len(times)-1], true
}

// LastServedForAdvertiser returns the most recent served timestamp for the
// advertiser, if any.
func (ix *Index) LastServedForAdvertiser(advertiserID string) (time.Time, bool) {
	times := ix.servedByAdvertiser[advertiserID]
	if len(times) == 0 {
		return time.Time{}, false
	}
	return times[len(times)-1], true
}
