package exclusion

import (
	"time"

	"adserve/business/history"
	"adserve/domain"
)

const (
	dayWindow  = 24 * time.Hour
	weekWindow = 7 * 24 * time.Hour
)

// ---- frequency caps per creative ----

type totalCapRule struct{ ectx Context }

func (*totalCapRule) Name() string                         { return "total_cap" }
func (*totalCapRule) CacheKey(ad domain.CreativeAd) string { return ad.CreativeInstanceID }
func (r *totalCapRule) ShouldInclude(ad domain.CreativeAd) bool {
	if ad.TotalMax == 0 {
		return true
	}
	// the total cap has no rolling window, so it reads the lifetime count
	return r.ectx.Index.TotalServedForCreative(ad.CreativeInstanceID) < int(ad.TotalMax)
}

type perDayCapRule struct{ ectx Context }

func (*perDayCapRule) Name() string                         { return "per_day_cap" }
func (*perDayCapRule) CacheKey(ad domain.CreativeAd) string { return ad.CreativeInstanceID }
func (r *perDayCapRule) ShouldInclude(ad domain.CreativeAd) bool {
	if ad.PerDay == 0 {
		return true
	}
	served := r.ectx.Index.ServedForCreative(ad.CreativeInstanceID)
	return history.RespectsRollingConstraint(served, dayWindow, int(ad.PerDay), r.ectx.Now)
}

type perWeekCapRule struct{ ectx Context }

func (*perWeekCapRule) Name() string                         { return "per_week_cap" }
func (*perWeekCapRule) CacheKey(ad domain.CreativeAd) string { return ad.CreativeInstanceID }
func (r *perWeekCapRule) ShouldInclude(ad domain.CreativeAd) bool {
	if ad.PerWeek == 0 {
		return true
	}
	served := r.ectx.Index.ServedForCreative(ad.CreativeInstanceID)
	return history.RespectsRollingConstraint(served, weekWindow, int(ad.PerWeek), r.ectx.Now)
}

// ---- daily caps above the creative level ----

type campaignDailyCapRule struct{ ectx Context }

func (*campaignDailyCapRule) Name() string                         { return "campaign_daily_cap" }
func (*campaignDailyCapRule) CacheKey(ad domain.CreativeAd) string { return ad.CampaignID }
func (r *campaignDailyCapRule) ShouldInclude(ad domain.CreativeAd) bool {
	cap := r.ectx.Config.CampaignDailyCap
	if cap <= 0 {
		return true
	}
	served := r.ectx.Index.ServedForCampaign(ad.CampaignID)
	return history.RespectsRollingConstraint(served, dayWindow, cap, r.ectx.Now)
}

type advertiserDailyCapRule struct{ ectx Context }

func (*advertiserDailyCapRule) Name() string                         { return "advertiser_daily_cap" }
func (*advertiserDailyCapRule) CacheKey(ad domain.CreativeAd) string { return ad.AdvertiserID }
func (r *advertiserDailyCapRule) ShouldInclude(ad domain.CreativeAd) bool {
	cap := r.ectx.Config.AdvertiserDailyCap
	if cap <= 0 {
		return true
	}
	served := r.ectx.Index.ServedForAdvertiser(ad.AdvertiserID)
	return history.RespectsRollingConstraint(served, dayWindow, cap, r.ectx.Now)
}

// ---- interaction lookbacks ----

// dismissedRule excludes the whole campaign for the lookback window after
// the user dismissed one of its ads.
type dismissedRule struct{ ectx Context }

func (*dismissedRule) Name() string                         { return "dismissed_within_window" }
func (*dismissedRule) CacheKey(ad domain.CreativeAd) string { return ad.CampaignID }
func (r *dismissedRule) ShouldInclude(ad domain.CreativeAd) bool {
	lookback := r.ectx.Config.DismissedLookback
	if lookback <= 0 {
		return true
	}
	dismissed := r.ectx.Index.ForCampaignByType(domain.ConfirmationDismissed, ad.CampaignID)
	return !history.HasEventWithin(dismissed, lookback, r.ectx.Now)
}

type transferredRule struct{ ectx Context }

func (*transferredRule) Name() string                         { return "transferred_within_window" }
func (*transferredRule) CacheKey(ad domain.CreativeAd) string { return ad.CreativeInstanceID }
func (r *transferredRule) ShouldInclude(ad domain.CreativeAd) bool {
	lookback := r.ectx.Config.TransferredLookback
	if lookback <= 0 {
		return true
	}
	transferred := r.ectx.Index.ForCreativeByType(domain.ConfirmationTransferred, ad.CreativeInstanceID)
	return !history.HasEventWithin(transferred, lookback, r.ectx.Now)
}

type convertedWithinWindowRule struct{ ectx Context }

func (*convertedWithinWindowRule) Name() string                         { return "converted_within_window" }
func (*convertedWithinWindowRule) CacheKey(ad domain.CreativeAd) string { return ad.CreativeInstanceID }
func (r *convertedWithinWindowRule) ShouldInclude(ad domain.CreativeAd) bool {
	lookback := r.ectx.Config.ConversionLookback
	if lookback <= 0 {
		return true
	}
	conversions := r.ectx.Index.ForCreativeByType(domain.ConfirmationConversion, ad.CreativeInstanceID)
	return !history.HasEventWithin(conversions, lookback, r.ectx.Now)
}

// conversionRule excludes any creative the user already converted on, ever.
type conversionRule struct{ ectx Context }

func (*conversionRule) Name() string                         { return "already_converted" }
func (*conversionRule) CacheKey(ad domain.CreativeAd) string { return ad.CreativeInstanceID }
func (r *conversionRule) ShouldInclude(ad domain.CreativeAd) bool {
	if !r.ectx.Config.ConversionExclusionEnabled {
		return true
	}
	return !r.ectx.Index.HasConversionForCreative(ad.CreativeInstanceID)
}

// ---- targeting ----

type daypartRule struct{ ectx Context }

func (*daypartRule) Name() string                         { return "daypart" }
func (*daypartRule) CacheKey(ad domain.CreativeAd) string { return ad.CreativeInstanceID }
func (r *daypartRule) ShouldInclude(ad domain.CreativeAd) bool {
	if len(ad.Dayparts) == 0 {
		return true
	}

	now := r.ectx.Now
	dow := int(now.Weekday())
	minute := now.Hour()*60 + now.Minute()

	for _, dp := range ad.Dayparts {
		if dp.Contains(dow, minute) {
			return true
		}
	}
	return false
}

type subdivisionRule struct{ ectx Context }

func (*subdivisionRule) Name() string                         { return "subdivision" }
func (*subdivisionRule) CacheKey(ad domain.CreativeAd) string { return ad.CreativeInstanceID }
func (r *subdivisionRule) ShouldInclude(ad domain.CreativeAd) bool {
	if !r.ectx.SubdivisionSupported {
		return true
	}
	if len(ad.GeoTargets) == 0 {
		return true
	}
	for _, target := range ad.GeoTargets {
		if target == r.ectx.SubdivisionCode {
			return true
		}
	}
	return false
}

type antiTargetingRule struct{ ectx Context }

func (*antiTargetingRule) Name() string                         { return "anti_targeting" }
func (*antiTargetingRule) CacheKey(ad domain.CreativeAd) string { return ad.Segment }
func (r *antiTargetingRule) ShouldInclude(ad domain.CreativeAd) bool {
	if !r.ectx.Config.AntiTargetingEnabled {
		return true
	}
	for _, segments := range r.ectx.AntiTargetedSegments {
		for _, seg := range segments {
			if seg == ad.Segment {
				return false
			}
		}
	}
	return true
}

type splitTestRule struct{ ectx Context }

func (*splitTestRule) Name() string                         { return "split_test" }
func (*splitTestRule) CacheKey(ad domain.CreativeAd) string { return ad.CreativeInstanceID }
func (r *splitTestRule) ShouldInclude(ad domain.CreativeAd) bool {
	if ad.SplitTestGroup == "" {
		return true
	}
	return ad.SplitTestGroup == r.ectx.SplitTestGroup
}

type optOutRule struct{ ectx Context }

func (*optOutRule) Name() string                         { return "marked_to_no_longer_receive" }
func (*optOutRule) CacheKey(ad domain.CreativeAd) string { return ad.Segment }
func (r *optOutRule) ShouldInclude(ad domain.CreativeAd) bool {
	if len(r.ectx.OptedOutSegments) == 0 {
		return true
	}
	_, optedOut := r.ectx.OptedOutSegments[ad.Segment]
	return !optedOut
}
