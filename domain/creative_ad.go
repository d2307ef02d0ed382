package domain

import (
	"fmt"
	"strings"

	"gorm.io/datatypes"
)

// Ad unit types recognized by the serving pipeline.
const (
	AdTypeNotification    = "notification"
	AdTypeInlineContent   = "inline_content"
	AdTypeNewTabPage      = "new_tab_page"
	AdTypePromotedContent = "promoted_content"
	AdTypeSearchResult    = "search_result"
)

const maxDaypartMinute = 1439

// Daypart restricts serving to a day-of-week + time-of-day window.
// DaysOfWeek is a digit string, "0" = Sunday .. "6" = Saturday, e.g. "12345".
type Daypart struct {
	DaysOfWeek  string `json:"days_of_week"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
}

// Contains reports whether the given day-of-week (0=Sunday) and
// minute-of-day fall inside this window.
func (d Daypart) Contains(dow int, minute int) bool {
	if !strings.ContainsRune(d.DaysOfWeek, rune('0'+dow)) {
		return false
	}
	return minute >= d.StartMinute && minute <= d.EndMinute
}

type CreativeAd struct {
	CreativeInstanceID string `gorm:"column:creative_instance_id;primaryKey" json:"creative_instance_id"`
	CreativeSetID      string `gorm:"column:creative_set_id;not null;index" json:"creative_set_id"`
	CampaignID         string `gorm:"column:campaign_id;not null;index" json:"campaign_id"`
	AdvertiserID       string `gorm:"column:advertiser_id;not null;index" json:"advertiser_id"`

	AdType  string `gorm:"column:ad_type;not null;index" json:"ad_type"`
	Segment string `gorm:"column:segment;not null;index" json:"segment"`

	Title     string `gorm:"column:title" json:"title"`
	Body      string `gorm:"column:body" json:"body"`
	TargetURL string `gorm:"column:target_url" json:"target_url"`

	// Empty GeoTargets means unrestricted.
	GeoTargets datatypes.JSONSlice[string] `gorm:"column:geo_targets;type:jsonb" json:"geo_targets"`

	// Empty Dayparts means all week, all day.
	Dayparts datatypes.JSONSlice[Daypart] `gorm:"column:dayparts;type:jsonb" json:"dayparts"`

	// Caps are rolling served-event limits; 0 = unlimited.
	PerDay   uint `gorm:"column:per_day" json:"per_day"`
	PerWeek  uint `gorm:"column:per_week" json:"per_week"`
	TotalMax uint `gorm:"column:total_max" json:"total_max"`

	// Lower integer = higher priority.
	Priority int `gorm:"column:priority;not null" json:"priority"`

	// Pacing target ratio in [0, 1]; the probability a pacing roll admits the ad.
	PTR float64 `gorm:"column:ptr;not null" json:"ptr"`

	SplitTestGroup string `gorm:"column:split_test_group" json:"split_test_group"`
}

func (CreativeAd) TableName() string {
	return "creative_ads"
}

// Validate rejects malformed catalog entries. A degenerate daypart window
// (start_minute >= end_minute) is a configuration error, not an always-true
// or always-false window.
func (ad CreativeAd) Validate() error {
	if ad.CreativeInstanceID == "" {
		return fmt.Errorf("creative_instance_id is required")
	}
	if ad.CreativeSetID == "" || ad.CampaignID == "" || ad.AdvertiserID == "" {
		return fmt.Errorf("creative %s: creative_set_id, campaign_id and advertiser_id are required", ad.CreativeInstanceID)
	}
	if ad.Segment == "" {
		return fmt.Errorf("creative %s: segment is required", ad.CreativeInstanceID)
	}
	if ad.Priority <= 0 {
		return fmt.Errorf("creative %s: priority must be positive, got %d", ad.CreativeInstanceID, ad.Priority)
	}
	if ad.PTR < 0 || ad.PTR > 1 {
		return fmt.Errorf("creative %s: ptr must be in [0, 1], got %v", ad.CreativeInstanceID, ad.PTR)
	}
	for _, dp := range ad.Dayparts {
		if dp.StartMinute < 0 || dp.EndMinute > maxDaypartMinute {
			return fmt.Errorf("creative %s: daypart minutes must be in [0, %d]", ad.CreativeInstanceID, maxDaypartMinute)
		}
		if dp.StartMinute >= dp.EndMinute {
			return fmt.Errorf("creative %s: daypart start_minute %d must be before end_minute %d",
				ad.CreativeInstanceID, dp.StartMinute, dp.EndMinute)
		}
		for _, r := range dp.DaysOfWeek {
			if r < '0' || r > '6' {
				return fmt.Errorf("creative %s: invalid day-of-week %q", ad.CreativeInstanceID, string(r))
			}
		}
	}
	return nil
}
