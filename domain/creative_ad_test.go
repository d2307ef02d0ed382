package domain

import (
	"strings"
	"testing"

	"gorm.io/datatypes"
)

func validAd() CreativeAd {
	return CreativeAd{
		CreativeInstanceID: "c1",
		CreativeSetID:      "set1",
		CampaignID:         "camp1",
		AdvertiserID:       "adv1",
		AdType:             AdTypeNotification,
		Segment:            "food-restaurants",
		Priority:           1,
		PTR:                1.0,
	}
}

func TestValidateAcceptsWellFormedAd(t *testing.T) {
	if err := validAd().Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsMalformedAds(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreativeAd)
		wantSub string
	}{
		{"missing creative id", func(ad *CreativeAd) { ad.CreativeInstanceID = "" }, "creative_instance_id"},
		{"missing campaign id", func(ad *CreativeAd) { ad.CampaignID = "" }, "campaign_id"},
		{"missing segment", func(ad *CreativeAd) { ad.Segment = "" }, "segment"},
		{"zero priority", func(ad *CreativeAd) { ad.Priority = 0 }, "priority"},
		{"negative priority", func(ad *CreativeAd) { ad.Priority = -3 }, "priority"},
		{"ptr above one", func(ad *CreativeAd) { ad.PTR = 1.5 }, "ptr"},
		{"ptr negative", func(ad *CreativeAd) { ad.PTR = -0.1 }, "ptr"},
		{"daypart minute out of range", func(ad *CreativeAd) {
			ad.Dayparts = datatypes.JSONSlice[Daypart]{{DaysOfWeek: "1", StartMinute: 0, EndMinute: 1440}}
		}, "daypart minutes"},
		{"degenerate daypart window", func(ad *CreativeAd) {
			ad.Dayparts = datatypes.JSONSlice[Daypart]{{DaysOfWeek: "1", StartMinute: 600, EndMinute: 600}}
		}, "start_minute"},
		{"inverted daypart window", func(ad *CreativeAd) {
			ad.Dayparts = datatypes.JSONSlice[Daypart]{{DaysOfWeek: "1", StartMinute: 700, EndMinute: 600}}
		}, "start_minute"},
		{"invalid day of week", func(ad *CreativeAd) {
			ad.Dayparts = datatypes.JSONSlice[Daypart]{{DaysOfWeek: "17", StartMinute: 0, EndMinute: 60}}
		}, "day-of-week"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ad := validAd()
			tc.mutate(&ad)
			err := ad.Validate()
			if err == nil {
				t.Fatalf("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("Validate() = %q, want mention of %q", err.Error(), tc.wantSub)
			}
		})
	}
}

func TestDaypartContains(t *testing.T) {
	dp := Daypart{DaysOfWeek: "12345", StartMinute: 540, EndMinute: 1020}

	if !dp.Contains(1, 540) {
		t.Errorf("start minute should be inside the window")
	}
	if !dp.Contains(5, 1020) {
		t.Errorf("end minute should be inside the window")
	}
	if dp.Contains(1, 539) {
		t.Errorf("minute before start should be outside")
	}
	if dp.Contains(0, 600) {
		t.Errorf("Sunday is not in the weekday window")
	}
}
