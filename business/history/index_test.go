package history

import (
	"testing"
	"time"

	"adserve/domain"
)

func TestIndexBucketsServedEvents(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	events := []domain.AdEvent{
		{CreativeInstanceID: "c1", CampaignID: "camp1", AdvertiserID: "adv1",
			ConfirmationType: domain.ConfirmationServed, CreatedAt: base},
		{CreativeInstanceID: "c2", CampaignID: "camp1", AdvertiserID: "adv1",
			ConfirmationType: domain.ConfirmationServed, CreatedAt: base.Add(time.Minute)},
		{CreativeInstanceID: "c1", CampaignID: "camp1", AdvertiserID: "adv1",
			ConfirmationType: domain.ConfirmationClicked, CreatedAt: base.Add(2 * time.Minute)},
		{CreativeInstanceID: "c3", CampaignID: "camp2", AdvertiserID: "adv2",
			ConfirmationType: domain.ConfirmationDismissed, CreatedAt: base.Add(3 * time.Minute)},
	}

	ix := NewIndex(events)

	if got := len(ix.AllServed()); got != 2 {
		t.Fatalf("AllServed() len = %d, want 2", got)
	}
	if got := len(ix.ServedForCreative("c1")); got != 1 {
		t.Errorf("ServedForCreative(c1) len = %d, want 1", got)
	}
	if got := len(ix.ServedForCampaign("camp1")); got != 2 {
		t.Errorf("ServedForCampaign(camp1) len = %d, want 2", got)
	}
	if got := len(ix.ServedForAdvertiser("adv1")); got != 2 {
		t.Errorf("ServedForAdvertiser(adv1) len = %d, want 2", got)
	}

	// clicked events must not leak into served buckets
	if got := len(ix.ForCreativeByType(domain.ConfirmationClicked, "c1")); got != 1 {
		t.Errorf("ForCreativeByType(clicked, c1) len = %d, want 1", got)
	}
	if got := len(ix.ForCampaignByType(domain.ConfirmationDismissed, "camp2")); got != 1 {
		t.Errorf("ForCampaignByType(dismissed, camp2) len = %d, want 1", got)
	}
}

func TestIndexLifetimeStats(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	ix := NewIndex([]domain.AdEvent{
		{CreativeInstanceID: "c1", ConfirmationType: domain.ConfirmationServed, CreatedAt: base},
	})

	// without lifetime stats the snapshot buckets answer
	if got := ix.TotalServedForCreative("c1"); got != 1 {
		t.Errorf("TotalServedForCreative(c1) = %d, want 1 from the snapshot", got)
	}
	if ix.HasConversionForCreative("c1") {
		t.Errorf("HasConversionForCreative(c1) = true, want false from the snapshot")
	}

	// attached stats take precedence: they cover events the snapshot predates
	ix.AttachLifetimeStats(LifetimeStats{
		ServedCounts:       map[string]int{"c1": 7},
		ConvertedCreatives: map[string]struct{}{"c1": {}},
	})

	if got := ix.TotalServedForCreative("c1"); got != 7 {
		t.Errorf("TotalServedForCreative(c1) = %d, want 7 from the lifetime stats", got)
	}
	if !ix.HasConversionForCreative("c1") {
		t.Errorf("HasConversionForCreative(c1) = false, want true from the lifetime stats")
	}
	if got := ix.TotalServedForCreative("missing"); got != 0 {
		t.Errorf("TotalServedForCreative(missing) = %d, want 0", got)
	}
}

func TestIndexLastServed(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	last := base.Add(time.Hour)

	ix := NewIndex([]domain.AdEvent{
		{CreativeInstanceID: "c1", AdvertiserID: "adv1",
			ConfirmationType: domain.ConfirmationServed, CreatedAt: base},
		{CreativeInstanceID: "c1", AdvertiserID: "adv1",
			ConfirmationType: domain.ConfirmationServed, CreatedAt: last},
	})

	got, ok := ix.LastServedForCreative("c1")
	if !ok || !got.Equal(last) {
		t.Errorf("LastServedForCreative(c1) = %v, %v; want %v, true", got, ok, last)
	}

	if _, ok := ix.LastServedForCreative("missing"); ok {
		t.Errorf("LastServedForCreative(missing) should report not found")
	}

	gotAdv, ok := ix.LastServedForAdvertiser("adv1")
	if !ok || !gotAdv.Equal(last) {
		t.Errorf("LastServedForAdvertiser(adv1) = %v, %v; want %v, true", gotAdv, ok, last)
	}
}
