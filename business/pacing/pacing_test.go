package pacing

import (
	"math/rand"
	"testing"

	"adserve/domain"
)

type seqRand struct {
	values []float64
	i      int
}

func (r *seqRand) Float64() float64 {
	v := r.values[r.i%len(r.values)]
	r.i++
	return v
}

func TestShouldPaceAdBoundaries(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pacer := NewPacer(rng)

	always := domain.CreativeAd{CreativeInstanceID: "a", PTR: 1.0}
	never := domain.CreativeAd{CreativeInstanceID: "b", PTR: 0.0}

	for i := 0; i < 10000; i++ {
		if pacer.ShouldPaceAd(always) {
			t.Fatalf("ptr=1.0 ad was paced out on draw %d", i)
		}
		if !pacer.ShouldPaceAd(never) {
			t.Fatalf("ptr=0.0 ad was admitted on draw %d", i)
		}
	}
}

func TestShouldPaceAdComparesDrawToPTR(t *testing.T) {
	ad := domain.CreativeAd{CreativeInstanceID: "a", PTR: 0.5}

	low := NewPacer(&seqRand{values: []float64{0.49}})
	if low.ShouldPaceAd(ad) {
		t.Errorf("draw below ptr should admit the ad")
	}

	high := NewPacer(&seqRand{values: []float64{0.5}})
	if !high.ShouldPaceAd(ad) {
		t.Errorf("draw at or above ptr should pace the ad out")
	}
}

func TestPaceAdsPreservesOrder(t *testing.T) {
	ads := []domain.CreativeAd{
		{CreativeInstanceID: "a", PTR: 1.0},
		{CreativeInstanceID: "b", PTR: 0.0},
		{CreativeInstanceID: "c", PTR: 1.0},
	}

	pacer := NewPacer(&seqRand{values: []float64{0.3}})
	out := pacer.PaceAds(ads)

	if len(out) != 2 {
		t.Fatalf("PaceAds() len = %d, want 2", len(out))
	}
	if out[0].CreativeInstanceID != "a" || out[1].CreativeInstanceID != "c" {
		t.Errorf("PaceAds() order = [%s %s], want [a c]",
			out[0].CreativeInstanceID, out[1].CreativeInstanceID)
	}
}
