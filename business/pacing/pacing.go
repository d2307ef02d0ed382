package pacing

import (
	"math/rand"

	"adserve/domain"
)

// Rand is the uniform source for pacing rolls. It is injected so tests can
// substitute a deterministic sequence; pacing must never depend on a hidden
// global RNG.
type Rand interface {
	Float64() float64
}

type defaultRand struct{}

func (defaultRand) Float64() float64 { return rand.Float64() }

// Pacer throttles delivery of a creative toward its target pacing ratio.
// Rolls are per-attempt and stateless; no throttle state is shared across
// concurrently running ad-unit pipelines.
type Pacer struct {
	rng Rand
}

func NewPacer(rng Rand) *Pacer {
	if rng == nil {
		rng = defaultRand{}
	}
	return &Pacer{rng: rng}
}

// ShouldPaceAd reports whether the ad is paced out of this serving attempt.
// An ad is admitted iff the uniform draw falls below its ptr, so ptr=1.0 is
// never paced and ptr=0.0 always is.
func (p *Pacer) ShouldPaceAd(ad domain.CreativeAd) bool {
	return p.rng.Float64() >= ad.PTR
}

// PaceAds removes ads whose pacing roll fails, preserving relative order.
func (p *Pacer) PaceAds(ads []domain.CreativeAd) []domain.CreativeAd {
	out := make([]domain.CreativeAd, 0, len(ads))
	for _, ad := range ads {
		if p.ShouldPaceAd(ad) {
			continue
		}
		out = append(out, ad)
	}
	return out
}
