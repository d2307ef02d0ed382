package prediction

import "adserve/domain"

// Score computes the weighted linear combination of the feature vector under
// the injected model weights.
func Score(w domain.ModelWeights, in Inputs) float64 {
	return w.IntentChild*in.MatchesIntentChild +
		w.IntentParent*in.MatchesIntentParent +
		w.InterestChild*in.MatchesInterestChild +
		w.InterestParent*in.MatchesInterestParent +
		w.LatentChild*in.MatchesLatentChild +
		w.LatentParent*in.MatchesLatentParent +
		w.AdLastSeen*in.AdLastSeenHours +
		w.AdvertiserLastSeen*in.AdvertiserLastSeenHours +
		w.Priority*in.Priority +
		w.BanditArm*in.BanditArmValue +
		w.EmbeddingSimilarity*in.EmbeddingSimilarity
}

// ScoreBanditOnly is used when only multi-armed-bandit targeting is enabled;
// the score reduces to the arm value directly.
func ScoreBanditOnly(in Inputs) float64 {
	return in.BanditArmValue
}
