package domain

// AdScoreBreakdown exposes per-candidate score components for inspection via
// the debug serve endpoint.
type AdScoreBreakdown struct {
	CreativeInstanceID string  `json:"creative_instance_id"`
	Segment            string  `json:"segment"`
	Priority           int     `json:"priority"`

	MatchesIntentChild    bool `json:"matches_intent_child"`
	MatchesIntentParent   bool `json:"matches_intent_parent"`
	MatchesInterestChild  bool `json:"matches_interest_child"`
	MatchesInterestParent bool `json:"matches_interest_parent"`
	MatchesLatentChild    bool `json:"matches_latent_child"`
	MatchesLatentParent   bool `json:"matches_latent_parent"`

	AdLastSeenHours         float64 `json:"ad_last_seen_hours"`
	AdvertiserLastSeenHours float64 `json:"advertiser_last_seen_hours"`
	BanditArmValue          float64 `json:"bandit_arm_value"`
	EmbeddingSimilarity     float64 `json:"embedding_similarity"`

	FinalScore float64 `json:"final_score"`
}
