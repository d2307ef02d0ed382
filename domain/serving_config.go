package domain

// ServingFeatureFlags toggles optional pipeline behavior per ad type.
type ServingFeatureFlags struct {
	PacingEnabled              bool `json:"pacing_enabled"`
	TextEmbeddingEnabled       bool `json:"text_embedding_enabled"`
	AntiTargetingEnabled       bool `json:"anti_targeting_enabled"`
	ConversionExclusionEnabled bool `json:"conversion_exclusion_enabled"`
	BanditOnlyScoring          bool `json:"bandit_only_scoring"`
}

// ModelWeights is the versioned linear scoring model. Weights are loaded as
// configuration, never hardcoded in the pipeline.
type ModelWeights struct {
	Version int `json:"version"`

	IntentChild    float64 `json:"intent_child"`
	IntentParent   float64 `json:"intent_parent"`
	InterestChild  float64 `json:"interest_child"`
	InterestParent float64 `json:"interest_parent"`
	LatentChild    float64 `json:"latent_child"`
	LatentParent   float64 `json:"latent_parent"`

	AdLastSeen          float64 `json:"ad_last_seen"`
	AdvertiserLastSeen  float64 `json:"advertiser_last_seen"`
	Priority            float64 `json:"priority"`
	BanditArm           float64 `json:"bandit_arm"`
	EmbeddingSimilarity float64 `json:"embedding_similarity"`
}

// ServingConfig is the per-ad-type configuration row.
type ServingConfig struct {
	AdType string `json:"ad_type" gorm:"column:ad_type;primaryKey"`

	Epsilon float64 `json:"epsilon" gorm:"column:epsilon"`

	MinimumWaitSeconds    int `json:"minimum_wait_seconds" gorm:"column:minimum_wait_seconds"`
	CatalogMaxAgeSeconds  int `json:"catalog_max_age_seconds" gorm:"column:catalog_max_age_seconds"`
	ObservationWindowSecs int `json:"observation_window_seconds" gorm:"column:observation_window_seconds"`

	// Daily caps keyed above the creative level; 0 = unlimited.
	CampaignDailyCap   int `json:"campaign_daily_cap" gorm:"column:campaign_daily_cap"`
	AdvertiserDailyCap int `json:"advertiser_daily_cap" gorm:"column:advertiser_daily_cap"`

	// Lookback windows for interaction-based exclusions, in hours.
	DismissedLookbackHours   int `json:"dismissed_lookback_hours" gorm:"column:dismissed_lookback_hours"`
	TransferredLookbackHours int `json:"transferred_lookback_hours" gorm:"column:transferred_lookback_hours"`
	ConversionLookbackHours  int `json:"conversion_lookback_hours" gorm:"column:conversion_lookback_hours"`

	SplitTestGroup string `json:"split_test_group" gorm:"column:split_test_group"`

	FeaturesRaw []byte              `json:"-" gorm:"column:features"`
	Features    ServingFeatureFlags `json:"features" gorm:"-"`

	WeightsRaw []byte       `json:"-" gorm:"column:weights"`
	Weights    ModelWeights `json:"weights" gorm:"-"`
}

func (ServingConfig) TableName() string {
	return "serving_configs"
}
