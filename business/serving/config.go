package serving

import (
	"context"
	"time"

	"adserve/domain"
)

type FeatureFlags struct {
	PacingEnabled              bool
	TextEmbeddingEnabled       bool
	AntiTargetingEnabled       bool
	ConversionExclusionEnabled bool
	BanditOnlyScoring          bool
}

type Config struct {
	// Probability the orchestrator explores with a uniform random pick
	// instead of the arg-max-score ad.
	Epsilon float64

	MinimumWait   time.Duration
	CatalogMaxAge time.Duration

	// How long a served impression waits for an interaction before the
	// bandit settles it as reward 0.
	ObservationWindow time.Duration

	// Daily caps above the creative level; 0 = unlimited.
	CampaignDailyCap   int
	AdvertiserDailyCap int

	DismissedLookback   time.Duration
	TransferredLookback time.Duration
	ConversionLookback  time.Duration

	SplitTestGroup string

	Weights domain.ModelWeights

	Features FeatureFlags
}

const (
	defaultEpsilon             = 0.25
	defaultMinimumWait         = time.Minute
	defaultCatalogMaxAge       = 24 * time.Hour
	defaultObservationWindow   = time.Hour
	defaultCampaignDailyCap    = 4
	defaultAdvertiserDailyCap  = 10
	defaultDismissedLookback   = 48 * time.Hour
	defaultTransferredLookback = 48 * time.Hour
	defaultConversionLookback  = 0
)

func defaultWeights() domain.ModelWeights {
	return domain.ModelWeights{
		Version: 1,

		IntentChild:    1.0,
		IntentParent:   0.5,
		InterestChild:  0.8,
		InterestParent: 0.4,
		LatentChild:    0.5,
		LatentParent:   0.25,

		AdLastSeen:          0.0001,
		AdvertiserLastSeen:  0.00005,
		Priority:            1.0,
		BanditArm:           1.0,
		EmbeddingSimilarity: 0.5,
	}
}

func DefaultConfig() Config {
	return Config{
		Epsilon:           defaultEpsilon,
		MinimumWait:       defaultMinimumWait,
		CatalogMaxAge:     defaultCatalogMaxAge,
		ObservationWindow: defaultObservationWindow,

		CampaignDailyCap:   defaultCampaignDailyCap,
		AdvertiserDailyCap: defaultAdvertiserDailyCap,

		DismissedLookback:   defaultDismissedLookback,
		TransferredLookback: defaultTransferredLookback,
		ConversionLookback:  defaultConversionLookback,

		Weights: defaultWeights(),

		Features: FeatureFlags{
			PacingEnabled:              true,
			TextEmbeddingEnabled:       false,
			AntiTargetingEnabled:       true,
			ConversionExclusionEnabled: true,
			BanditOnlyScoring:          false,
		},
	}
}

// ConfigRepository reads the per-ad-type serving config from the store.
type ConfigRepository interface {
	GetConfig(ctx context.Context, adType string) (domain.ServingConfig, bool, error)
	UpsertConfig(ctx context.Context, cfg domain.ServingConfig) error
}

// loadConfig reads the config row for an ad type, falling back to the
// service defaults for missing rows or repository errors.
func (s *ServingService) loadConfig(ctx context.Context, adType string) Config {
	if s.cfgRepo == nil {
		return s.defaultCfg
	}

	row, ok, err := s.cfgRepo.GetConfig(ctx, adType)
	if err != nil || !ok {
		return s.defaultCfg
	}

	// start from defaults to keep sane fallbacks for any missing fields
	cfg := s.defaultCfg

	if row.Epsilon >= 0 && row.Epsilon <= 1 {
		cfg.Epsilon = row.Epsilon
	}
	if row.MinimumWaitSeconds > 0 {
		cfg.MinimumWait = time.Duration(row.MinimumWaitSeconds) * time.Second
	}
	if row.CatalogMaxAgeSeconds > 0 {
		cfg.CatalogMaxAge = time.Duration(row.CatalogMaxAgeSeconds) * time.Second
	}
	if row.ObservationWindowSecs > 0 {
		cfg.ObservationWindow = time.Duration(row.ObservationWindowSecs) * time.Second
	}

	cfg.CampaignDailyCap = row.CampaignDailyCap
	cfg.AdvertiserDailyCap = row.AdvertiserDailyCap

	cfg.DismissedLookback = time.Duration(row.DismissedLookbackHours) * time.Hour
	cfg.TransferredLookback = time.Duration(row.TransferredLookbackHours) * time.Hour
	cfg.ConversionLookback = time.Duration(row.ConversionLookbackHours) * time.Hour

	cfg.SplitTestGroup = row.SplitTestGroup

	if row.Weights.Version > 0 {
		cfg.Weights = row.Weights
	}

	// a row that never stored feature flags keeps the default set
	if len(row.FeaturesRaw) > 0 || row.Features != (domain.ServingFeatureFlags{}) {
		cfg.Features = FeatureFlags{
			PacingEnabled:              row.Features.PacingEnabled,
			TextEmbeddingEnabled:       row.Features.TextEmbeddingEnabled,
			AntiTargetingEnabled:       row.Features.AntiTargetingEnabled,
			ConversionExclusionEnabled: row.Features.ConversionExclusionEnabled,
			BanditOnlyScoring:          row.Features.BanditOnlyScoring,
		}
	}

	return cfg
}
