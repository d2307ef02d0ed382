package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"adserve/business/serving"
	"adserve/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServingConfigRepository struct {
	DB *gorm.DB
}

var _ serving.ConfigRepository = (*ServingConfigRepository)(nil)

func NewServingConfigRepository(db *gorm.DB) *ServingConfigRepository {
	return &ServingConfigRepository{DB: db}
}

func (r *ServingConfigRepository) GetConfig(ctx context.Context, adType string) (domain.ServingConfig, bool, error) {
	var cfg domain.ServingConfig

	err := r.DB.WithContext(ctx).
		Where("ad_type = ?", adType).
		First(&cfg).Error
	if err == gorm.ErrRecordNotFound {
		return domain.ServingConfig{}, false, nil
	}
	if err != nil {
		return domain.ServingConfig{}, false, err
	}

	if len(cfg.FeaturesRaw) > 0 {
		if err := json.Unmarshal(cfg.FeaturesRaw, &cfg.Features); err != nil {
			return domain.ServingConfig{}, false, fmt.Errorf("parse features for %s: %w", adType, err)
		}
	}
	if len(cfg.WeightsRaw) > 0 {
		if err := json.Unmarshal(cfg.WeightsRaw, &cfg.Weights); err != nil {
			return domain.ServingConfig{}, false, fmt.Errorf("parse weights for %s: %w", adType, err)
		}
	}
	return cfg, true, nil
}

func (r *ServingConfigRepository) UpsertConfig(ctx context.Context, cfg domain.ServingConfig) error {
	// serialize struct fields into the stored jsonb columns
	if len(cfg.FeaturesRaw) == 0 && (cfg.Features != (domain.ServingFeatureFlags{})) {
		raw, _ := json.Marshal(cfg.Features)
		cfg.FeaturesRaw = raw
	}
	if len(cfg.WeightsRaw) == 0 && cfg.Weights.Version > 0 {
		raw, _ := json.Marshal(cfg.Weights)
		cfg.WeightsRaw = raw
	}

	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "ad_type"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"epsilon",
				"minimum_wait_seconds",
				"catalog_max_age_seconds",
				"observation_window_seconds",
				"campaign_daily_cap",
				"advertiser_daily_cap",
				"dismissed_lookback_hours",
				"transferred_lookback_hours",
				"conversion_lookback_hours",
				"split_test_group",
				"features",
				"weights",
			}),
		}).
		Create(&cfg).Error
}
