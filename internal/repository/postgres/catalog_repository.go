package postgres

import (
	"context"
	"fmt"
	"time"

	"adserve/business/serving"
	"adserve/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// catalogMetaRow records the active catalog generation. One row per region;
// a single deployment uses the "default" region.
type catalogMetaRow struct {
	Region      string    `gorm:"column:region;primaryKey"`
	Version     int       `gorm:"column:version"`
	LastUpdated time.Time `gorm:"column:last_updated"`
}

func (catalogMetaRow) TableName() string {
	return "catalog_meta"
}

const defaultRegion = "default"

type CatalogRepository struct {
	DB *gorm.DB
}

var _ serving.CatalogRepository = (*CatalogRepository)(nil)

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: db}
}

// Replace swaps the persisted catalog for a new generation in one
// transaction. Creatives from older generations are removed.
func (r *CatalogRepository) Replace(ctx context.Context, version int, lastUpdated time.Time, ads []domain.CreativeAd) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&domain.CreativeAd{}).Error; err != nil {
			return fmt.Errorf("failed to clear creatives: %w", err)
		}

		if len(ads) > 0 {
			if err := tx.CreateInBatches(ads, 500).Error; err != nil {
				return fmt.Errorf("failed to insert creatives: %w", err)
			}
		}

		meta := catalogMetaRow{
			Region:      defaultRegion,
			Version:     version,
			LastUpdated: lastUpdated,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "region"}},
			UpdateAll: true,
		}).Create(&meta).Error; err != nil {
			return fmt.Errorf("failed to upsert catalog meta: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("catalog replace transaction: %w", err)
	}

	return nil
}

// Load returns the persisted catalog generation. version 0 means no catalog
// has ever been stored.
func (r *CatalogRepository) Load(ctx context.Context) (int, time.Time, []domain.CreativeAd, error) {
	if err := ctx.Err(); err != nil {
		return 0, time.Time{}, nil, fmt.Errorf("context error: %w", err)
	}

	var meta catalogMetaRow
	err := r.DB.WithContext(ctx).First(&meta, "region = ?", defaultRegion).Error
	if err == gorm.ErrRecordNotFound {
		return 0, time.Time{}, nil, nil
	}
	if err != nil {
		return 0, time.Time{}, nil, fmt.Errorf("failed to query catalog_meta: %w", err)
	}

	var ads []domain.CreativeAd
	if err := r.DB.WithContext(ctx).Find(&ads).Error; err != nil {
		return 0, time.Time{}, nil, fmt.Errorf("failed to query creative_ads: %w", err)
	}

	return meta.Version, meta.LastUpdated, ads, nil
}
