package postgres

import (
	"context"
	"fmt"

	"adserve/business/serving"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// antiTargetingRow lists the segments an advertiser does not want shown to
// visitors of a site.
type antiTargetingRow struct {
	Site     string                      `gorm:"column:site;primaryKey"`
	Segments datatypes.JSONSlice[string] `gorm:"column:segments;type:jsonb"`
}

func (antiTargetingRow) TableName() string {
	return "anti_targeting_lists"
}

type AntiTargetingRepository struct {
	DB *gorm.DB
}

var _ serving.AntiTargetingRepository = (*AntiTargetingRepository)(nil)

func NewAntiTargetingRepository(db *gorm.DB) *AntiTargetingRepository {
	return &AntiTargetingRepository{DB: db}
}

func (r *AntiTargetingRepository) GetSegmentsForSites(ctx context.Context, sites []string) (map[string][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if len(sites) == 0 {
		return map[string][]string{}, nil
	}

	var rows []antiTargetingRow
	err := r.DB.WithContext(ctx).
		Where("site IN ?", sites).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query anti_targeting_lists: %w", err)
	}

	out := make(map[string][]string, len(rows))
	for _, row := range rows {
		out[row.Site] = row.Segments
	}
	return out, nil
}
