package postgres

import (
	"context"
	"fmt"

	"adserve/business/serving"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// segmentCentroidRow stores the mean text embedding of pages classified into
// a segment, refreshed offline by the taxonomy pipeline.
type segmentCentroidRow struct {
	Segment  string          `gorm:"column:segment;primaryKey"`
	Centroid pgvector.Vector `gorm:"column:centroid;type:vector(384)"`
}

func (segmentCentroidRow) TableName() string {
	return "segment_centroids"
}

type SegmentEmbeddingRepository struct {
	DB *gorm.DB
}

var _ serving.EmbeddingRepository = (*SegmentEmbeddingRepository)(nil)

func NewSegmentEmbeddingRepository(db *gorm.DB) *SegmentEmbeddingRepository {
	return &SegmentEmbeddingRepository{DB: db}
}

func (r *SegmentEmbeddingRepository) GetCentroid(ctx context.Context, segment string) ([]float32, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("context error: %w", err)
	}

	var row segmentCentroidRow
	err := r.DB.WithContext(ctx).First(&row, "segment = ?", segment).Error
	if err == gorm.ErrRecordNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query segment_centroids: %w", err)
	}

	return row.Centroid.Slice(), true, nil
}

func (r *SegmentEmbeddingRepository) UpsertCentroid(ctx context.Context, segment string, centroid []float32) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	row := segmentCentroidRow{
		Segment:  segment,
		Centroid: pgvector.NewVector(centroid),
	}

	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "segment"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert segment centroid: %w", err)
	}

	return nil
}
