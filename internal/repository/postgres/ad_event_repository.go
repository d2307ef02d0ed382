package postgres

import (
	"context"
	"fmt"
	"time"

	"adserve/business/serving"
	"adserve/domain"

	"gorm.io/gorm"
)

type AdEventRepository struct {
	DB *gorm.DB
}

var _ serving.EventRepository = (*AdEventRepository)(nil)

func NewAdEventRepository(db *gorm.DB) *AdEventRepository {
	return &AdEventRepository{DB: db}
}

func (r *AdEventRepository) SaveEvent(ctx context.Context, event domain.AdEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("failed to save ad event: %w", err)
	}

	return nil
}

// GetEventsSince returns events created at or after since, oldest first.
func (r *AdEventRepository) GetEventsSince(ctx context.Context, since time.Time) ([]domain.AdEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var events []domain.AdEvent
	err := r.DB.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query ad_events: %w", err)
	}

	return events, nil
}

// GetServedCounts returns the all-time served count per creative instance.
func (r *AdEventRepository) GetServedCounts(ctx context.Context) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []struct {
		CreativeInstanceID string
		Total              int
	}
	err := r.DB.WithContext(ctx).
		Model(&domain.AdEvent{}).
		Select("creative_instance_id, COUNT(*) AS total").
		Where("confirmation_type = ?", domain.ConfirmationServed).
		Group("creative_instance_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count served events: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.CreativeInstanceID] = row.Total
	}
	return counts, nil
}

// GetConvertedCreatives returns every creative instance with a conversion
// event, regardless of age.
func (r *AdEventRepository) GetConvertedCreatives(ctx context.Context) (map[string]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var ids []string
	err := r.DB.WithContext(ctx).
		Model(&domain.AdEvent{}).
		Where("confirmation_type = ?", domain.ConfirmationConversion).
		Distinct().
		Pluck("creative_instance_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query converted creatives: %w", err)
	}

	converted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		converted[id] = struct{}{}
	}
	return converted, nil
}

func (r *AdEventRepository) GetUnreconciledServed(ctx context.Context, before time.Time) ([]domain.AdEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var events []domain.AdEvent
	err := r.DB.WithContext(ctx).
		Where("confirmation_type = ? AND reconciled = false AND created_at < ?",
			domain.ConfirmationServed, before).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query unreconciled impressions: %w", err)
	}

	return events, nil
}

func (r *AdEventRepository) HasInteractionAfter(ctx context.Context, creativeInstanceID string, after time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error: %w", err)
	}

	var count int64
	err := r.DB.WithContext(ctx).
		Model(&domain.AdEvent{}).
		Where("creative_instance_id = ? AND created_at > ? AND confirmation_type IN ?",
			creativeInstanceID, after,
			[]string{domain.ConfirmationClicked, domain.ConfirmationConversion}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count interactions: %w", err)
	}

	return count > 0, nil
}

func (r *AdEventRepository) MarkReconciled(ctx context.Context, ids []uint) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	err := r.DB.WithContext(ctx).
		Model(&domain.AdEvent{}).
		Where("id IN ?", ids).
		Update("reconciled", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark events reconciled: %w", err)
	}

	return nil
}
