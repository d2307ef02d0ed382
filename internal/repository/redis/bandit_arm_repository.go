package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"adserve/business/prediction"
	"adserve/domain"

	"github.com/redis/go-redis/v9"
)

const armKeyPrefix = "bandit:arm:"

// BanditArmRepository keeps the per-segment arm estimates in Redis so every
// serving instance reads and updates the same values.
type BanditArmRepository struct {
	Client *redis.Client
}

var _ prediction.ArmStore = (*BanditArmRepository)(nil)

func NewBanditArmRepository(client *redis.Client) *BanditArmRepository {
	return &BanditArmRepository{Client: client}
}

func (r *BanditArmRepository) GetArm(ctx context.Context, segment string) (domain.BanditArm, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.BanditArm{}, false, fmt.Errorf("context error: %w", err)
	}

	raw, err := r.Client.Get(ctx, armKeyPrefix+segment).Bytes()
	if err == redis.Nil {
		return domain.BanditArm{}, false, nil
	}
	if err != nil {
		return domain.BanditArm{}, false, fmt.Errorf("failed to get bandit arm: %w", err)
	}

	var arm domain.BanditArm
	if err := json.Unmarshal(raw, &arm); err != nil {
		return domain.BanditArm{}, false, fmt.Errorf("failed to unmarshal bandit arm: %w", err)
	}

	return arm, true, nil
}

func (r *BanditArmRepository) PutArm(ctx context.Context, arm domain.BanditArm) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	raw, err := json.Marshal(arm)
	if err != nil {
		return fmt.Errorf("failed to marshal bandit arm: %w", err)
	}

	if err := r.Client.Set(ctx, armKeyPrefix+arm.Segment, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to set bandit arm: %w", err)
	}

	return nil
}

// ListArms scans every stored arm, for the admin inspection endpoint.
func (r *BanditArmRepository) ListArms(ctx context.Context) ([]domain.BanditArm, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var arms []domain.BanditArm
	var cursor uint64

	for {
		keys, next, err := r.Client.Scan(ctx, cursor, armKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan bandit arms: %w", err)
		}

		for _, key := range keys {
			raw, err := r.Client.Get(ctx, key).Bytes()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to get bandit arm %s: %w", key, err)
			}

			var arm domain.BanditArm
			if err := json.Unmarshal(raw, &arm); err != nil {
				continue
			}
			arms = append(arms, arm)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return arms, nil
}
