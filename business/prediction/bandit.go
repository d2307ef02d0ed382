package prediction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"adserve/domain"
)

// armValuePrior is the optimistic default for arms with no pulls; it keeps
// fresh segments competitive until real rewards arrive.
const armValuePrior = 1.0

// ArmStore persists per-segment bandit arms.
type ArmStore interface {
	GetArm(ctx context.Context, segment string) (domain.BanditArm, bool, error)
	PutArm(ctx context.Context, arm domain.BanditArm) error
}

// ArmValueForScoring maps a stored arm to its scoring value, substituting the
// optimistic prior for unpulled arms.
func ArmValueForScoring(arm domain.BanditArm, found bool) float64 {
	if !found || arm.Pulls == 0 {
		return armValuePrior
	}
	return arm.Value
}

// BanditProcessor applies the epsilon-greedy feedback loop: reward 1 on
// clicked/conversion, reward 0 on a served impression whose observation
// window elapsed without interaction. Updates are serialized per segment to
// keep the incremental mean arithmetically correct under concurrent reward
// reports; scoring reads do not take these locks.
type BanditProcessor struct {
	store ArmStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewBanditProcessor(store ArmStore) *BanditProcessor {
	return &BanditProcessor{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

func (p *BanditProcessor) segmentLock(segment string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	lock, ok := p.locks[segment]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[segment] = lock
	}
	return lock
}

// RecordReward folds one reward observation into the segment's arm:
// pulls += 1; value += (reward - value) / pulls.
func (p *BanditProcessor) RecordReward(ctx context.Context, segment string, reward float64) (domain.BanditArm, error) {
	if segment == "" {
		return domain.BanditArm{}, fmt.Errorf("segment is required")
	}
	if err := ctx.Err(); err != nil {
		return domain.BanditArm{}, fmt.Errorf("context error: %w", err)
	}

	lock := p.segmentLock(segment)
	lock.Lock()
	defer lock.Unlock()

	arm, found, err := p.store.GetArm(ctx, segment)
	if err != nil {
		return domain.BanditArm{}, fmt.Errorf("load bandit arm: %w", err)
	}
	if !found {
		arm = domain.BanditArm{Segment: segment}
	}

	arm.Pulls++
	arm.Value += (reward - arm.Value) / float64(arm.Pulls)
	arm.LastUpdated = time.Now()

	if err := p.store.PutArm(ctx, arm); err != nil {
		return domain.BanditArm{}, fmt.Errorf("save bandit arm: %w", err)
	}

	return arm, nil
}

// OnAdEvent maps a confirmation to its reward, if any. Clicked and
// conversion confirmations are reward 1; served impressions are settled
// later by OnImpressionExpired once the observation window passes.
func (p *BanditProcessor) OnAdEvent(ctx context.Context, event domain.AdEvent) error {
	switch event.ConfirmationType {
	case domain.ConfirmationClicked, domain.ConfirmationConversion:
		_, err := p.RecordReward(ctx, event.Segment, 1.0)
		return err
	default:
		return nil
	}
}

// OnImpressionExpired records the reward-0 outcome for a served impression
// that saw no interaction inside the observation window.
func (p *BanditProcessor) OnImpressionExpired(ctx context.Context, segment string) error {
	_, err := p.RecordReward(ctx, segment, 0.0)
	return err
}
