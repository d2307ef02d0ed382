package prediction

import (
	"context"
	"math"
	"sync"
	"testing"

	"adserve/domain"
)

type memArmStore struct {
	mu   sync.Mutex
	arms map[string]domain.BanditArm
}

func newMemArmStore() *memArmStore {
	return &memArmStore{arms: make(map[string]domain.BanditArm)}
}

func (s *memArmStore) GetArm(ctx context.Context, segment string) (domain.BanditArm, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	arm, ok := s.arms[segment]
	return arm, ok, nil
}

func (s *memArmStore) PutArm(ctx context.Context, arm domain.BanditArm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.arms[arm.Segment] = arm
	return nil
}

func TestRecordRewardIncrementalMean(t *testing.T) {
	store := newMemArmStore()
	p := NewBanditProcessor(store)
	ctx := context.Background()

	rewards := []float64{1, 0, 0, 1, 1, 0, 1, 0, 0, 0}
	var sum float64
	for _, r := range rewards {
		if _, err := p.RecordReward(ctx, "food-restaurants", r); err != nil {
			t.Fatalf("RecordReward() error = %v", err)
		}
		sum += r
	}

	arm, ok, _ := store.GetArm(ctx, "food-restaurants")
	if !ok {
		t.Fatalf("arm not stored")
	}
	if arm.Pulls != len(rewards) {
		t.Errorf("Pulls = %d, want %d", arm.Pulls, len(rewards))
	}

	want := sum / float64(len(rewards))
	if math.Abs(arm.Value-want) > 1e-9 {
		t.Errorf("Value = %v, want arithmetic mean %v", arm.Value, want)
	}
}

func TestRecordRewardRequiresSegment(t *testing.T) {
	p := NewBanditProcessor(newMemArmStore())
	if _, err := p.RecordReward(context.Background(), "", 1); err == nil {
		t.Errorf("expected error for empty segment")
	}
}

func TestArmValueForScoringPrior(t *testing.T) {
	if got := ArmValueForScoring(domain.BanditArm{}, false); got != 1.0 {
		t.Errorf("missing arm value = %v, want optimistic prior 1.0", got)
	}
	if got := ArmValueForScoring(domain.BanditArm{Segment: "a", Pulls: 0, Value: 0.3}, true); got != 1.0 {
		t.Errorf("unpulled arm value = %v, want optimistic prior 1.0", got)
	}
	if got := ArmValueForScoring(domain.BanditArm{Segment: "a", Pulls: 5, Value: 0.3}, true); got != 0.3 {
		t.Errorf("pulled arm value = %v, want stored 0.3", got)
	}
}

func TestOnAdEventRewardsClickAndConversionOnly(t *testing.T) {
	store := newMemArmStore()
	p := NewBanditProcessor(store)
	ctx := context.Background()

	for _, confirmation := range []string{
		domain.ConfirmationViewed,
		domain.ConfirmationLanded,
		domain.ConfirmationDismissed,
		domain.ConfirmationServed,
	} {
		if err := p.OnAdEvent(ctx, domain.AdEvent{Segment: "s", ConfirmationType: confirmation}); err != nil {
			t.Fatalf("OnAdEvent(%s) error = %v", confirmation, err)
		}
	}
	if _, ok, _ := store.GetArm(ctx, "s"); ok {
		t.Fatalf("non-reward confirmations must not touch the arm")
	}

	if err := p.OnAdEvent(ctx, domain.AdEvent{Segment: "s", ConfirmationType: domain.ConfirmationClicked}); err != nil {
		t.Fatalf("OnAdEvent(clicked) error = %v", err)
	}
	arm, ok, _ := store.GetArm(ctx, "s")
	if !ok || arm.Pulls != 1 || arm.Value != 1.0 {
		t.Errorf("after click: arm = %+v, ok = %v; want pulls 1, value 1.0", arm, ok)
	}

	if err := p.OnImpressionExpired(ctx, "s"); err != nil {
		t.Fatalf("OnImpressionExpired() error = %v", err)
	}
	arm, _, _ = store.GetArm(ctx, "s")
	if arm.Pulls != 2 || math.Abs(arm.Value-0.5) > 1e-9 {
		t.Errorf("after expiry: arm = %+v; want pulls 2, value 0.5", arm)
	}
}

func TestRecordRewardConcurrentSegments(t *testing.T) {
	store := newMemArmStore()
	p := NewBanditProcessor(store)
	ctx := context.Background()

	const perSegment = 200
	var wg sync.WaitGroup
	for _, segment := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(seg string) {
			defer wg.Done()
			for i := 0; i < perSegment; i++ {
				if _, err := p.RecordReward(ctx, seg, 1); err != nil {
					t.Errorf("RecordReward(%s) error = %v", seg, err)
					return
				}
			}
		}(segment)
	}
	wg.Wait()

	for _, segment := range []string{"a", "b", "c"} {
		arm, _, _ := store.GetArm(ctx, segment)
		if arm.Pulls != perSegment {
			t.Errorf("segment %s pulls = %d, want %d", segment, arm.Pulls, perSegment)
		}
		if math.Abs(arm.Value-1.0) > 1e-9 {
			t.Errorf("segment %s value = %v, want 1.0", segment, arm.Value)
		}
	}
}
