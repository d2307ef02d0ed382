package serving

import (
	"context"
	"fmt"
	"sort"
	"time"

	"adserve/business/exclusion"
	"adserve/business/history"
	"adserve/business/prediction"
	"adserve/domain"
	"adserve/pkg/logger"
)

// DebugServe runs the eligibility pipeline for an opportunity without side
// effects: no delegate notifications, no served event, no exploration roll.
// It returns the per-candidate score breakdown sorted best first.
func (s *ServingService) DebugServe(ctx context.Context, opp Opportunity) ([]domain.AdScoreBreakdown, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	now := s.clock()
	cfg := s.loadConfig(ctx, opp.AdType)

	snap := s.catalogStore.Snapshot()
	if snap == nil {
		return nil, ErrCatalogUnavailable
	}

	events, err := s.eventRepo.GetEventsSince(ctx, now.Add(-eventHistoryLookback))
	if err != nil {
		return nil, fmt.Errorf("%w: load event history: %v", ErrCollaboratorUnavailable, err)
	}
	ix := history.NewIndex(events)
	if err := s.attachLifetimeStats(ctx, ix); err != nil {
		return nil, err
	}

	candidates := s.fetchCandidates(snap, opp)
	if len(candidates) == 0 {
		return []domain.AdScoreBreakdown{}, nil
	}

	ectx, err := s.buildExclusionContext(ctx, cfg, ix, opp, now)
	if err != nil {
		return nil, err
	}

	eligible := exclusion.NewRuleSet(ectx).Apply(candidates)
	if len(eligible) == 0 {
		return []domain.AdScoreBreakdown{}, nil
	}

	breakdowns := s.breakdownCandidates(ctx, cfg, ix, opp.User, eligible, now)

	sort.SliceStable(breakdowns, func(i, j int) bool {
		return breakdowns[i].FinalScore > breakdowns[j].FinalScore
	})

	return breakdowns, nil
}

func (s *ServingService) breakdownCandidates(
	ctx context.Context,
	cfg Config,
	ix *history.Index,
	user domain.UserModel,
	eligible []domain.CreativeAd,
	now time.Time,
) []domain.AdScoreBreakdown {
	armValues := make(map[string]float64)
	centroids := make(map[string][]float32)

	var userMean []float32
	if cfg.Features.TextEmbeddingEnabled {
		userMean = prediction.MeanEmbedding(user.TextEmbeddingEvents)
	}

	breakdowns := make([]domain.AdScoreBreakdown, 0, len(eligible))

	for _, ad := range eligible {
		armValue, ok := armValues[ad.Segment]
		if !ok {
			arm, found, err := s.armStore.GetArm(ctx, ad.Segment)
			if err != nil {
				logger.Warn("bandit arm lookup failed, using prior",
					"segment", ad.Segment, "error", err)
				found = false
			}
			armValue = prediction.ArmValueForScoring(arm, found)
			armValues[ad.Segment] = armValue
		}

		similarity := 0.0
		if cfg.Features.TextEmbeddingEnabled && userMean != nil && s.embeddingRepo != nil {
			centroid, ok := centroids[ad.Segment]
			if !ok {
				loaded, found, err := s.embeddingRepo.GetCentroid(ctx, ad.Segment)
				if err != nil {
					logger.Warn("segment centroid lookup failed",
						"segment", ad.Segment, "error", err)
				} else if found {
					centroid = loaded
				}
				centroids[ad.Segment] = centroid
			}
			similarity = prediction.CosineSimilarity(userMean, centroid)
		}

		inputs := prediction.BuildInputs(ad, user, ix, armValue, similarity, now)

		var score float64
		if cfg.Features.BanditOnlyScoring {
			score = prediction.ScoreBanditOnly(inputs)
		} else {
			score = prediction.Score(cfg.Weights, inputs)
		}

		breakdowns = append(breakdowns, domain.AdScoreBreakdown{
			CreativeInstanceID: ad.CreativeInstanceID,
			Segment:            ad.Segment,
			Priority:           ad.Priority,

			MatchesIntentChild:    inputs.MatchesIntentChild == 1,
			MatchesIntentParent:   inputs.MatchesIntentParent == 1,
			MatchesInterestChild:  inputs.MatchesInterestChild == 1,
			MatchesInterestParent: inputs.MatchesInterestParent == 1,
			MatchesLatentChild:    inputs.MatchesLatentChild == 1,
			MatchesLatentParent:   inputs.MatchesLatentParent == 1,

			AdLastSeenHours:         inputs.AdLastSeenHours,
			AdvertiserLastSeenHours: inputs.AdvertiserLastSeenHours,
			BanditArmValue:          inputs.BanditArmValue,
			EmbeddingSimilarity:     inputs.EmbeddingSimilarity,

			FinalScore: score,
		})
	}

	return breakdowns
}
