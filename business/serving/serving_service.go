package serving

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"adserve/business/catalog"
	"adserve/business/exclusion"
	"adserve/business/history"
	"adserve/business/pacing"
	"adserve/business/permission"
	"adserve/business/prediction"
	"adserve/domain"
	"adserve/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// eventHistoryLookback bounds the event snapshot taken per attempt. It
// covers every rolling window; the total cap and the conversion exclusion
// are unbounded and read the lifetime aggregates instead.
const eventHistoryLookback = 90 * 24 * time.Hour

// Opportunity describes one ad placement opportunity. The user model is
// rebuilt from live signals by the caller for every opportunity.
type Opportunity struct {
	AdType string
	User   domain.UserModel

	UserActive    bool
	BrowserActive bool
}

type defaultRand struct{}

func (defaultRand) Float64() float64 { return rand.Float64() }

// ---- Usecase / Service ----

type ServingService struct {
	catalogStore *catalog.Store
	catalogRepo  CatalogRepository
	eventRepo    EventRepository
	cfgRepo      ConfigRepository

	armStore prediction.ArmStore
	bandit   *prediction.BanditProcessor

	embeddingRepo     EmbeddingRepository
	antiTargetingRepo AntiTargetingRepository
	subdivision       SubdivisionResolver
	issuers           IssuerStatus

	pacer    *pacing.Pacer
	rng      pacing.Rand
	delegate Delegate
	clock    func() time.Time

	defaultCfg Config
}

func NewServingService(
	catalogStore *catalog.Store,
	catalogRepo CatalogRepository,
	eventRepo EventRepository,
	cfgRepo ConfigRepository,
	armStore prediction.ArmStore,
	embeddingRepo EmbeddingRepository,
	antiTargetingRepo AntiTargetingRepository,
	subdivision SubdivisionResolver,
	issuers IssuerStatus,
	pacer *pacing.Pacer,
	rng pacing.Rand,
	delegate Delegate,
	clock func() time.Time,
	defaultCfg Config,
) *ServingService {
	if pacer == nil {
		pacer = pacing.NewPacer(nil)
	}
	if rng == nil {
		rng = defaultRand{}
	}
	if delegate == nil {
		delegate = NoopDelegate{}
	}
	if clock == nil {
		clock = time.Now
	}

	return &ServingService{
		catalogStore:      catalogStore,
		catalogRepo:       catalogRepo,
		eventRepo:         eventRepo,
		cfgRepo:           cfgRepo,
		armStore:          armStore,
		bandit:            prediction.NewBanditProcessor(armStore),
		embeddingRepo:     embeddingRepo,
		antiTargetingRepo: antiTargetingRepo,
		subdivision:       subdivision,
		issuers:           issuers,
		pacer:             pacer,
		rng:               rng,
		delegate:          delegate,
		clock:             clock,
		defaultCfg:        defaultCfg,
	}
}

//  Serving

// ServeAd runs one serving attempt for an ad placement opportunity. A failed
// attempt simply reports why; the next opportunity starts a fresh attempt.
func (s *ServingService) ServeAd(ctx context.Context, opp Opportunity) (*domain.CreativeAd, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	attemptID := uuid.NewString()
	tid := TraceIDFromContext(ctx)
	now := s.clock()

	s.delegate.OnOpportunityArose(opp.AdType)

	cfg := s.loadConfig(ctx, opp.AdType)

	logger.Debug("serving attempt started",
		"trace_id", tid,
		"attempt_id", attemptID,
		"ad_type", opp.AdType,
		"state", StatePermissionCheck.String(),
	)

	// one history snapshot per attempt; no stage re-queries mid-pipeline
	events, err := s.eventRepo.GetEventsSince(ctx, now.Add(-eventHistoryLookback))
	if err != nil {
		s.failAttempt(opp.AdType, "history_unavailable")
		return nil, fmt.Errorf("%w: load event history: %v", ErrCollaboratorUnavailable, err)
	}
	ix := history.NewIndex(events)
	if err := s.attachLifetimeStats(ctx, ix); err != nil {
		s.failAttempt(opp.AdType, "history_unavailable")
		return nil, err
	}

	snap := s.catalogStore.Snapshot()
	catalogVersion := 0
	catalogLastUpdated := time.Time{}
	if snap != nil {
		catalogVersion = snap.Version()
		catalogLastUpdated = snap.LastUpdated()
	}

	pctx := permission.Context{
		Now:                now,
		CatalogVersion:     catalogVersion,
		CatalogLastUpdated: catalogLastUpdated,
		CatalogMaxAge:      cfg.CatalogMaxAge,
		IssuersValid:       s.issuers.IssuersValid(ctx),
		MinimumWait:        cfg.MinimumWait,
		ServedTimes:        ix.AllServed(),
		UserActive:         opp.UserActive,
		BrowserActive:      opp.BrowserActive,
	}

	if err := permission.ShouldAllow(pctx, permission.RulesForAdType(opp.AdType)); err != nil {
		var denied *permission.DeniedError
		reason := "denied"
		if errors.As(err, &denied) {
			reason = denied.Rule
		}
		logger.Debug("serving attempt denied",
			"trace_id", tid,
			"attempt_id", attemptID,
			"ad_type", opp.AdType,
			"state", StateDenied.String(),
			"reason", reason,
		)
		s.failAttempt(opp.AdType, reason)
		return nil, err
	}

	// permission passed, so a catalog snapshot exists
	candidates := s.fetchCandidates(snap, opp)
	if len(candidates) == 0 {
		return nil, s.noEligibleAd(tid, attemptID, opp.AdType, StateCandidateFetch)
	}

	ectx, err := s.buildExclusionContext(ctx, cfg, ix, opp, now)
	if err != nil {
		s.failAttempt(opp.AdType, "anti_targeting_unavailable")
		return nil, err
	}

	eligible := exclusion.NewRuleSet(ectx).Apply(candidates)
	if len(eligible) == 0 {
		return nil, s.noEligibleAd(tid, attemptID, opp.AdType, StateExclude)
	}

	if cfg.Features.PacingEnabled {
		eligible = s.pacer.PaceAds(eligible)
		if len(eligible) == 0 {
			return nil, s.noEligibleAd(tid, attemptID, opp.AdType, StatePace)
		}
	}

	scored := s.scoreCandidates(ctx, cfg, ix, opp.User, eligible, now)

	ad, explored := s.selectAd(cfg, scored)

	logger.Debug("serving attempt selected ad",
		"trace_id", tid,
		"attempt_id", attemptID,
		"ad_type", opp.AdType,
		"state", StateServed.String(),
		"creative_instance_id", ad.CreativeInstanceID,
		"segment", ad.Segment,
		"explored", explored,
	)

	// record the served event before announcing success, so the frequency
	// caps and the bandit loop always see it
	event := domain.AdEvent{
		CreativeInstanceID: ad.CreativeInstanceID,
		CreativeSetID:      ad.CreativeSetID,
		CampaignID:         ad.CampaignID,
		AdvertiserID:       ad.AdvertiserID,
		AdType:             opp.AdType,
		Segment:            ad.Segment,
		ConfirmationType:   domain.ConfirmationServed,
		CreatedAt:          now,
		Context:            datatypes.JSONMap{"attempt_id": attemptID},
	}
	if err := s.eventRepo.SaveEvent(ctx, event); err != nil {
		s.failAttempt(opp.AdType, "history_unavailable")
		return nil, fmt.Errorf("%w: record served event: %v", ErrCollaboratorUnavailable, err)
	}

	s.delegate.OnDidServe(ad)
	AdsServedTotal.WithLabelValues(opp.AdType).Inc()

	return &ad, nil
}

// attachLifetimeStats loads the all-time per-creative aggregates the
// unbounded exclusion rules read; the bounded snapshot only serves the
// rolling windows.
func (s *ServingService) attachLifetimeStats(ctx context.Context, ix *history.Index) error {
	servedCounts, err := s.eventRepo.GetServedCounts(ctx)
	if err != nil {
		return fmt.Errorf("%w: load served counts: %v", ErrCollaboratorUnavailable, err)
	}
	converted, err := s.eventRepo.GetConvertedCreatives(ctx)
	if err != nil {
		return fmt.Errorf("%w: load converted creatives: %v", ErrCollaboratorUnavailable, err)
	}

	ix.AttachLifetimeStats(history.LifetimeStats{
		ServedCounts:       servedCounts,
		ConvertedCreatives: converted,
	})
	return nil
}

func (s *ServingService) failAttempt(adType, reason string) {
	ServeFailuresTotal.WithLabelValues(adType, reason).Inc()
	s.delegate.OnFailedToServe(adType, reason)
}

func (s *ServingService) noEligibleAd(tid, attemptID, adType string, stage AttemptState) error {
	logger.Debug("serving attempt found no eligible ad",
		"trace_id", tid,
		"attempt_id", attemptID,
		"ad_type", adType,
		"stage", stage.String(),
		"state", StateNoEligibleAd.String(),
	)
	s.failAttempt(adType, "no_eligible_ads")
	return ErrNoEligibleAds
}

// fetchCandidates queries the catalog snapshot for every targetable segment
// and dedupes by creative instance, preserving segment relevance order.
func (s *ServingService) fetchCandidates(snap *catalog.Snapshot, opp Opportunity) []domain.CreativeAd {
	seen := make(map[string]struct{})
	var candidates []domain.CreativeAd

	for _, segment := range opp.User.TargetableSegments() {
		for _, ad := range snap.AdsForSegment(opp.AdType, segment) {
			if _, ok := seen[ad.CreativeInstanceID]; ok {
				continue
			}
			seen[ad.CreativeInstanceID] = struct{}{}
			candidates = append(candidates, ad)
		}
	}

	return candidates
}

func (s *ServingService) buildExclusionContext(
	ctx context.Context,
	cfg Config,
	ix *history.Index,
	opp Opportunity,
	now time.Time,
) (exclusion.Context, error) {
	ectx := exclusion.Context{
		Now:            now,
		Index:          ix,
		SplitTestGroup: cfg.SplitTestGroup,
		Config: exclusion.RuleConfig{
			CampaignDailyCap:           cfg.CampaignDailyCap,
			AdvertiserDailyCap:         cfg.AdvertiserDailyCap,
			DismissedLookback:          cfg.DismissedLookback,
			TransferredLookback:        cfg.TransferredLookback,
			ConversionLookback:         cfg.ConversionLookback,
			ConversionExclusionEnabled: cfg.Features.ConversionExclusionEnabled,
			AntiTargetingEnabled:       cfg.Features.AntiTargetingEnabled,
		},
	}

	if len(opp.User.OptedOutSegments) > 0 {
		ectx.OptedOutSegments = make(map[string]struct{}, len(opp.User.OptedOutSegments))
		for _, seg := range opp.User.OptedOutSegments {
			ectx.OptedOutSegments[seg] = struct{}{}
		}
	}

	if s.subdivision != nil {
		code, supported, err := s.subdivision.Subdivision(ctx)
		if err != nil {
			// unsupported resolution passes all ads rather than failing the attempt
			logger.Warn("subdivision resolution failed", "error", err)
		} else {
			ectx.SubdivisionCode = code
			ectx.SubdivisionSupported = supported
		}
	}

	if cfg.Features.AntiTargetingEnabled && s.antiTargetingRepo != nil && len(opp.User.RecentSites) > 0 {
		segments, err := s.antiTargetingRepo.GetSegmentsForSites(ctx, opp.User.RecentSites)
		if err != nil {
			return exclusion.Context{}, fmt.Errorf("%w: load anti-targeting segments: %v", ErrCollaboratorUnavailable, err)
		}
		ectx.AntiTargetedSegments = segments
	}

	return ectx, nil
}

type scoredAd struct {
	ad    domain.CreativeAd
	score float64
}

// scoreCandidates builds the feature vector for each eligible candidate and
// applies the configured model. Arm and centroid lookups are cached per
// segment within the attempt.
func (s *ServingService) scoreCandidates(
	ctx context.Context,
	cfg Config,
	ix *history.Index,
	user domain.UserModel,
	eligible []domain.CreativeAd,
	now time.Time,
) []scoredAd {
	armValues := make(map[string]float64)
	centroids := make(map[string][]float32)

	var userMean []float32
	if cfg.Features.TextEmbeddingEnabled {
		userMean = prediction.MeanEmbedding(user.TextEmbeddingEvents)
	}

	scored := make([]scoredAd, 0, len(eligible))

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

		scored = append(scored, scoredAd{ad: ad, score: score})
	}

	return scored
}

// selectAd picks the arg-max-score candidate with a deterministic tie-break
// (lowest priority integer, then lexicographic creative instance id), unless
// the epsilon roll chooses a uniformly random eligible ad.
func (s *ServingService) selectAd(cfg Config, scored []scoredAd) (domain.CreativeAd, bool) {
	if cfg.Epsilon > 0 && s.rng.Float64() < cfg.Epsilon {
		idx := int(s.rng.Float64() * float64(len(scored)))
		if idx >= len(scored) {
			idx = len(scored) - 1
		}
		ExplorationPicksTotal.Inc()
		return scored[idx].ad, true
	}

	best := scored[0]
	for _, cand := range scored[1:] {
		if cand.score > best.score {
			best = cand
			continue
		}
		if cand.score == best.score {
			if cand.ad.Priority < best.ad.Priority ||
				(cand.ad.Priority == best.ad.Priority &&
					cand.ad.CreativeInstanceID < best.ad.CreativeInstanceID) {
				best = cand
			}
		}
	}

	return best.ad, false
}

//  Feedback / learning

// RecordEvent appends a confirmation to the event history and feeds the
// bandit loop. Served impressions whose observation window has elapsed are
// settled as reward 0 on the way through.
func (s *ServingService) RecordEvent(ctx context.Context, event domain.AdEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if !domain.IsValidConfirmationType(event.ConfirmationType) {
		return fmt.Errorf("%w: %s", ErrUnknownConfirmationType, event.ConfirmationType)
	}

	// enrich from the catalog so exclusion rules and the bandit can key on
	// campaign, advertiser and segment
	if snap := s.catalogStore.Snapshot(); snap != nil {
		if ad, ok := snap.AdByCreativeInstanceID(event.CreativeInstanceID); ok {
			if event.CreativeSetID == "" {
				event.CreativeSetID = ad.CreativeSetID
			}
			if event.CampaignID == "" {
				event.CampaignID = ad.CampaignID
			}
			if event.AdvertiserID == "" {
				event.AdvertiserID = ad.AdvertiserID
			}
			if event.Segment == "" {
				event.Segment = ad.Segment
			}
		}
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.clock()
	}

	if err := s.eventRepo.SaveEvent(ctx, event); err != nil {
		return fmt.Errorf("save ad event: %w", err)
	}

	AdEventsTotal.WithLabelValues(event.AdType, event.ConfirmationType, event.Segment).Inc()

	logger.Debug("ad event recorded",
		"trace_id", TraceIDFromContext(ctx),
		"creative_instance_id", event.CreativeInstanceID,
		"confirmation_type", event.ConfirmationType,
		"segment", event.Segment,
	)

	if event.Segment != "" {
		if err := s.bandit.OnAdEvent(ctx, event); err != nil {
			return fmt.Errorf("apply bandit reward: %w", err)
		}
	}

	cfg := s.loadConfig(ctx, event.AdType)
	s.reconcileExpiredImpressions(ctx, cfg.ObservationWindow)

	return nil
}

// reconcileExpiredImpressions settles served events older than the
// observation window: no interaction means reward 0 for the segment's arm.
// Failures here only log; the inbound event was already recorded.
func (s *ServingService) reconcileExpiredImpressions(ctx context.Context, window time.Duration) {
	if window <= 0 {
		return
	}

	before := s.clock().Add(-window)

	expired, err := s.eventRepo.GetUnreconciledServed(ctx, before)
	if err != nil {
		logger.Error("load unreconciled impressions", "error", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	reconciled := make([]uint, 0, len(expired))

	for _, ev := range expired {
		interacted, err := s.eventRepo.HasInteractionAfter(ctx, ev.CreativeInstanceID, ev.CreatedAt)
		if err != nil {
			logger.Error("check impression interactions",
				"creative_instance_id", ev.CreativeInstanceID, "error", err)
			continue
		}

		if !interacted && ev.Segment != "" {
			if err := s.bandit.OnImpressionExpired(ctx, ev.Segment); err != nil {
				logger.Error("settle expired impression",
					"segment", ev.Segment, "error", err)
				continue
			}
		}

		reconciled = append(reconciled, ev.ID)
	}

	if len(reconciled) == 0 {
		return
	}

	if err := s.eventRepo.MarkReconciled(ctx, reconciled); err != nil {
		logger.Error("mark impressions reconciled", "error", err)
	}
}

//  Catalog administration

// ReplaceCatalog persists a new catalog generation and atomically swaps the
// in-memory snapshot. In-flight attempts keep the snapshot they fetched.
func (s *ServingService) ReplaceCatalog(ctx context.Context, version int, ads []domain.CreativeAd) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if version <= 0 {
		return fmt.Errorf("catalog version must be positive, got %d", version)
	}

	now := s.clock()

	if err := s.catalogRepo.Replace(ctx, version, now, ads); err != nil {
		return fmt.Errorf("persist catalog: %w", err)
	}

	s.catalogStore.Replace(catalog.BuildSnapshot(version, now, ads))

	return nil
}

// LoadCatalog restores the last persisted catalog generation into the
// in-memory store, typically at process start.
func (s *ServingService) LoadCatalog(ctx context.Context) error {
	version, lastUpdated, ads, err := s.catalogRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if version == 0 {
		logger.Info("no persisted catalog found")
		return nil
	}

	s.catalogStore.Replace(catalog.BuildSnapshot(version, lastUpdated, ads))

	return nil
}
