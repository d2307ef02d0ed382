package serving

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"adserve/business/catalog"
	"adserve/business/pacing"
	"adserve/business/permission"
	"adserve/domain"
)

var serveNow = time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

// ---- fakes ----

type fakeEventRepo struct {
	mu     sync.Mutex
	events []domain.AdEvent
	nextID uint
}

func (r *fakeEventRepo) SaveEvent(ctx context.Context, event domain.AdEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	event.ID = r.nextID
	r.events = append(r.events, event)
	return nil
}

func (r *fakeEventRepo) GetEventsSince(ctx context.Context, since time.Time) ([]domain.AdEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AdEvent
	for _, ev := range r.events {
		if !ev.CreatedAt.Before(since) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) GetServedCounts(ctx context.Context) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int)
	for _, ev := range r.events {
		if ev.ConfirmationType == domain.ConfirmationServed {
			counts[ev.CreativeInstanceID]++
		}
	}
	return counts, nil
}

func (r *fakeEventRepo) GetConvertedCreatives(ctx context.Context) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	converted := make(map[string]struct{})
	for _, ev := range r.events {
		if ev.ConfirmationType == domain.ConfirmationConversion {
			converted[ev.CreativeInstanceID] = struct{}{}
		}
	}
	return converted, nil
}

func (r *fakeEventRepo) GetUnreconciledServed(ctx context.Context, before time.Time) ([]domain.AdEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AdEvent
	for _, ev := range r.events {
		if ev.ConfirmationType == domain.ConfirmationServed && !ev.Reconciled && ev.CreatedAt.Before(before) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) HasInteractionAfter(ctx context.Context, creativeInstanceID string, after time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.CreativeInstanceID != creativeInstanceID || !ev.CreatedAt.After(after) {
			continue
		}
		if ev.ConfirmationType == domain.ConfirmationClicked || ev.ConfirmationType == domain.ConfirmationConversion {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeEventRepo) MarkReconciled(ctx context.Context, ids []uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	marked := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		marked[id] = struct{}{}
	}
	for i := range r.events {
		if _, ok := marked[r.events[i].ID]; ok {
			r.events[i].Reconciled = true
		}
	}
	return nil
}

func (r *fakeEventRepo) byType(confirmationType string) []domain.AdEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AdEvent
	for _, ev := range r.events {
		if ev.ConfirmationType == confirmationType {
			out = append(out, ev)
		}
	}
	return out
}

type fakeCatalogRepo struct {
	version     int
	lastUpdated time.Time
	ads         []domain.CreativeAd
}

func (r *fakeCatalogRepo) Replace(ctx context.Context, version int, lastUpdated time.Time, ads []domain.CreativeAd) error {
	r.version = version
	r.lastUpdated = lastUpdated
	r.ads = ads
	return nil
}

func (r *fakeCatalogRepo) Load(ctx context.Context) (int, time.Time, []domain.CreativeAd, error) {
	return r.version, r.lastUpdated, r.ads, nil
}

type fakeConfigRepo struct {
	row domain.ServingConfig
	ok  bool
	err error
}

func (r *fakeConfigRepo) GetConfig(ctx context.Context, adType string) (domain.ServingConfig, bool, error) {
	return r.row, r.ok, r.err
}

func (r *fakeConfigRepo) UpsertConfig(ctx context.Context, cfg domain.ServingConfig) error {
	return nil
}

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

type recordingDelegate struct {
	opportunities []string
	served        []string
	failures      []string
}

func (d *recordingDelegate) OnOpportunityArose(adType string) {
	d.opportunities = append(d.opportunities, adType)
}

func (d *recordingDelegate) OnDidServe(ad domain.CreativeAd) {
	d.served = append(d.served, ad.CreativeInstanceID)
}

func (d *recordingDelegate) OnFailedToServe(adType, reason string) {
	d.failures = append(d.failures, reason)
}

type seqRand struct {
	values []float64
	i      int
}

func (r *seqRand) Float64() float64 {
	v := r.values[r.i%len(r.values)]
	r.i++
	return v
}

// ---- helpers ----

func serveAd(id, segment string) domain.CreativeAd {
	return domain.CreativeAd{
		CreativeInstanceID: id,
		CreativeSetID:      "set-" + id,
		CampaignID:         "camp-" + id,
		AdvertiserID:       "adv-" + id,
		AdType:             domain.AdTypeInlineContent,
		Segment:            segment,
		Priority:           1,
		PTR:                1.0,
	}
}

type testEnv struct {
	svc      *ServingService
	events   *fakeEventRepo
	arms     *memArmStore
	delegate *recordingDelegate
}

func newTestEnv(ads []domain.CreativeAd, mutate func(*Config)) *testEnv {
	events := &fakeEventRepo{}
	arms := newMemArmStore()
	delegate := &recordingDelegate{}

	cfg := DefaultConfig()
	cfg.Epsilon = 0 // deterministic arg-max unless a test opts back in
	if mutate != nil {
		mutate(&cfg)
	}

	store := catalog.NewStore()
	store.Replace(catalog.BuildSnapshot(1, serveNow.Add(-time.Hour), ads))

	svc := NewServingService(
		store,
		&fakeCatalogRepo{},
		events,
		nil,
		arms,
		nil,
		nil,
		StaticSubdivisionResolver{},
		StaticIssuerStatus{Valid: true},
		pacing.NewPacer(&seqRand{values: []float64{0.5}}),
		&seqRand{values: []float64{0.5}},
		delegate,
		func() time.Time { return serveNow },
		cfg,
	)

	return &testEnv{svc: svc, events: events, arms: arms, delegate: delegate}
}

func inlineOpportunity(segments ...string) Opportunity {
	return Opportunity{
		AdType: domain.AdTypeInlineContent,
		User:   domain.UserModel{IntentSegments: segments},
	}
}

// ---- serving ----

func TestServeAdSelectsEligibleCandidate(t *testing.T) {
	a := serveAd("ad-a", "food-restaurants")
	b := serveAd("ad-b", "food-restaurants")
	b.PerDay = 1

	env := newTestEnv([]domain.CreativeAd{a, b}, nil)

	// b already hit its per-day cap
	_ = env.events.SaveEvent(context.Background(), domain.AdEvent{
		CreativeInstanceID: "ad-b",
		CampaignID:         b.CampaignID,
		AdvertiserID:       b.AdvertiserID,
		ConfirmationType:   domain.ConfirmationServed,
		CreatedAt:          serveNow.Add(-time.Hour),
	})

	got, err := env.svc.ServeAd(context.Background(), inlineOpportunity("food-restaurants"))
	if err != nil {
		t.Fatalf("ServeAd() error = %v", err)
	}
	if got.CreativeInstanceID != "ad-a" {
		t.Errorf("ServeAd() picked %s, want ad-a", got.CreativeInstanceID)
	}

	if len(env.delegate.opportunities) != 1 || len(env.delegate.served) != 1 {
		t.Errorf("delegate calls = %v / %v, want one opportunity and one serve",
			env.delegate.opportunities, env.delegate.served)
	}

	served := env.events.byType(domain.ConfirmationServed)
	if len(served) != 2 {
		t.Fatalf("served events = %d, want 2 (preexisting + new)", len(served))
	}
	last := served[len(served)-1]
	if last.CreativeInstanceID != "ad-a" || last.Segment != "food-restaurants" {
		t.Errorf("served event = %+v, want ad-a in food-restaurants", last)
	}
}

func TestServeAdExcludesConversionOlderThanSnapshot(t *testing.T) {
	a := serveAd("ad-a", "food-restaurants")
	b := serveAd("ad-b", "food-restaurants")

	env := newTestEnv([]domain.CreativeAd{a, b}, nil)

	// conversion far older than the per-attempt event snapshot
	_ = env.events.SaveEvent(context.Background(), domain.AdEvent{
		CreativeInstanceID: "ad-b",
		CampaignID:         b.CampaignID,
		AdvertiserID:       b.AdvertiserID,
		ConfirmationType:   domain.ConfirmationConversion,
		CreatedAt:          serveNow.Add(-91 * 24 * time.Hour),
	})

	got, err := env.svc.ServeAd(context.Background(), inlineOpportunity("food-restaurants"))
	if err != nil {
		t.Fatalf("ServeAd() error = %v", err)
	}
	if got.CreativeInstanceID != "ad-a" {
		t.Errorf("ServeAd() picked %s, want ad-a (ad-b already converted)", got.CreativeInstanceID)
	}
}

func TestServeAdTotalCapCountsOlderThanSnapshot(t *testing.T) {
	a := serveAd("ad-a", "food-restaurants")
	b := serveAd("ad-b", "food-restaurants")
	b.TotalMax = 2

	env := newTestEnv([]domain.CreativeAd{a, b}, nil)

	// three lifetime serves, all before the snapshot horizon
	for days := 100; days <= 102; days++ {
		_ = env.events.SaveEvent(context.Background(), domain.AdEvent{
			CreativeInstanceID: "ad-b",
			CampaignID:         b.CampaignID,
			AdvertiserID:       b.AdvertiserID,
			ConfirmationType:   domain.ConfirmationServed,
			CreatedAt:          serveNow.Add(-time.Duration(days) * 24 * time.Hour),
		})
	}

	got, err := env.svc.ServeAd(context.Background(), inlineOpportunity("food-restaurants"))
	if err != nil {
		t.Fatalf("ServeAd() error = %v", err)
	}
	if got.CreativeInstanceID != "ad-a" {
		t.Errorf("ServeAd() picked %s, want ad-a (ad-b exhausted its total cap)", got.CreativeInstanceID)
	}
}

func TestServeAdPacesOutZeroPTR(t *testing.T) {
	a := serveAd("ad-a", "food-restaurants")
	a.PTR = 0.0
	b := serveAd("ad-b", "food-restaurants")

	env := newTestEnv([]domain.CreativeAd{a, b}, nil)

	got, err := env.svc.ServeAd(context.Background(), inlineOpportunity("food-restaurants"))
	if err != nil {
		t.Fatalf("ServeAd() error = %v", err)
	}
	if got.CreativeInstanceID != "ad-b" {
		t.Errorf("ServeAd() picked %s, want ad-b (ad-a must be paced out)", got.CreativeInstanceID)
	}
}

func TestServeAdPacingDisabledKeepsZeroPTR(t *testing.T) {
	a := serveAd("ad-a", "food-restaurants")
	a.PTR = 0.0
	a.Priority = 1
	b := serveAd("ad-b", "food-restaurants")
	b.Priority = 2

	env := newTestEnv([]domain.CreativeAd{a, b}, func(cfg *Config) {
		cfg.Features.PacingEnabled = false
	})

	got, err := env.svc.ServeAd(context.Background(), inlineOpportunity("food-restaurants"))
	if err != nil {
		t.Fatalf("ServeAd() error = %v", err)
	}
	if got.CreativeInstanceID != "ad-a" {
		t.Errorf("with pacing disabled the higher-priority ad should win, got %s", got.CreativeInstanceID)
	}
}

func TestServeAdDeniedByMinimumWait(t *testing.T) {
	env := newTestEnv([]domain.CreativeAd{serveAd("ad-a", "food-restaurants")}, nil)

	_ = env.events.SaveEvent(context.Background(), domain.AdEvent{
		CreativeInstanceID: "ad-a",
		ConfirmationType:   domain.ConfirmationServed,
		CreatedAt:          serveNow.Add(-10 * time.Second),
	})

	_, err := env.svc.ServeAd(context.Background(), inlineOpportunity("food-restaurants"))
	var denied *permission.DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("ServeAd() error = %v, want DeniedError", err)
	}
	if denied.Rule != "minimum_wait_time" {
		t.Errorf("denied by %s, want minimum_wait_time", denied.Rule)
	}
	if len(env.delegate.failures) != 1 || env.delegate.failures[0] != "minimum_wait_time" {
		t.Errorf("delegate failures = %v, want [minimum_wait_time]", env.delegate.failures)
	}
}

func TestServeAdNotificationRequiresActivity(t *testing.T) {
	ad := serveAd("ad-a", "food-restaurants")
	ad.AdType = domain.AdTypeNotification

	env := newTestEnv([]domain.CreativeAd{ad}, nil)

	opp := Opportunity{
		AdType:        domain.AdTypeNotification,
		User:          domain.UserModel{IntentSegments: []string{"food-restaurants"}},
		UserActive:    false,
		BrowserActive: true,
	}

	_, err := env.svc.ServeAd(context.Background(), opp)
	var denied *permission.DeniedError
	if !errors.As(err, &denied) || denied.Rule != "user_activity" {
		t.Fatalf("ServeAd() error = %v, want user_activity denial", err)
	}

	opp.UserActive = true
	got, err := env.svc.ServeAd(context.Background(), opp)
	if err != nil || got == nil {
		t.Fatalf("active notification opportunity should serve, got %v, %v", got, err)
	}
}

func TestServeAdNoEligibleAds(t *testing.T) {
	env := newTestEnv([]domain.CreativeAd{serveAd("ad-a", "food-restaurants")}, nil)

	_, err := env.svc.ServeAd(context.Background(), inlineOpportunity("travel-hotels"))
	if !errors.Is(err, ErrNoEligibleAds) {
		t.Fatalf("ServeAd() error = %v, want ErrNoEligibleAds", err)
	}
	if len(env.delegate.failures) != 1 || env.delegate.failures[0] != "no_eligible_ads" {
		t.Errorf("delegate failures = %v, want [no_eligible_ads]", env.delegate.failures)
	}
	if got := env.events.byType(domain.ConfirmationServed); len(got) != 0 {
		t.Errorf("failed attempt must not record a served event")
	}
}

func TestServeAdEmptyCatalogDenied(t *testing.T) {
	env := newTestEnv(nil, nil)
	env.svc.catalogStore.Replace(nil)

	_, err := env.svc.ServeAd(context.Background(), inlineOpportunity("food-restaurants"))
	var denied *permission.DeniedError
	if !errors.As(err, &denied) || denied.Rule != "catalog_exists" {
		t.Fatalf("ServeAd() error = %v, want catalog_exists denial", err)
	}
}

func TestServeAdTieBreakDeterministic(t *testing.T) {
	// identical scores: lower priority integer wins, then lexicographic id
	a := serveAd("ad-z", "food-restaurants")
	b := serveAd("ad-a", "food-restaurants")
	c := serveAd("ad-m", "food-restaurants")
	c.Priority = 2

	env := newTestEnv([]domain.CreativeAd{a, b, c}, nil)

	got, err := env.svc.ServeAd(context.Background(), inlineOpportunity("food-restaurants"))
	if err != nil {
		t.Fatalf("ServeAd() error = %v", err)
	}
	if got.CreativeInstanceID != "ad-a" {
		t.Errorf("tie-break picked %s, want ad-a", got.CreativeInstanceID)
	}
}

func TestServeAdExploration(t *testing.T) {
	a := serveAd("ad-a", "food-restaurants")
	b := serveAd("ad-b", "travel-hotels")

	env := newTestEnv([]domain.CreativeAd{a, b}, func(cfg *Config) {
		cfg.Epsilon = 1.0
	})
	// first draw 0.5 < 1.0 triggers exploration, second draw 0.75 picks index 1
	env.svc.rng = &seqRand{values: []float64{0.5, 0.75}}

	got, err := env.svc.ServeAd(context.Background(),
		inlineOpportunity("food-restaurants", "travel-hotels"))
	if err != nil {
		t.Fatalf("ServeAd() error = %v", err)
	}
	if got.CreativeInstanceID != "ad-b" {
		t.Errorf("exploration picked %s, want ad-b", got.CreativeInstanceID)
	}
}

func TestServeAdPrefersHigherArmValue(t *testing.T) {
	a := serveAd("ad-a", "food-restaurants")
	b := serveAd("ad-b", "travel-hotels")

	env := newTestEnv([]domain.CreativeAd{a, b}, nil)

	// travel arm has a strong learned value; food arm has a weak one
	_ = env.arms.PutArm(context.Background(), domain.BanditArm{Segment: "travel-hotels", Value: 0.9, Pulls: 50})
	_ = env.arms.PutArm(context.Background(), domain.BanditArm{Segment: "food-restaurants", Value: 0.1, Pulls: 50})

	// both segments are intent matches, so only the arm value differs
	got, err := env.svc.ServeAd(context.Background(),
		inlineOpportunity("food-restaurants", "travel-hotels"))
	if err != nil {
		t.Fatalf("ServeAd() error = %v", err)
	}
	if got.CreativeInstanceID != "ad-b" {
		t.Errorf("scoring picked %s, want ad-b with the stronger arm", got.CreativeInstanceID)
	}
}

// ---- feedback ----

func TestRecordEventEnrichesAndRewards(t *testing.T) {
	ad := serveAd("ad-a", "food-restaurants")
	env := newTestEnv([]domain.CreativeAd{ad}, nil)

	err := env.svc.RecordEvent(context.Background(), domain.AdEvent{
		CreativeInstanceID: "ad-a",
		ConfirmationType:   domain.ConfirmationClicked,
	})
	if err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}

	clicked := env.events.byType(domain.ConfirmationClicked)
	if len(clicked) != 1 {
		t.Fatalf("clicked events = %d, want 1", len(clicked))
	}
	if clicked[0].CampaignID != ad.CampaignID || clicked[0].Segment != ad.Segment {
		t.Errorf("event not enriched from catalog: %+v", clicked[0])
	}

	arm, ok, _ := env.arms.GetArm(context.Background(), "food-restaurants")
	if !ok || arm.Pulls != 1 || arm.Value != 1.0 {
		t.Errorf("click should record reward 1: arm = %+v, ok = %v", arm, ok)
	}
}

func TestRecordEventRejectsUnknownConfirmation(t *testing.T) {
	env := newTestEnv(nil, nil)

	err := env.svc.RecordEvent(context.Background(), domain.AdEvent{
		CreativeInstanceID: "ad-a",
		ConfirmationType:   "hovered",
	})
	if !errors.Is(err, ErrUnknownConfirmationType) {
		t.Fatalf("RecordEvent() error = %v, want ErrUnknownConfirmationType", err)
	}
}

func TestRecordEventReconcilesExpiredImpressions(t *testing.T) {
	ad := serveAd("ad-a", "food-restaurants")
	env := newTestEnv([]domain.CreativeAd{ad}, nil)

	// served two hours ago with no interaction; observation window is 1h
	_ = env.events.SaveEvent(context.Background(), domain.AdEvent{
		CreativeInstanceID: "ad-a",
		Segment:            "food-restaurants",
		ConfirmationType:   domain.ConfirmationServed,
		CreatedAt:          serveNow.Add(-2 * time.Hour),
	})

	// any inbound event triggers the sweep
	err := env.svc.RecordEvent(context.Background(), domain.AdEvent{
		CreativeInstanceID: "ad-a",
		ConfirmationType:   domain.ConfirmationViewed,
	})
	if err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}

	arm, ok, _ := env.arms.GetArm(context.Background(), "food-restaurants")
	if !ok || arm.Pulls != 1 || arm.Value != 0.0 {
		t.Errorf("expired impression should record reward 0: arm = %+v, ok = %v", arm, ok)
	}

	served := env.events.byType(domain.ConfirmationServed)
	if len(served) != 1 || !served[0].Reconciled {
		t.Errorf("expired impression should be marked reconciled: %+v", served)
	}
}

func TestRecordEventDoesNotSettleInteractedImpressions(t *testing.T) {
	ad := serveAd("ad-a", "food-restaurants")
	env := newTestEnv([]domain.CreativeAd{ad}, nil)

	_ = env.events.SaveEvent(context.Background(), domain.AdEvent{
		CreativeInstanceID: "ad-a",
		Segment:            "food-restaurants",
		ConfirmationType:   domain.ConfirmationServed,
		CreatedAt:          serveNow.Add(-2 * time.Hour),
	})

	// click after the impression means reward 1 once, not reward 0 again
	err := env.svc.RecordEvent(context.Background(), domain.AdEvent{
		CreativeInstanceID: "ad-a",
		ConfirmationType:   domain.ConfirmationClicked,
	})
	if err != nil {
		t.Fatalf("RecordEvent() error = %v", err)
	}

	arm, _, _ := env.arms.GetArm(context.Background(), "food-restaurants")
	if arm.Pulls != 1 || math.Abs(arm.Value-1.0) > 1e-9 {
		t.Errorf("interacted impression must not add reward 0: arm = %+v", arm)
	}
}

// ---- config ----

func TestLoadConfigKeepsDefaultFlagsWithoutStoredFeatures(t *testing.T) {
	env := newTestEnv(nil, nil)
	env.svc.cfgRepo = &fakeConfigRepo{
		row: domain.ServingConfig{
			AdType:  domain.AdTypeInlineContent,
			Epsilon: 0.5,
		},
		ok: true,
	}

	cfg := env.svc.loadConfig(context.Background(), domain.AdTypeInlineContent)
	if cfg.Epsilon != 0.5 {
		t.Errorf("epsilon = %v, want 0.5 from the stored row", cfg.Epsilon)
	}
	if !cfg.Features.PacingEnabled || !cfg.Features.AntiTargetingEnabled || !cfg.Features.ConversionExclusionEnabled {
		t.Errorf("row without stored feature flags must keep the defaults: %+v", cfg.Features)
	}
}

func TestLoadConfigFallsBackOnRepositoryError(t *testing.T) {
	env := newTestEnv(nil, nil)
	env.svc.cfgRepo = &fakeConfigRepo{err: errors.New("parse features for inline_content: unexpected end of JSON input")}

	cfg := env.svc.loadConfig(context.Background(), domain.AdTypeInlineContent)
	if !cfg.Features.PacingEnabled || !cfg.Features.ConversionExclusionEnabled {
		t.Errorf("repository error must fall back to the default flags: %+v", cfg.Features)
	}
}

// ---- catalog ----

func TestReplaceAndLoadCatalog(t *testing.T) {
	env := newTestEnv(nil, nil)
	ctx := context.Background()

	ads := []domain.CreativeAd{serveAd("ad-a", "food-restaurants")}
	if err := env.svc.ReplaceCatalog(ctx, 7, ads); err != nil {
		t.Fatalf("ReplaceCatalog() error = %v", err)
	}

	snap := env.svc.catalogStore.Snapshot()
	if snap.Version() != 7 {
		t.Errorf("snapshot version = %d, want 7", snap.Version())
	}

	// fresh store restores from the persisted generation
	env.svc.catalogStore.Replace(nil)
	if err := env.svc.LoadCatalog(ctx); err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	snap = env.svc.catalogStore.Snapshot()
	if snap == nil || snap.Version() != 7 {
		t.Errorf("LoadCatalog() did not restore version 7")
	}

	if err := env.svc.ReplaceCatalog(ctx, 0, nil); err == nil {
		t.Errorf("ReplaceCatalog() should reject non-positive versions")
	}
}

// ---- debug ----

func TestDebugServeHasNoSideEffects(t *testing.T) {
	a := serveAd("ad-a", "food-restaurants")
	b := serveAd("ad-b", "travel-hotels")
	env := newTestEnv([]domain.CreativeAd{a, b}, nil)

	_ = env.arms.PutArm(context.Background(), domain.BanditArm{Segment: "travel-hotels", Value: 0.9, Pulls: 10})
	_ = env.arms.PutArm(context.Background(), domain.BanditArm{Segment: "food-restaurants", Value: 0.1, Pulls: 10})

	breakdowns, err := env.svc.DebugServe(context.Background(),
		inlineOpportunity("food-restaurants", "travel-hotels"))
	if err != nil {
		t.Fatalf("DebugServe() error = %v", err)
	}
	if len(breakdowns) != 2 {
		t.Fatalf("breakdowns = %d, want 2", len(breakdowns))
	}
	if breakdowns[0].CreativeInstanceID != "ad-b" {
		t.Errorf("best breakdown = %s, want ad-b", breakdowns[0].CreativeInstanceID)
	}
	if breakdowns[0].FinalScore < breakdowns[1].FinalScore {
		t.Errorf("breakdowns not sorted best first")
	}

	if len(env.events.byType(domain.ConfirmationServed)) != 0 {
		t.Errorf("debug serve must not record events")
	}
	if len(env.delegate.served) != 0 || len(env.delegate.opportunities) != 0 {
		t.Errorf("debug serve must not notify the delegate")
	}
}
