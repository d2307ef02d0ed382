package exclusion

import (
	"time"

	"adserve/business/history"
	"adserve/domain"
	"adserve/pkg/logger"
)

// RuleConfig carries the feature-controlled knobs exclusion rules read.
// Zero-valued caps mean unlimited; zero-valued lookbacks disable the rule.
type RuleConfig struct {
	CampaignDailyCap   int
	AdvertiserDailyCap int

	DismissedLookback   time.Duration
	TransferredLookback time.Duration
	ConversionLookback  time.Duration

	ConversionExclusionEnabled bool
	AntiTargetingEnabled       bool
}

// Context is the per-attempt snapshot exclusion rules evaluate against.
type Context struct {
	Now   time.Time
	Index *history.Index

	// Resolved geographic subdivision. When unsupported the subdivision rule
	// passes all ads.
	SubdivisionCode      string
	SubdivisionSupported bool

	// site -> segments correlated with that site, restricted to the user's
	// recently visited sites.
	AntiTargetedSegments map[string][]string

	OptedOutSegments map[string]struct{}

	// Active split test group for this user; ads in other groups are excluded.
	SplitTestGroup string

	Config RuleConfig
}

// Rule is an independent, order-insensitive predicate over one candidate.
// CacheKey lets the rule set memoize decisions shared across candidates
// (e.g. campaign-level caps) within one serving call.
type Rule interface {
	Name() string
	CacheKey(ad domain.CreativeAd) string
	ShouldInclude(ad domain.CreativeAd) bool
}

// RuleSet applies every rule to every candidate, preserving relative order.
// Rules should be ordered cheapest first; evaluation of a candidate stops at
// its first exclusion.
type RuleSet struct {
	rules     []Rule
	decisions map[string]bool
}

// NewRuleSet builds the default rule set for the given context, cheapest
// rules first.
func NewRuleSet(ectx Context) *RuleSet {
	return &RuleSet{
		rules: []Rule{
			&splitTestRule{ectx: ectx},
			&optOutRule{ectx: ectx},
			&daypartRule{ectx: ectx},
			&subdivisionRule{ectx: ectx},
			&antiTargetingRule{ectx: ectx},
			&totalCapRule{ectx: ectx},
			&perDayCapRule{ectx: ectx},
			&perWeekCapRule{ectx: ectx},
			&campaignDailyCapRule{ectx: ectx},
			&advertiserDailyCapRule{ectx: ectx},
			&dismissedRule{ectx: ectx},
			&transferredRule{ectx: ectx},
			&convertedWithinWindowRule{ectx: ectx},
			&conversionRule{ectx: ectx},
		},
		decisions: make(map[string]bool),
	}
}

// NewRuleSetWithRules is used by tests to exercise custom rule orderings.
func NewRuleSetWithRules(rules []Rule) *RuleSet {
	return &RuleSet{
		rules:     rules,
		decisions: make(map[string]bool),
	}
}

// Apply filters candidates, preserving relative order.
func (rs *RuleSet) Apply(candidates []domain.CreativeAd) []domain.CreativeAd {
	out := make([]domain.CreativeAd, 0, len(candidates))

	for _, ad := range candidates {
		if rs.shouldInclude(ad) {
			out = append(out, ad)
		}
	}

	return out
}

func (rs *RuleSet) shouldInclude(ad domain.CreativeAd) bool {
	for _, rule := range rs.rules {
		key := rule.Name() + "|" + rule.CacheKey(ad)

		include, ok := rs.decisions[key]
		if !ok {
			include = rule.ShouldInclude(ad)
			rs.decisions[key] = include
		}

		if !include {
			logger.Debug("candidate excluded",
				"rule", rule.Name(),
				"creative_instance_id", ad.CreativeInstanceID,
			)
			exclusionsTotal.WithLabelValues(rule.Name()).Inc()
			return false
		}
	}

	return true
}
