package permission

import (
	"fmt"
	"time"

	"adserve/business/history"
	"adserve/domain"
)

// Context is the injected state permission rules evaluate against. Rules are
// pure functions of this snapshot and have no side effects.
type Context struct {
	Now time.Time

	CatalogVersion     int
	CatalogLastUpdated time.Time
	CatalogMaxAge      time.Duration

	IssuersValid bool

	MinimumWait time.Duration
	ServedTimes []time.Time // all served events, most recent last

	UserActive    bool
	BrowserActive bool
}

// DeniedError reports which rule blocked serving and why. Denial is
// recoverable; it only means "don't serve now".
type DeniedError struct {
	Rule   string
	Reason string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("serving not permitted by %s: %s", e.Rule, e.Reason)
}

// Rule gates whether a serving attempt may proceed at all, independent of
// which ad would be chosen.
type Rule interface {
	Name() string
	ShouldAllow(pctx Context) error
}

// ShouldAllow evaluates rules in order and returns the first denial, so the
// failure reason is always attributable to a single rule.
func ShouldAllow(pctx Context, rules []Rule) error {
	for _, rule := range rules {
		if err := rule.ShouldAllow(pctx); err != nil {
			return err
		}
	}
	return nil
}

// ---- concrete rules ----

type CatalogExistsRule struct{}

func (CatalogExistsRule) Name() string { return "catalog_exists" }

func (r CatalogExistsRule) ShouldAllow(pctx Context) error {
	if pctx.CatalogVersion <= 0 {
		return &DeniedError{Rule: r.Name(), Reason: "no catalog has been loaded"}
	}
	return nil
}

type CatalogFreshRule struct{}

func (CatalogFreshRule) Name() string { return "catalog_not_expired" }

func (r CatalogFreshRule) ShouldAllow(pctx Context) error {
	if pctx.CatalogMaxAge <= 0 {
		return nil
	}
	age := pctx.Now.Sub(pctx.CatalogLastUpdated)
	if age > pctx.CatalogMaxAge {
		return &DeniedError{
			Rule:   r.Name(),
			Reason: fmt.Sprintf("catalog is %s old, maximum is %s", age, pctx.CatalogMaxAge),
		}
	}
	return nil
}

type IssuersValidRule struct{}

func (IssuersValidRule) Name() string { return "issuers_valid" }

func (r IssuersValidRule) ShouldAllow(pctx Context) error {
	if !pctx.IssuersValid {
		return &DeniedError{Rule: r.Name(), Reason: "confirmation token issuers are not valid"}
	}
	return nil
}

// MinimumWaitRule allows serving only when no served event exists inside the
// trailing minimum-wait window, i.e. a cap=1 rolling constraint over the full
// served history.
type MinimumWaitRule struct{}

func (MinimumWaitRule) Name() string { return "minimum_wait_time" }

func (r MinimumWaitRule) ShouldAllow(pctx Context) error {
	if pctx.MinimumWait <= 0 {
		return nil
	}
	if !history.RespectsRollingConstraint(pctx.ServedTimes, pctx.MinimumWait, 1, pctx.Now) {
		return &DeniedError{
			Rule:   r.Name(),
			Reason: fmt.Sprintf("an ad was served within the last %s", pctx.MinimumWait),
		}
	}
	return nil
}

type UserActivityRule struct{}

func (UserActivityRule) Name() string { return "user_activity" }

func (r UserActivityRule) ShouldAllow(pctx Context) error {
	if !pctx.UserActive {
		return &DeniedError{Rule: r.Name(), Reason: "no recent user activity"}
	}
	return nil
}

type BrowserActiveRule struct{}

func (BrowserActiveRule) Name() string { return "browser_active" }

func (r BrowserActiveRule) ShouldAllow(pctx Context) error {
	if !pctx.BrowserActive {
		return &DeniedError{Rule: r.Name(), Reason: "browser is not active"}
	}
	return nil
}

// RulesForAdType composes the permission rule set for an ad unit type.
// Notification ads interrupt the user, so they additionally require recent
// user activity and an active browser; content placements are only gated on
// catalog state, issuers and the minimum wait.
func RulesForAdType(adType string) []Rule {
	base := []Rule{
		CatalogExistsRule{},
		CatalogFreshRule{},
		IssuersValidRule{},
		MinimumWaitRule{},
	}

	if adType == domain.AdTypeNotification {
		base = append(base, UserActivityRule{}, BrowserActiveRule{})
	}

	return base
}
