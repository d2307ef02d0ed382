package serving

import "adserve/domain"

// Delegate is notified of serving attempt outcomes. Notifications are
// fire-and-forget and emitted at most once per attempt.
type Delegate interface {
	OnOpportunityArose(adType string)
	OnDidServe(ad domain.CreativeAd)
	OnFailedToServe(adType string, reason string)
}

// NoopDelegate is the default when no collaborator is interested.
type NoopDelegate struct{}

func (NoopDelegate) OnOpportunityArose(adType string)             {}
func (NoopDelegate) OnDidServe(ad domain.CreativeAd)              {}
func (NoopDelegate) OnFailedToServe(adType string, reason string) {}
