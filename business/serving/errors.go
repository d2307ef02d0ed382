package serving

import "errors"

// Every failure here is recoverable: it terminates the current attempt and
// returns control to the caller. Retry policy belongs to the caller's
// scheduler, never to this core.
var (
	ErrNoEligibleAds           = errors.New("no eligible ads")
	ErrCatalogUnavailable      = errors.New("catalog unavailable")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	ErrUnknownConfirmationType = errors.New("unknown confirmation type")
)
