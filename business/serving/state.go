package serving

// AttemptState tracks one serving attempt through the pipeline. Terminal
// states are Served, NoEligibleAd and Denied; a failed attempt is never
// retried, the next opportunity starts fresh at Idle.
type AttemptState int

const (
	StateIdle AttemptState = iota
	StatePermissionCheck
	StateCandidateFetch
	StateExclude
	StatePace
	StateScore
	StateSelect
	StateServed
	StateNoEligibleAd
	StateDenied
)

func (s AttemptState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePermissionCheck:
		return "permission_check"
	case StateCandidateFetch:
		return "candidate_fetch"
	case StateExclude:
		return "exclude"
	case StatePace:
		return "pace"
	case StateScore:
		return "score"
	case StateSelect:
		return "select"
	case StateServed:
		return "served"
	case StateNoEligibleAd:
		return "no_eligible_ad"
	case StateDenied:
		return "denied"
	default:
		return "unknown"
	}
}
