package domain

import "time"

// BanditArm tracks the epsilon-greedy statistic for one segment.
// Value is the incremental mean of observed rewards in [0, 1].
type BanditArm struct {
	Segment     string    `json:"segment"`
	Value       float64   `json:"value"`
	Pulls       int       `json:"pulls"`
	LastUpdated time.Time `json:"last_updated"`
}
