package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Confirmation types recorded in the event history.
const (
	ConfirmationServed      = "served"
	ConfirmationViewed      = "viewed"
	ConfirmationClicked     = "clicked"
	ConfirmationDismissed   = "dismissed"
	ConfirmationLanded      = "landed"
	ConfirmationTransferred = "transferred"
	ConfirmationConversion  = "conversion"
)

// AdEvent is an append-only record of a user interaction with a creative.
// Rows are never mutated after insert except for the Reconciled flag, which
// marks served impressions whose bandit observation window has been settled.
type AdEvent struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CreativeInstanceID string `gorm:"column:creative_instance_id;not null;index" json:"creative_instance_id"`
	CreativeSetID      string `gorm:"column:creative_set_id" json:"creative_set_id"`
	CampaignID         string `gorm:"column:campaign_id;index" json:"campaign_id"`
	AdvertiserID       string `gorm:"column:advertiser_id;index" json:"advertiser_id"`

	AdType           string `gorm:"column:ad_type" json:"ad_type"`
	Segment          string `gorm:"column:segment" json:"segment"`
	ConfirmationType string `gorm:"column:confirmation_type;not null;index" json:"confirmation_type"`

	Reconciled bool `gorm:"column:reconciled;default:false;index" json:"reconciled"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	Context datatypes.JSONMap `gorm:"column:context;type:jsonb" json:"context"`
}

func (AdEvent) TableName() string {
	return "ad_events"
}

// IsValidConfirmationType reports whether t is a recognized confirmation type.
func IsValidConfirmationType(t string) bool {
	switch t {
	case ConfirmationServed, ConfirmationViewed, ConfirmationClicked,
		ConfirmationDismissed, ConfirmationLanded, ConfirmationTransferred,
		ConfirmationConversion:
		return true
	}
	return false
}
