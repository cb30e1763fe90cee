package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/tradeacademy/commissioner/pkg/types"
)

// SubscriptionLog records subscription state changes.
// Use case: troubleshooting and audit.
type SubscriptionLog struct {
	ID             string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	SubscriptionID string `gorm:"column:subscription_id;type:uuid;index;not null"`
	UserID         string `gorm:"column:user_id;type:varchar(64);index;not null"`
	// Reason is the change reason.
	Reason types.SubscriptionChangeReason `gorm:"column:reason;type:varchar(64);not null"`
	// Before stores subscription data before the change in JSON format.
	Before datatypes.JSONType[*Subscription] `gorm:"column:before;type:jsonb;default:'null'"`
	// After stores subscription data after the change in JSON format.
	After datatypes.JSONType[*Subscription] `gorm:"column:after;type:jsonb;default:'null'"`
	// Extra stores additional context such as reason details and trigger source.
	Extra     datatypes.JSONMap `gorm:"column:extra;type:jsonb;default:'{}'"`
	CreatedAt time.Time
}

func (SubscriptionLog) TableName() string {
	return "subscription_log"
}
