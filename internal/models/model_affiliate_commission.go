package models

import (
	"time"

	"github.com/tradeacademy/commissioner/pkg/types"
)

// AffiliateCommission is money owed to an affiliate for one qualifying
// revenue event. The unique index over (program, referred user, type,
// related entity id) is the idempotency guard: a retried or duplicated event
// can never produce a second row.
type AffiliateCommission struct {
	ID             string                 `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ProgramID      string                 `gorm:"column:program_id;type:uuid;not null;uniqueIndex:idx_commission_dedup,priority:1" json:"program_id"`
	ReferredUserID string                 `gorm:"column:referred_user_id;type:varchar(64);not null;uniqueIndex:idx_commission_dedup,priority:2" json:"referred_user_id"`
	Type           types.CommissionType   `gorm:"column:type;type:varchar(32);not null;uniqueIndex:idx_commission_dedup,priority:3" json:"type"`
	RelatedType    string                 `gorm:"column:related_type;type:varchar(64);not null" json:"related_type"`
	RelatedID      string                 `gorm:"column:related_id;type:varchar(128);not null;uniqueIndex:idx_commission_dedup,priority:4" json:"related_id"`
	Amount         float64                `gorm:"column:amount;not null" json:"amount"`
	Status         types.CommissionStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	Verified       bool                   `gorm:"column:verified;not null;default:false" json:"verified"`
	VerifiedBy     string                 `gorm:"column:verified_by;type:varchar(64)" json:"verified_by"`
	VerifiedAt     *time.Time             `gorm:"column:verified_at;default:null" json:"verified_at"`
	PaidAt         *time.Time             `gorm:"column:paid_at;default:null" json:"paid_at"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func (AffiliateCommission) TableName() string {
	return "affiliate_commission"
}
