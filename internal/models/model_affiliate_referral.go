package models

import (
	"time"

	"github.com/tradeacademy/commissioner/pkg/types"
)

// AffiliateReferral links a program to a user who signed up through it.
// At most one referral exists per (program, referred user) pair, and a
// referral converts at most once.
type AffiliateReferral struct {
	ID             string               `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ProgramID      string               `gorm:"column:program_id;type:uuid;not null;uniqueIndex:idx_referral_program_user,priority:1" json:"program_id"`
	ReferredUserID string               `gorm:"column:referred_user_id;type:varchar(64);not null;uniqueIndex:idx_referral_program_user,priority:2" json:"referred_user_id"`
	Status         types.ReferralStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	ConvertedAt    *time.Time           `gorm:"column:converted_at;default:null" json:"converted_at"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

func (AffiliateReferral) TableName() string {
	return "affiliate_referral"
}
