package models

import (
	"time"

	"github.com/tradeacademy/commissioner/pkg/types"
)

// AffiliateProgram is a referring user's enrollment record. Programs are
// never deleted, only deactivated.
type AffiliateProgram struct {
	ID     string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex" json:"user_id"`
	// Code is the unique referral code handed out to prospects.
	Code string              `gorm:"column:code;type:varchar(32);not null;uniqueIndex" json:"code"`
	Tier types.AffiliateTier `gorm:"column:tier;type:varchar(32);not null" json:"tier"`
	// CommissionRate is a percentage derived from Tier.
	CommissionRate float64 `gorm:"column:commission_rate;not null" json:"commission_rate"`
	// ReferralCount is the cumulative referral count driving tier upgrades.
	ReferralCount int `gorm:"column:referral_count;not null;default:0" json:"referral_count"`
	// TotalEarnings is everything ever credited to the affiliate.
	TotalEarnings float64 `gorm:"column:total_earnings;not null;default:0" json:"total_earnings"`
	// PendingEarnings is the portion not yet paid out.
	PendingEarnings float64   `gorm:"column:pending_earnings;not null;default:0" json:"pending_earnings"`
	Active          bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (AffiliateProgram) TableName() string {
	return "affiliate_program"
}
