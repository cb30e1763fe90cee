package models

import (
	"time"

	"gorm.io/datatypes"
)

// MonthlyChallenge accumulates an affiliate's referrals for one calendar
// month. The reward is granted at most once per row; RewardClaimed is only
// ever flipped through a conditional update.
type MonthlyChallenge struct {
	ID     string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:idx_challenge_user_month,priority:1" json:"user_id"`
	// Month is the calendar month key in "2006-01" format.
	Month         string `gorm:"column:month;type:varchar(7);not null;uniqueIndex:idx_challenge_user_month,priority:2" json:"month"`
	ReferralCount int    `gorm:"column:referral_count;not null;default:0" json:"referral_count"`
	// ReferredUserIDs lists the qualifying referred users. It may grow past
	// the threshold; only the first crossing claims the reward.
	ReferredUserIDs datatypes.JSONSlice[string] `gorm:"column:referred_user_ids" json:"referred_user_ids"`
	RewardClaimed   bool                        `gorm:"column:reward_claimed;not null;default:false" json:"reward_claimed"`
	ClaimedAt       *time.Time                  `gorm:"column:claimed_at;default:null" json:"claimed_at"`
	RewardAmount    float64                     `gorm:"column:reward_amount;not null;default:0" json:"reward_amount"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

func (MonthlyChallenge) TableName() string {
	return "monthly_challenge"
}
