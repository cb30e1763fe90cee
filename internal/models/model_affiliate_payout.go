package models

import (
	"time"

	"github.com/tradeacademy/commissioner/pkg/types"
)

// AffiliatePayout is an append-only record of money owed or paid to an
// affiliate, created by reward claims and manual settlement.
type AffiliatePayout struct {
	ID        string             `gorm:"column:id;type:uuid;primary_key" json:"id"`
	ProgramID string             `gorm:"column:program_id;type:uuid;not null;index" json:"program_id"`
	UserID    string             `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	Amount    float64            `gorm:"column:amount;not null" json:"amount"`
	Method    types.PayoutMethod `gorm:"column:method;type:varchar(32);not null" json:"method"`
	Status    types.PayoutStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	// Reference describes the payout origin, e.g. the claimed challenge row.
	Reference string    `gorm:"column:reference;type:varchar(128)" json:"reference"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AffiliatePayout) TableName() string {
	return "affiliate_payout"
}
