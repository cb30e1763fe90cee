package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/tradeacademy/commissioner/pkg/types"
)

// Subscription is one user's recurring subscription to a product line.
// A user has at most one active subscription per product line; billing is
// driven by comparing CurrentPeriodEnd against wall-clock time, so the
// period boundary, not a charge counter, is the source of truth.
type Subscription struct {
	ID          string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID      string `gorm:"column:user_id;type:varchar(64);not null;index:idx_subscription_user_product,priority:1;index:idx_subscription_one_active,unique,where:status = 'active',priority:1" json:"user_id"`
	ProductLine string `gorm:"column:product_line;type:varchar(64);not null;index:idx_subscription_user_product,priority:2;index:idx_subscription_one_active,unique,where:status = 'active',priority:2" json:"product_line"`
	// PlanCode references the configured billing plan catalogue.
	PlanCode string                   `gorm:"column:plan_code;type:varchar(64);not null" json:"plan_code"`
	Plan     types.SubscriptionPlan   `gorm:"column:plan;type:varchar(32);not null" json:"plan"`
	Status   types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	Amount   float64                  `gorm:"column:amount;not null" json:"amount"`
	Currency string                   `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	// CurrentPeriodEnd is always >= CurrentPeriodStart.
	CurrentPeriodStart time.Time  `gorm:"column:current_period_start;not null" json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `gorm:"column:current_period_end;not null;index" json:"current_period_end"`
	NextBillingAt      *time.Time `gorm:"column:next_billing_at;default:null" json:"next_billing_at"`
	// FailedPayments counts consecutive failed charges; it resets to zero
	// on every successful charge.
	FailedPayments    int            `gorm:"column:failed_payments;not null;default:0" json:"failed_payments"`
	MaxFailedPayments int            `gorm:"column:max_failed_payments;not null;default:3" json:"max_failed_payments"`
	CancelledAt       *time.Time     `gorm:"column:cancelled_at;default:null" json:"cancelled_at"`
	CancelReason      string         `gorm:"column:cancel_reason;type:varchar(255)" json:"cancel_reason"`
	Extra             datatypes.JSON `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscription"
}

func (s *Subscription) Valid() bool {
	return s != nil &&
		s.Status == types.SubscriptionStatusActive &&
		s.CurrentPeriodEnd.After(time.Now())
}
