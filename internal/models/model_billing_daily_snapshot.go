package models

import (
	"time"
)

// BillingDailySnapshot is a per-day aggregate of billing and affiliate
// activity for analytics. Rows are upserted idempotently per snapshot date.
type BillingDailySnapshot struct {
	ID string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	// SnapshotDate is the day key in "2006-01-02" format.
	SnapshotDate        string    `gorm:"column:snapshot_date;type:varchar(10);not null;uniqueIndex" json:"snapshot_date"`
	ActiveSubscriptions int64     `gorm:"column:active_subscriptions;not null;default:0" json:"active_subscriptions"`
	NewSubscriptions    int64     `gorm:"column:new_subscriptions;not null;default:0" json:"new_subscriptions"`
	ChargesSucceeded    int64     `gorm:"column:charges_succeeded;not null;default:0" json:"charges_succeeded"`
	ChargesFailed       int64     `gorm:"column:charges_failed;not null;default:0" json:"charges_failed"`
	GrossVolume         float64   `gorm:"column:gross_volume;not null;default:0" json:"gross_volume"`
	CommissionsAccrued  float64   `gorm:"column:commissions_accrued;not null;default:0" json:"commissions_accrued"`
	SnapshotCreatedAt   time.Time `gorm:"column:snapshot_created_at" json:"snapshot_created_at"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (BillingDailySnapshot) TableName() string {
	return "billing_daily_snapshot"
}
