package models

import (
	"time"

	"github.com/tradeacademy/commissioner/pkg/types"
)

// BillingRecord is an append-only charge attempt tied to a subscription.
type BillingRecord struct {
	ID             string               `gorm:"column:id;type:uuid;primary_key" json:"id"`
	SubscriptionID string               `gorm:"column:subscription_id;type:uuid;not null;index" json:"subscription_id"`
	UserID         string               `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	Amount         float64              `gorm:"column:amount;not null" json:"amount"`
	Currency       string               `gorm:"column:currency;type:varchar(8);not null" json:"currency"`
	Outcome        types.BillingOutcome `gorm:"column:outcome;type:varchar(32);not null" json:"outcome"`
	// GatewayRef is the gateway-side reference for the charge attempt.
	GatewayRef  string    `gorm:"column:gateway_ref;type:varchar(128)" json:"gateway_ref"`
	FailureCode string    `gorm:"column:failure_code;type:varchar(64)" json:"failure_code"`
	ChargedAt   time.Time `gorm:"column:charged_at;not null" json:"charged_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (BillingRecord) TableName() string {
	return "billing_record"
}
