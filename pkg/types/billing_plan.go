package types

// BillingPlan is a configured, purchasable recurring plan. The catalogue
// lives in the service configuration, not the database.
type BillingPlan struct {
	Code        string           `json:"code" mapstructure:"code"`
	ProductLine string           `json:"product_line" mapstructure:"product_line"`
	Plan        SubscriptionPlan `json:"plan" mapstructure:"plan"`
	Amount      float64          `json:"amount" mapstructure:"amount"`
	Currency    string           `json:"currency" mapstructure:"currency"`
	// MaxFailedPayments is the number of consecutive failed charges after
	// which the subscription is cancelled. Zero means the service default.
	MaxFailedPayments int `json:"max_failed_payments" mapstructure:"max_failed_payments"`
}
