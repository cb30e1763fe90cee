package types

type SubscriptionStatus string

const (
	// SubscriptionStatusPending means the subscription awaits its first
	// successful charge.
	SubscriptionStatusPending SubscriptionStatus = "pending"
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusPaused  SubscriptionStatus = "paused"
	// SubscriptionStatusFailed means the initial charge was declined; the
	// subscription never provided service.
	SubscriptionStatusFailed    SubscriptionStatus = "failed"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

type SubscriptionPlan string

const (
	SubscriptionPlanMonthly SubscriptionPlan = "monthly"
	SubscriptionPlanYearly  SubscriptionPlan = "yearly"
)

// BillingMonths returns the number of months a single billing cycle covers.
func (p SubscriptionPlan) BillingMonths() int {
	if p == SubscriptionPlanYearly {
		return 12
	}
	return 1
}

func (p SubscriptionPlan) Valid() bool {
	return p == SubscriptionPlanMonthly || p == SubscriptionPlanYearly
}

type BillingOutcome string

const (
	BillingOutcomeSucceeded BillingOutcome = "succeeded"
	BillingOutcomeFailed    BillingOutcome = "failed"
)

type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonCreate        SubscriptionChangeReason = "create"
	SubscriptionChangeReasonRenewal       SubscriptionChangeReason = "renewal"
	SubscriptionChangeReasonChargeFailed  SubscriptionChangeReason = "chargeFailed"
	SubscriptionChangeReasonPause         SubscriptionChangeReason = "pause"
	SubscriptionChangeReasonResume        SubscriptionChangeReason = "resume"
	SubscriptionChangeReasonCancel        SubscriptionChangeReason = "cancel"
	SubscriptionChangeReasonAutoCancelled SubscriptionChangeReason = "autoCancelled"
)
