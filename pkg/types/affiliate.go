package types

// AffiliateTier is a commission-rate bracket determined by cumulative
// referral count.
type AffiliateTier string

const (
	AffiliateTierBronze   AffiliateTier = "bronze"
	AffiliateTierSilver   AffiliateTier = "silver"
	AffiliateTierGold     AffiliateTier = "gold"
	AffiliateTierPlatinum AffiliateTier = "platinum"
)

type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusConverted ReferralStatus = "converted"
)

type CommissionStatus string

const (
	CommissionStatusPending  CommissionStatus = "pending"
	CommissionStatusApproved CommissionStatus = "approved"
	CommissionStatusPaid     CommissionStatus = "paid"
	CommissionStatusRejected CommissionStatus = "rejected"
)

// CommissionType tags the revenue source a commission is attributed to.
type CommissionType string

const (
	CommissionTypeCopyTrading  CommissionType = "copy_trading"
	CommissionTypeAcademy      CommissionType = "academy"
	CommissionTypeSubscription CommissionType = "subscription"
	CommissionTypeChallenge    CommissionType = "challenge"
)

type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "pending"
	PayoutStatusCompleted PayoutStatus = "completed"
	PayoutStatusFailed    PayoutStatus = "failed"
)

type PayoutMethod string

const (
	PayoutMethodBalance      PayoutMethod = "balance"
	PayoutMethodBankTransfer PayoutMethod = "bank_transfer"
	PayoutMethodManual       PayoutMethod = "manual"
)

// RelatedEntity references the originating entity of a commission. Together
// with program, referred user and commission type it forms the deduplication
// key for commission creation.
type RelatedEntity struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}
