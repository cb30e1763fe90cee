package affiliate

import "github.com/tradeacademy/commissioner/pkg/types"

// Tier thresholds on cumulative referral count.
const (
	tierSilverMin   = 11
	tierGoldMin     = 26
	tierPlatinumMin = 51
)

// TierFor maps a cumulative referral count to a commission tier and rate.
// Pure function; callers persist the result alongside the count increment.
func TierFor(referralCount int) (types.AffiliateTier, float64) {
	switch {
	case referralCount >= tierPlatinumMin:
		return types.AffiliateTierPlatinum, 20
	case referralCount >= tierGoldMin:
		return types.AffiliateTierGold, 15
	case referralCount >= tierSilverMin:
		return types.AffiliateTierSilver, 12
	default:
		return types.AffiliateTierBronze, 10
	}
}
