package affiliate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	models "github.com/tradeacademy/commissioner/internal/models"
	types "github.com/tradeacademy/commissioner/pkg/types"
)

func TestChallenge_BelowThresholdNoReward(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateProgram(ctx, "affiliate-1")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, svc.RecordReferralForChallenge(ctx, "affiliate-1", fmt.Sprintf("referred-%d", i)))
	}

	var challenge models.MonthlyChallenge
	require.NoError(t, db.Where("user_id = ?", "affiliate-1").First(&challenge).Error)
	require.Equal(t, 2, challenge.ReferralCount)
	require.False(t, challenge.RewardClaimed)
	require.Equal(t, monthKey(time.Now()), challenge.Month)

	var payouts int64
	require.NoError(t, db.Model(&models.AffiliatePayout{}).Count(&payouts).Error)
	require.Zero(t, payouts)
}

func TestChallenge_RewardClaimedAtThreshold(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateProgram(ctx, "affiliate-1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.RecordReferralForChallenge(ctx, "affiliate-1", fmt.Sprintf("referred-%d", i)))
	}

	var challenge models.MonthlyChallenge
	require.NoError(t, db.Where("user_id = ?", "affiliate-1").First(&challenge).Error)
	require.Equal(t, 3, challenge.ReferralCount)
	require.True(t, challenge.RewardClaimed)
	require.NotNil(t, challenge.ClaimedAt)
	require.Equal(t, float64(1000), challenge.RewardAmount)
	require.Len(t, challenge.ReferredUserIDs, 3)

	var payout models.AffiliatePayout
	require.NoError(t, db.Where("user_id = ?", "affiliate-1").First(&payout).Error)
	require.Equal(t, float64(1000), payout.Amount)
	require.Equal(t, types.PayoutStatusPending, payout.Status)
	require.Equal(t, types.PayoutMethodBalance, payout.Method)
	require.Equal(t, fmt.Sprintf("challenge:%s", challenge.ID), payout.Reference)

	reloaded, err := svc.GetProgram(ctx, "affiliate-1")
	require.NoError(t, err)
	require.Equal(t, float64(1000), reloaded.TotalEarnings)
	require.Equal(t, float64(1000), reloaded.PendingEarnings)
}

func TestChallenge_NoSecondRewardPastThreshold(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateProgram(ctx, "affiliate-1")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.RecordReferralForChallenge(ctx, "affiliate-1", fmt.Sprintf("referred-%d", i)))
	}

	var payouts int64
	require.NoError(t, db.Model(&models.AffiliatePayout{}).Count(&payouts).Error)
	require.EqualValues(t, 1, payouts)

	reloaded, err := svc.GetProgram(ctx, "affiliate-1")
	require.NoError(t, err)
	require.Equal(t, float64(1000), reloaded.TotalEarnings)

	var challenge models.MonthlyChallenge
	require.NoError(t, db.Where("user_id = ?", "affiliate-1").First(&challenge).Error)
	require.Equal(t, 5, challenge.ReferralCount)
	require.Len(t, challenge.ReferredUserIDs, 5)
}

func TestChallenge_ConcurrentClaimPaysOnce(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	_, err := svc.CreateProgram(ctx, "affiliate-1")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, svc.RecordReferralForChallenge(ctx, "affiliate-1", fmt.Sprintf("referred-%d", i)))
	}

	// On the qualifying referral, another caller claims the reward between
	// this transaction's reload and its conditional claim. The hook flips
	// reward_claimed right after the reload, on the same connection.
	var armed bool
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("challenge_claim_interleave", func(d *gorm.DB) {
		if !armed || d.Statement.Table != (models.MonthlyChallenge{}).TableName() {
			return
		}
		armed = false
		flip := d.Session(&gorm.Session{NewDB: true}).
			Model(&models.MonthlyChallenge{}).
			Where("user_id = ? AND month = ?", "affiliate-1", monthKey(time.Now())).
			Updates(map[string]any{"reward_claimed": true, "claimed_at": time.Now()})
		if flip.Error != nil {
			d.AddError(flip.Error)
		}
	}))
	armed = true

	// Losing the claim race is silent success, never a double payout.
	require.NoError(t, svc.RecordReferralForChallenge(ctx, "affiliate-1", "referred-2"))

	var payouts int64
	require.NoError(t, db.Model(&models.AffiliatePayout{}).Count(&payouts).Error)
	require.Zero(t, payouts)

	reloaded, err := svc.GetProgram(ctx, "affiliate-1")
	require.NoError(t, err)
	require.Zero(t, reloaded.TotalEarnings)
	require.Zero(t, reloaded.PendingEarnings)

	var challenge models.MonthlyChallenge
	require.NoError(t, db.Where("user_id = ?", "affiliate-1").First(&challenge).Error)
	require.Equal(t, 3, challenge.ReferralCount)
	require.True(t, challenge.RewardClaimed)
}

func TestChallenge_RegisterReferralFeedsChallenge(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	program, err := svc.CreateProgram(ctx, "affiliate-1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.RegisterReferral(ctx, program.Code, fmt.Sprintf("referred-%d", i))
		require.NoError(t, err)
	}
	// A retried signup must not count toward the challenge again.
	_, err = svc.RegisterReferral(ctx, program.Code, "referred-0")
	require.NoError(t, err)

	var challenge models.MonthlyChallenge
	require.NoError(t, db.Where("user_id = ?", "affiliate-1").First(&challenge).Error)
	require.Equal(t, 3, challenge.ReferralCount)
	require.True(t, challenge.RewardClaimed)
}
