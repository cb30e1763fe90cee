package affiliate

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradeacademy/commissioner/internal/app/service/notifier"
	models "github.com/tradeacademy/commissioner/internal/models"
	"github.com/tradeacademy/commissioner/pkg/logctx"
	"github.com/tradeacademy/commissioner/pkg/tool"
	types "github.com/tradeacademy/commissioner/pkg/types"
)

// monthKey returns the calendar month key for challenge accounting.
func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

// RecordReferralForChallenge runs after every new referral attributed to an
// affiliate. It upserts the affiliate's monthly challenge row, and when the
// count first reaches the qualifying threshold it claims the reward: a
// conditional check-and-set on reward_claimed guards against two concurrent
// callers both paying out. Losing that race is treated as success.
func (s *Service) RecordReferralForChallenge(ctx context.Context, affiliateUserID string, referredUserID string) error {
	if affiliateUserID == "" || referredUserID == "" {
		return fmt.Errorf("invalid params: affiliateUserID and referredUserID required")
	}

	threshold := s.cfg.Affiliate.ChallengeThreshold
	if threshold <= 0 {
		threshold = 3
	}
	reward := s.cfg.Affiliate.ChallengeReward

	month := monthKey(time.Now())
	var claimed bool
	var challengeID string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := &models.MonthlyChallenge{
			ID:              tool.GenerateUUIDV7(),
			UserID:          affiliateUserID,
			Month:           month,
			ReferralCount:   1,
			ReferredUserIDs: datatypes.NewJSONSlice([]string{referredUserID}),
			RewardAmount:    reward,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "month"}},
			DoUpdates: clause.Assignments(map[string]any{
				"referral_count": gorm.Expr("referral_count + 1"),
			}),
		}).Create(row)
		if res.Error != nil {
			return fmt.Errorf("failed to upsert monthly challenge: %w", res.Error)
		}

		// Re-read: the upsert path does not report the incremented count.
		if err := tx.Where("user_id = ? AND month = ?", affiliateUserID, month).
			First(row).Error; err != nil {
			return fmt.Errorf("failed to reload monthly challenge: %w", err)
		}
		challengeID = row.ID

		if !lo.Contains(row.ReferredUserIDs, referredUserID) {
			row.ReferredUserIDs = append(row.ReferredUserIDs, referredUserID)
			if err := tx.Model(&models.MonthlyChallenge{}).Where("id = ?", row.ID).
				Update("referred_user_ids", row.ReferredUserIDs).Error; err != nil {
				return fmt.Errorf("failed to update qualifying list: %w", err)
			}
		}

		if row.ReferralCount < threshold || row.RewardClaimed {
			return nil
		}

		// First threshold crossing: claim atomically. The update is
		// conditioned on reward_claimed still being false; zero rows means
		// another caller already claimed and we silently succeed.
		now := time.Now()
		claim := tx.Model(&models.MonthlyChallenge{}).
			Where("id = ? AND reward_claimed = ?", row.ID, false).
			Updates(map[string]any{
				"reward_claimed": true,
				"claimed_at":     now,
				"reward_amount":  reward,
			})
		if claim.Error != nil {
			return fmt.Errorf("failed to claim challenge reward: %w", claim.Error)
		}
		if claim.RowsAffected == 0 {
			return nil
		}

		var program models.AffiliateProgram
		if err := tx.Where("user_id = ?", affiliateUserID).First(&program).Error; err != nil {
			return fmt.Errorf("failed to load program for reward: %w", err)
		}

		payout := &models.AffiliatePayout{
			ID:        tool.GenerateUUIDV7(),
			ProgramID: program.ID,
			UserID:    affiliateUserID,
			Amount:    tool.RoundCurrency(reward),
			Method:    types.PayoutMethodBalance,
			Status:    types.PayoutStatusPending,
			Reference: fmt.Sprintf("challenge:%s", row.ID),
		}
		if err := tx.Create(payout).Error; err != nil {
			return fmt.Errorf("failed to create reward payout: %w", err)
		}

		if err := tx.Model(&models.AffiliateProgram{}).Where("id = ?", program.ID).
			Updates(map[string]any{
				"total_earnings":   gorm.Expr("total_earnings + ?", payout.Amount),
				"pending_earnings": gorm.Expr("pending_earnings + ?", payout.Amount),
			}).Error; err != nil {
			return fmt.Errorf("failed to credit reward earnings: %w", err)
		}

		claimed = true
		return nil
	})
	if err != nil {
		return err
	}

	if claimed {
		logctx.FromCtx(ctx, s.log).Infow("challenge reward claimed",
			"user_id", affiliateUserID, "month", month, "challenge_id", challengeID, "amount", reward)
		s.notifier.Notify(ctx, notifier.KindChallengeRewardEarned, affiliateUserID,
			map[string]any{"month": month, "amount": reward})
	}
	return nil
}
