package affiliate

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	models "github.com/tradeacademy/commissioner/internal/models"
	"github.com/tradeacademy/commissioner/pkg/logctx"
	types "github.com/tradeacademy/commissioner/pkg/types"
)

// MarkConverted flips pending referrals for (program, referred user) to
// converted. The predicate filters on status = pending, so applying it to an
// already converted referral changes zero rows and leaves the original
// conversion timestamp intact.
func (s *Service) MarkConverted(ctx context.Context, programID string, referredUserID string) error {
	return s.markConvertedTx(ctx, s.db.WithContext(ctx), programID, referredUserID)
}

func (s *Service) markConvertedTx(ctx context.Context, tx *gorm.DB, programID string, referredUserID string) error {
	now := time.Now()
	res := tx.Model(&models.AffiliateReferral{}).
		Where("program_id = ? AND referred_user_id = ? AND status = ?",
			programID, referredUserID, types.ReferralStatusPending).
		Updates(map[string]any{
			"status":       types.ReferralStatusConverted,
			"converted_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark referral converted: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		logctx.FromCtx(ctx, s.log).Infow("referral converted",
			"program_id", programID, "referred_user_id", referredUserID)
	}
	return nil
}
