package statistics

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradeacademy/commissioner/internal/models"
	"github.com/tradeacademy/commissioner/pkg/tool"
	"github.com/tradeacademy/commissioner/pkg/types"
)

// Service aggregates billing and affiliate activity into daily snapshots.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

type outcomeCount struct {
	Outcome types.BillingOutcome
	Count   int64
	Volume  float64
}

// SnapshotDaily computes the aggregate snapshot for one day and upserts it.
// Re-running for the same day overwrites the row, so the job is safe to
// repeat.
func (s *Service) SnapshotDaily(ctx context.Context, day time.Time) (*models.BillingDailySnapshot, error) {
	dayKey := day.Format(time.DateOnly)
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	snap := &models.BillingDailySnapshot{
		ID:                tool.GenerateUUIDV7(),
		SnapshotDate:      dayKey,
		SnapshotCreatedAt: time.Now(),
	}

	if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ?", types.SubscriptionStatusActive).
		Count(&snap.ActiveSubscriptions).Error; err != nil {
		return nil, fmt.Errorf("failed to count active subscriptions: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Count(&snap.NewSubscriptions).Error; err != nil {
		return nil, fmt.Errorf("failed to count new subscriptions: %w", err)
	}

	var outcomes []outcomeCount
	if err := s.db.WithContext(ctx).Model(&models.BillingRecord{}).
		Select("outcome, count(*) as count, sum(amount) as volume").
		Where("charged_at >= ? AND charged_at < ?", dayStart, dayEnd).
		Group("outcome").
		Find(&outcomes).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate charges: %w", err)
	}
	if succeeded, ok := lo.Find(outcomes, func(o outcomeCount) bool { return o.Outcome == types.BillingOutcomeSucceeded }); ok {
		snap.ChargesSucceeded = succeeded.Count
		snap.GrossVolume = tool.RoundCurrency(succeeded.Volume)
	}
	if failed, ok := lo.Find(outcomes, func(o outcomeCount) bool { return o.Outcome == types.BillingOutcomeFailed }); ok {
		snap.ChargesFailed = failed.Count
	}

	var accrued float64
	if err := s.db.WithContext(ctx).Model(&models.AffiliateCommission{}).
		Where("status IN ? AND created_at >= ? AND created_at < ?",
			[]types.CommissionStatus{types.CommissionStatusApproved, types.CommissionStatusPaid}, dayStart, dayEnd).
		Select("COALESCE(sum(amount), 0)").
		Scan(&accrued).Error; err != nil {
		return nil, fmt.Errorf("failed to sum commissions: %w", err)
	}
	snap.CommissionsAccrued = tool.RoundCurrency(accrued)

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "snapshot_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"active_subscriptions", "new_subscriptions", "charges_succeeded",
			"charges_failed", "gross_volume", "commissions_accrued", "snapshot_created_at",
		}),
	}).Create(snap).Error; err != nil {
		return nil, fmt.Errorf("failed to upsert daily snapshot: %w", err)
	}
	return snap, nil
}

type SnapshotRangeRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// GetSnapshots returns snapshots within an inclusive date range ordered by
// day.
func (s *Service) GetSnapshots(ctx context.Context, req *SnapshotRangeRequest) ([]*models.BillingDailySnapshot, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	q := s.db.WithContext(ctx).Model(&models.BillingDailySnapshot{})
	if req.From != "" {
		q = q.Where("snapshot_date >= ?", req.From)
	}
	if req.To != "" {
		q = q.Where("snapshot_date <= ?", req.To)
	}
	var rows []*models.BillingDailySnapshot
	if err := q.Order("snapshot_date asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return rows, nil
}
