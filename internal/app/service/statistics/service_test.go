package statistics

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tradeacademy/commissioner/internal/models"
	"github.com/tradeacademy/commissioner/pkg/tool"
	"github.com/tradeacademy/commissioner/pkg/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Subscription{},
		&models.BillingRecord{},
		&models.AffiliateCommission{},
		&models.BillingDailySnapshot{},
	))
	return db
}

func seedBillingRecord(t *testing.T, db *gorm.DB, outcome types.BillingOutcome, amount float64, at time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&models.BillingRecord{
		ID:             tool.GenerateUUIDV7(),
		SubscriptionID: tool.GenerateUUIDV7(),
		UserID:         "user-1",
		Amount:         amount,
		Currency:       "USD",
		Outcome:        outcome,
		ChargedAt:      at,
	}).Error)
}

func TestSnapshotDaily_AggregatesAndUpserts(t *testing.T) {
	db := openTestDB(t)
	svc := New(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, db.Create(&models.Subscription{
		ID: tool.GenerateUUIDV7(), UserID: "user-1", ProductLine: "copy_trading",
		PlanCode: "copy-monthly", Plan: types.SubscriptionPlanMonthly,
		Status: types.SubscriptionStatusActive, Amount: 99.99, Currency: "USD",
		CurrentPeriodStart: now, CurrentPeriodEnd: now.AddDate(0, 1, 0), MaxFailedPayments: 3,
	}).Error)

	seedBillingRecord(t, db, types.BillingOutcomeSucceeded, 99.99, now)
	seedBillingRecord(t, db, types.BillingOutcomeSucceeded, 499, now)
	seedBillingRecord(t, db, types.BillingOutcomeFailed, 99.99, now)
	// Yesterday's charge must not count.
	seedBillingRecord(t, db, types.BillingOutcomeSucceeded, 10, now.AddDate(0, 0, -1))

	require.NoError(t, db.Create(&models.AffiliateCommission{
		ID: tool.GenerateUUIDV7(), ProgramID: tool.GenerateUUIDV7(), ReferredUserID: "user-1",
		Type: types.CommissionTypeSubscription, RelatedType: "billing_record", RelatedID: "rec-1",
		Amount: 10, Status: types.CommissionStatusApproved,
	}).Error)
	require.NoError(t, db.Create(&models.AffiliateCommission{
		ID: tool.GenerateUUIDV7(), ProgramID: tool.GenerateUUIDV7(), ReferredUserID: "user-2",
		Type: types.CommissionTypeSubscription, RelatedType: "billing_record", RelatedID: "rec-2",
		Amount: 7, Status: types.CommissionStatusPending,
	}).Error)

	snap, err := svc.SnapshotDaily(ctx, now)
	require.NoError(t, err)
	require.Equal(t, now.Format(time.DateOnly), snap.SnapshotDate)
	require.EqualValues(t, 1, snap.ActiveSubscriptions)
	require.EqualValues(t, 1, snap.NewSubscriptions)
	require.EqualValues(t, 2, snap.ChargesSucceeded)
	require.EqualValues(t, 1, snap.ChargesFailed)
	require.Equal(t, 598.99, snap.GrossVolume)
	require.Equal(t, 10.0, snap.CommissionsAccrued)

	// Re-running the same day replaces the row instead of adding one.
	seedBillingRecord(t, db, types.BillingOutcomeSucceeded, 1, now)
	again, err := svc.SnapshotDaily(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 3, again.ChargesSucceeded)

	var count int64
	require.NoError(t, db.Model(&models.BillingDailySnapshot{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestGetSnapshots_Range(t *testing.T) {
	db := openTestDB(t)
	svc := New(db)
	ctx := context.Background()

	for _, day := range []string{"2026-08-01", "2026-08-02", "2026-08-03"} {
		require.NoError(t, db.Create(&models.BillingDailySnapshot{
			ID: tool.GenerateUUIDV7(), SnapshotDate: day, SnapshotCreatedAt: time.Now(),
		}).Error)
	}

	rows, err := svc.GetSnapshots(ctx, &SnapshotRangeRequest{From: "2026-08-02", To: "2026-08-03"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "2026-08-02", rows[0].SnapshotDate)
	require.Equal(t, "2026-08-03", rows[1].SnapshotDate)
}
