package affiliate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	models "github.com/tradeacademy/commissioner/internal/models"
	"github.com/tradeacademy/commissioner/pkg/config"
	types "github.com/tradeacademy/commissioner/pkg/types"
)

type nopEmitter struct{}

func (nopEmitter) Notify(_ context.Context, _ string, _ string, _ any) {}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.AffiliateProgram{},
		&models.AffiliateReferral{},
		&models.AffiliateCommission{},
		&models.MonthlyChallenge{},
		&models.AffiliatePayout{},
	))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	cfg := &config.Config{
		Affiliate: config.AffiliateConfig{ChallengeThreshold: 3, ChallengeReward: 1000},
	}
	svc := &Service{db: db, log: zap.NewNop().Sugar(), cfg: cfg, notifier: nopEmitter{}}
	return svc, db
}

func TestCreateProgram_ReturnsExistingOnRepeat(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateProgram(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, types.AffiliateTierBronze, first.Tier)
	require.Equal(t, float64(10), first.CommissionRate)
	require.Len(t, first.Code, 8)

	second, err := svc.CreateProgram(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.Code, second.Code)
}

func TestRegisterReferral_CreatesPendingAndCounts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	program, err := svc.CreateProgram(ctx, "affiliate-1")
	require.NoError(t, err)

	referral, err := svc.RegisterReferral(ctx, program.Code, "referred-1")
	require.NoError(t, err)
	require.Equal(t, types.ReferralStatusPending, referral.Status)
	require.Nil(t, referral.ConvertedAt)

	reloaded, err := svc.GetProgram(ctx, "affiliate-1")
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.ReferralCount)
}

func TestRegisterReferral_DuplicateIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	program, err := svc.CreateProgram(ctx, "affiliate-1")
	require.NoError(t, err)

	first, err := svc.RegisterReferral(ctx, program.Code, "referred-1")
	require.NoError(t, err)
	second, err := svc.RegisterReferral(ctx, program.Code, "referred-1")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	reloaded, err := svc.GetProgram(ctx, "affiliate-1")
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.ReferralCount)
}

func TestRegisterReferral_UnknownCode(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.RegisterReferral(context.Background(), "NOPE1234", "referred-1")
	require.ErrorIs(t, err, ErrProgramNotFound)
}

func TestRegisterReferral_InactiveProgram(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	program, err := svc.CreateProgram(ctx, "affiliate-1")
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.AffiliateProgram{}).
		Where("id = ?", program.ID).Update("active", false).Error)

	_, err = svc.RegisterReferral(ctx, program.Code, "referred-1")
	require.ErrorIs(t, err, ErrProgramInactive)
}

func TestRegisterReferral_TierUpgradeAtBoundary(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	program, err := svc.CreateProgram(ctx, "affiliate-1")
	require.NoError(t, err)
	// One short of the silver threshold; the next referral crosses it.
	require.NoError(t, db.Model(&models.AffiliateProgram{}).
		Where("id = ?", program.ID).Update("referral_count", 10).Error)

	_, err = svc.RegisterReferral(ctx, program.Code, "referred-11")
	require.NoError(t, err)

	reloaded, err := svc.GetProgram(ctx, "affiliate-1")
	require.NoError(t, err)
	require.Equal(t, 11, reloaded.ReferralCount)
	require.Equal(t, types.AffiliateTierSilver, reloaded.Tier)
	require.Equal(t, float64(12), reloaded.CommissionRate)
}

func TestProgramForReferredUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	program, err := svc.CreateProgram(ctx, "affiliate-1")
	require.NoError(t, err)
	_, err = svc.RegisterReferral(ctx, program.Code, "referred-1")
	require.NoError(t, err)

	found, err := svc.ProgramForReferredUser(ctx, "referred-1")
	require.NoError(t, err)
	require.Equal(t, program.ID, found.ID)

	_, err = svc.ProgramForReferredUser(ctx, "stranger")
	require.ErrorIs(t, err, ErrProgramNotFound)
}
