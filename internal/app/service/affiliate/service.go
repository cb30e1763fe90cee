package affiliate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradeacademy/commissioner/internal/app/service/notifier"
	models "github.com/tradeacademy/commissioner/internal/models"
	"github.com/tradeacademy/commissioner/pkg/config"
	"github.com/tradeacademy/commissioner/pkg/logctx"
	"github.com/tradeacademy/commissioner/pkg/tool"
	types "github.com/tradeacademy/commissioner/pkg/types"
)

var (
	ErrProgramNotFound  = errors.New("affiliate program not found")
	ErrProgramInactive  = errors.New("affiliate program is inactive")
	ErrInvalidAmount    = errors.New("commission amount must be positive")
	ErrCommissionClosed = errors.New("commission is rejected and cannot be approved")
)

// Engine is the affiliate core exposed to route handlers and the billing
// cycle: commission recording/approval, referral registration and the
// monthly challenge.
type Engine interface {
	CreateProgram(ctx context.Context, userID string) (*models.AffiliateProgram, error)
	GetProgram(ctx context.Context, userID string) (*models.AffiliateProgram, error)
	ProgramForReferredUser(ctx context.Context, referredUserID string) (*models.AffiliateProgram, error)
	RegisterReferral(ctx context.Context, code string, referredUserID string) (*models.AffiliateReferral, error)
	RecordCommission(ctx context.Context, req *RecordCommissionRequest) (*models.AffiliateCommission, error)
	ApproveCommission(ctx context.Context, commissionID string, approverID string) (*models.AffiliateCommission, error)
	RecordReferralForChallenge(ctx context.Context, affiliateUserID string, referredUserID string) error
	ScanCommissions(ctx context.Context, req *ScanCommissionsRequest) (*ScanCommissionsResponse, error)
	ListPayouts(ctx context.Context, userID string) ([]*models.AffiliatePayout, error)
}

type Service struct {
	db       *gorm.DB
	log      *zap.SugaredLogger
	cfg      *config.Config
	notifier notifier.Emitter
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, cfg *config.Config, emitter notifier.Emitter) Engine {
	return &Service{db: db, log: log, cfg: cfg, notifier: emitter}
}

// newAffiliateCode derives a short uppercase referral code.
func newAffiliateCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:8])
}

// CreateProgram enrolls a user as an affiliate. Calling it again for the
// same user returns the existing program.
func (s *Service) CreateProgram(ctx context.Context, userID string) (*models.AffiliateProgram, error) {
	if userID == "" {
		return nil, fmt.Errorf("invalid params: userID required")
	}

	tier, rate := TierFor(0)
	program := &models.AffiliateProgram{
		ID:             tool.GenerateUUIDV7(),
		UserID:         userID,
		Code:           newAffiliateCode(),
		Tier:           tier,
		CommissionRate: rate,
		Active:         true,
	}

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(program)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to create affiliate program: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.GetProgram(ctx, userID)
	}

	logctx.FromCtx(ctx, s.log).Infow("affiliate program created", "user_id", userID, "code", program.Code)
	return program, nil
}

func (s *Service) GetProgram(ctx context.Context, userID string) (*models.AffiliateProgram, error) {
	var program models.AffiliateProgram
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&program).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProgramNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get affiliate program: %w", err)
	}
	return &program, nil
}

// ProgramForReferredUser resolves the program that referred a user, if any.
// Used by the billing cycle to attribute renewal commissions.
func (s *Service) ProgramForReferredUser(ctx context.Context, referredUserID string) (*models.AffiliateProgram, error) {
	var referral models.AffiliateReferral
	err := s.db.WithContext(ctx).Where("referred_user_id = ?", referredUserID).First(&referral).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProgramNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up referral: %w", err)
	}

	var program models.AffiliateProgram
	if err := s.db.WithContext(ctx).Where("id = ?", referral.ProgramID).First(&program).Error; err != nil {
		return nil, fmt.Errorf("failed to load referring program: %w", err)
	}
	return &program, nil
}

// RegisterReferral is the signup-time entry point: it resolves the referral
// code, inserts the PENDING referral (at most one per program and referred
// user), increments the program's referral count and recomputes the tier in
// the same transaction, then feeds the monthly challenge.
func (s *Service) RegisterReferral(ctx context.Context, code string, referredUserID string) (*models.AffiliateReferral, error) {
	if code == "" || referredUserID == "" {
		return nil, fmt.Errorf("invalid params: code and referredUserID required")
	}

	var referral *models.AffiliateReferral
	var affiliateUserID string
	var inserted bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var program models.AffiliateProgram
		err := tx.Where("code = ?", code).First(&program).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProgramNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to resolve referral code: %w", err)
		}
		if !program.Active {
			return ErrProgramInactive
		}
		affiliateUserID = program.UserID

		referral = &models.AffiliateReferral{
			ID:             tool.GenerateUUIDV7(),
			ProgramID:      program.ID,
			ReferredUserID: referredUserID,
			Status:         types.ReferralStatusPending,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "program_id"}, {Name: "referred_user_id"}},
			DoNothing: true,
		}).Create(referral)
		if res.Error != nil {
			return fmt.Errorf("failed to create referral: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Duplicate signup event; return the existing row untouched.
			if err := tx.Where("program_id = ? AND referred_user_id = ?", program.ID, referredUserID).
				First(referral).Error; err != nil {
				return fmt.Errorf("failed to load existing referral: %w", err)
			}
			return nil
		}
		inserted = true

		if err := tx.Model(&models.AffiliateProgram{}).Where("id = ?", program.ID).
			Update("referral_count", gorm.Expr("referral_count + 1")).Error; err != nil {
			return fmt.Errorf("failed to increment referral count: %w", err)
		}

		// Re-read the count and recompute the tier inside the transaction.
		if err := tx.Where("id = ?", program.ID).First(&program).Error; err != nil {
			return fmt.Errorf("failed to reload program: %w", err)
		}
		tier, rate := TierFor(program.ReferralCount)
		if tier != program.Tier {
			if err := tx.Model(&models.AffiliateProgram{}).Where("id = ?", program.ID).
				Updates(map[string]any{"tier": tier, "commission_rate": rate}).Error; err != nil {
				return fmt.Errorf("failed to update tier: %w", err)
			}
			logctx.FromCtx(ctx, s.log).Infow("affiliate tier upgraded",
				"user_id", program.UserID, "tier", tier, "referral_count", program.ReferralCount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if inserted {
		if err := s.RecordReferralForChallenge(ctx, affiliateUserID, referredUserID); err != nil {
			// The referral itself is committed; the challenge row will catch
			// up on the next referral event.
			logctx.FromCtx(ctx, s.log).Errorf("failed to record referral for challenge: %v", err)
		}
	}
	return referral, nil
}

func (s *Service) ListPayouts(ctx context.Context, userID string) ([]*models.AffiliatePayout, error) {
	var payouts []*models.AffiliatePayout
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at desc").Find(&payouts).Error; err != nil {
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	return payouts, nil
}
