package affiliate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	models "github.com/tradeacademy/commissioner/internal/models"
	"github.com/tradeacademy/commissioner/pkg/logctx"
	"github.com/tradeacademy/commissioner/pkg/tool"
	types "github.com/tradeacademy/commissioner/pkg/types"
)

type RecordCommissionRequest struct {
	ProgramID      string              `json:"program_id"`
	ReferredUserID string              `json:"referred_user_id"`
	Amount         float64             `json:"amount"`
	Type           types.CommissionType `json:"type"`
	RelatedEntity  types.RelatedEntity `json:"related_entity"`
	// RequiresVerification creates the commission as PENDING awaiting a
	// manual ApproveCommission call; otherwise it is APPROVED immediately.
	RequiresVerification bool `json:"requires_verification"`
	// ApproverID stamps verification metadata when the commission is
	// approved at creation.
	ApproverID string `json:"approver_id"`
}

// RecordCommission creates a commission for a qualifying revenue event,
// at most once per (program, referred user, type, related entity id).
// Re-invoking with the same tuple returns the existing row and credits
// nothing: the insert is insert-or-ignore on the dedup index, not
// read-then-write.
func (s *Service) RecordCommission(ctx context.Context, req *RecordCommissionRequest) (*models.AffiliateCommission, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.ProgramID == "" || req.ReferredUserID == "" || req.Type == "" || req.RelatedEntity.ID == "" {
		return nil, fmt.Errorf("invalid params: program, referred user, type and related entity required")
	}

	now := time.Now()
	commission := &models.AffiliateCommission{
		ID:             tool.GenerateUUIDV7(),
		ProgramID:      req.ProgramID,
		ReferredUserID: req.ReferredUserID,
		Type:           req.Type,
		RelatedType:    req.RelatedEntity.Type,
		RelatedID:      req.RelatedEntity.ID,
		Amount:         tool.RoundCurrency(req.Amount),
		Status:         types.CommissionStatusPending,
	}
	if !req.RequiresVerification {
		commission.Status = types.CommissionStatusApproved
		commission.Verified = true
		commission.VerifiedAt = &now
		commission.VerifiedBy = req.ApproverID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "program_id"}, {Name: "referred_user_id"}, {Name: "type"}, {Name: "related_id"},
			},
			DoNothing: true,
		}).Create(commission)
		if res.Error != nil {
			return fmt.Errorf("failed to create commission: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Duplicate event: hand back the existing row, credit nothing.
			if err := tx.Where(
				"program_id = ? AND referred_user_id = ? AND type = ? AND related_id = ?",
				req.ProgramID, req.ReferredUserID, req.Type, req.RelatedEntity.ID,
			).First(commission).Error; err != nil {
				return fmt.Errorf("failed to load existing commission: %w", err)
			}
			return nil
		}

		if commission.Status == types.CommissionStatusApproved {
			return s.creditApproved(ctx, tx, commission)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logctx.FromCtx(ctx, s.log).Infow("commission recorded",
		"commission_id", commission.ID, "program_id", commission.ProgramID,
		"type", commission.Type, "amount", commission.Amount, "status", commission.Status)
	return commission, nil
}

// ApproveCommission moves a PENDING commission to APPROVED, credits the
// program earnings and converts the referral, all in one transaction.
// Approving an already approved or paid commission is a no-op.
func (s *Service) ApproveCommission(ctx context.Context, commissionID string, approverID string) (*models.AffiliateCommission, error) {
	var commission models.AffiliateCommission

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", commissionID).First(&commission).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("commission not found: %s", commissionID)
			}
			return fmt.Errorf("failed to load commission: %w", err)
		}

		switch commission.Status {
		case types.CommissionStatusApproved, types.CommissionStatusPaid:
			return nil
		case types.CommissionStatusRejected:
			return ErrCommissionClosed
		}

		now := time.Now()
		// Conditional on status still being pending so a concurrent approval
		// cannot credit earnings twice.
		res := tx.Model(&models.AffiliateCommission{}).
			Where("id = ? AND status = ?", commissionID, types.CommissionStatusPending).
			Updates(map[string]any{
				"status":      types.CommissionStatusApproved,
				"verified":    true,
				"verified_by": approverID,
				"verified_at": now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to approve commission: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// Lost the race to another approver; treat as success.
			return tx.Where("id = ?", commissionID).First(&commission).Error
		}

		commission.Status = types.CommissionStatusApproved
		commission.Verified = true
		commission.VerifiedBy = approverID
		commission.VerifiedAt = &now
		return s.creditApproved(ctx, tx, &commission)
	})
	if err != nil {
		return nil, err
	}
	return &commission, nil
}

// creditApproved applies the side effects of an approval inside the caller's
// transaction: earnings increments on the program row and referral
// conversion. Partial application would be a correctness violation, hence
// the single transactional unit.
func (s *Service) creditApproved(ctx context.Context, tx *gorm.DB, commission *models.AffiliateCommission) error {
	res := tx.Model(&models.AffiliateProgram{}).Where("id = ?", commission.ProgramID).
		Updates(map[string]any{
			"total_earnings":   gorm.Expr("total_earnings + ?", commission.Amount),
			"pending_earnings": gorm.Expr("pending_earnings + ?", commission.Amount),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to credit program earnings: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("program not found: %s", commission.ProgramID)
	}

	return s.markConvertedTx(ctx, tx, commission.ProgramID, commission.ReferredUserID)
}

type ScanCommissionsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanCommissionsResponse struct {
	Items []*models.AffiliateCommission `json:"items"`
	Total int64                         `json:"total"`
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression.
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

// ScanCommissions implements paginated admin listing with filters.
func (s *Service) ScanCommissions(ctx context.Context, req *ScanCommissionsRequest) (*ScanCommissionsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.AffiliateCommission{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count commissions: %w", err)
	}

	var rows []*models.AffiliateCommission
	q := tx.Limit(req.Size)
	if req.From > 0 {
		q = q.Offset(req.From)
	}
	if req.SortBy != "" {
		q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder != "asc"}}})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list commissions: %w", err)
	}

	return &ScanCommissionsResponse{Items: rows, Total: total}, nil
}
