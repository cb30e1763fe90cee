package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tradeacademy/commissioner/internal/app/service/affiliate"
	"github.com/tradeacademy/commissioner/internal/app/service/notifier"
	models "github.com/tradeacademy/commissioner/internal/models"
	"github.com/tradeacademy/commissioner/internal/platform/payment"
	"github.com/tradeacademy/commissioner/pkg/config"
	"github.com/tradeacademy/commissioner/pkg/logctx"
	"github.com/tradeacademy/commissioner/pkg/tool"
	types "github.com/tradeacademy/commissioner/pkg/types"
)

var (
	ErrPlanUnknown              = errors.New("unknown billing plan")
	ErrSubscriptionNotFound     = errors.New("subscription not found")
	ErrSubscriptionNotActive    = errors.New("subscription is not active")
	ErrSubscriptionNotDue       = errors.New("subscription period has not ended")
	ErrSubscriptionNotPaused    = errors.New("subscription is not paused")
	ErrSubscriptionActiveExists = errors.New("user already has an active subscription for this product line")
	ErrPeriodClaimed            = errors.New("billing period already claimed by a concurrent run")
)

type CreateSubscriptionRequest struct {
	UserID   string `json:"user_id"`
	PlanCode string `json:"plan_code"`
}

// ProcessDueResult reports one billing run. Each subscription's attempt is
// independent; a failure never aborts the rest of the batch.
type ProcessDueResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Manager owns the subscription lifecycle and the recurring charge cycle.
type Manager interface {
	CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*models.Subscription, error)
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	ProcessBilling(ctx context.Context, subscriptionID string) (*models.BillingRecord, error)
	ProcessDueSubscriptions(ctx context.Context, now time.Time) (*ProcessDueResult, error)
	CancelSubscription(ctx context.Context, subscriptionID string, reason string) error
	PauseSubscription(ctx context.Context, subscriptionID string) error
	ResumeSubscription(ctx context.Context, subscriptionID string) error
}

type Service struct {
	db         *gorm.DB
	log        *zap.SugaredLogger
	cfg        *config.Config
	gateway    payment.Gateway
	notifier   notifier.Emitter
	affiliates affiliate.Engine
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, cfg *config.Config, gw payment.Gateway, emitter notifier.Emitter, aff affiliate.Engine) Manager {
	return &Service{db: db, log: log, cfg: cfg, gateway: gw, notifier: emitter, affiliates: aff}
}

// CreateSubscription provisions a subscription and attempts the first
// charge. The row goes ACTIVE only after that charge succeeds; a declined
// initial charge leaves it FAILED so service is never claimed without
// payment.
func (s *Service) CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*models.Subscription, error) {
	if req == nil || req.UserID == "" || req.PlanCode == "" {
		return nil, fmt.Errorf("invalid params: userID and planCode required")
	}
	plan := s.cfg.GetPlanByCode(req.PlanCode)
	if plan == nil || !plan.Plan.Valid() {
		return nil, ErrPlanUnknown
	}

	now := time.Now()
	sub := &models.Subscription{
		ID:                 tool.GenerateUUIDV7(),
		UserID:             req.UserID,
		ProductLine:        plan.ProductLine,
		PlanCode:           plan.Code,
		Plan:               plan.Plan,
		Status:             types.SubscriptionStatusPending,
		Amount:             tool.RoundCurrency(plan.Amount),
		Currency:           plan.Currency,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, plan.Plan.BillingMonths(), 0),
		MaxFailedPayments:  s.cfg.MaxFailedPaymentsFor(plan),
	}
	sub.NextBillingAt = &sub.CurrentPeriodEnd

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Subscription{}).
			Where("user_id = ? AND product_line = ? AND status = ?",
				req.UserID, plan.ProductLine, types.SubscriptionStatusActive).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check active subscriptions: %w", err)
		}
		if count > 0 {
			return ErrSubscriptionActiveExists
		}
		if err := tx.Create(sub).Error; err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	record, chargeErr := s.charge(ctx, sub)

	if chargeErr == nil && record.Outcome == types.BillingOutcomeSucceeded {
		before := *sub
		if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
			return nil, fmt.Errorf("failed to create billing record: %w", err)
		}
		res := s.db.WithContext(ctx).Model(&models.Subscription{}).
			Where("id = ? AND status = ?", sub.ID, types.SubscriptionStatusPending).
			Update("status", types.SubscriptionStatusActive)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
				// Another subscription for this product line went active
				// while the initial charge was in flight; the partial unique
				// index rejects the second activation. Keep the row for
				// audit.
				if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
					Where("id = ?", sub.ID).
					Updates(map[string]any{
						"status":        types.SubscriptionStatusCancelled,
						"cancelled_at":  time.Now(),
						"cancel_reason": "duplicate active subscription",
					}).Error; err != nil {
					return nil, fmt.Errorf("failed to cancel duplicate subscription: %w", err)
				}
				sub.Status = types.SubscriptionStatusCancelled
				sub.CancelReason = "duplicate active subscription"
				s.writeSubscriptionLog(ctx, &before, sub, types.SubscriptionChangeReasonCancel)
				return nil, ErrSubscriptionActiveExists
			}
			return nil, fmt.Errorf("failed to activate subscription: %w", res.Error)
		}
		sub.Status = types.SubscriptionStatusActive
		s.writeSubscriptionLog(ctx, &before, sub, types.SubscriptionChangeReasonCreate)
		s.notifier.Notify(ctx, notifier.KindSubscriptionCreated, sub.UserID,
			map[string]any{"subscription_id": sub.ID, "plan_code": sub.PlanCode})
		s.recordChargeCommission(ctx, sub, record)
		return sub, nil
	}

	// Initial charge declined or errored: keep the row for audit, never
	// claim active service.
	before := *sub
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if record != nil {
			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("failed to create billing record: %w", err)
			}
		}
		if err := tx.Model(&models.Subscription{}).Where("id = ?", sub.ID).
			Updates(map[string]any{
				"status":          types.SubscriptionStatusFailed,
				"failed_payments": 1,
			}).Error; err != nil {
			return fmt.Errorf("failed to mark subscription failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sub.Status = types.SubscriptionStatusFailed
	sub.FailedPayments = 1
	s.writeSubscriptionLog(ctx, &before, sub, types.SubscriptionChangeReasonChargeFailed)
	s.notifier.Notify(ctx, notifier.KindChargeFailed, sub.UserID,
		map[string]any{"subscription_id": sub.ID, "initial": true})
	if chargeErr != nil {
		logctx.FromCtx(ctx, s.log).Errorf("initial charge errored for subscription %s: %v", sub.ID, chargeErr)
	}
	return sub, nil
}

func (s *Service) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

// charge runs one gateway charge attempt and shapes it into an append-only
// billing record. A transport error returns (failed record, err); callers
// treat both a decline and an error as a failed attempt.
func (s *Service) charge(ctx context.Context, sub *models.Subscription) (*models.BillingRecord, error) {
	record := &models.BillingRecord{
		ID:             tool.GenerateUUIDV7(),
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		Amount:         sub.Amount,
		Currency:       sub.Currency,
		Outcome:        types.BillingOutcomeFailed,
		ChargedAt:      time.Now(),
	}

	result, err := s.gateway.Charge(ctx, &payment.ChargeRequest{
		Amount:    sub.Amount,
		Currency:  sub.Currency,
		Reference: record.ID,
		UserID:    sub.UserID,
	})
	if err != nil {
		// Timeout or transport failure counts as a failed charge.
		record.FailureCode = "gateway_error"
		return record, err
	}

	record.GatewayRef = result.GatewayRef
	if result.Success {
		record.Outcome = types.BillingOutcomeSucceeded
	} else {
		record.FailureCode = result.ErrorCode
	}
	return record, nil
}

// ProcessBilling charges one ACTIVE, due subscription for its next period.
// The period is claimed with a conditional write before the gateway is
// called, so overlapping runs cannot double-charge: the claim predicate pins
// the period boundary the caller observed, the loser matches zero rows and
// never reaches the gateway. On failure the claim is rolled back, the period
// does not advance, and the consecutive-failure counter grows; at the
// threshold the subscription is cancelled.
func (s *Service) ProcessBilling(ctx context.Context, subscriptionID string) (*models.BillingRecord, error) {
	sub, err := s.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != types.SubscriptionStatusActive {
		return nil, ErrSubscriptionNotActive
	}
	if sub.CurrentPeriodEnd.After(time.Now()) {
		return nil, ErrSubscriptionNotDue
	}

	oldStart := sub.CurrentPeriodStart
	oldEnd := sub.CurrentPeriodEnd
	newEnd := oldEnd.AddDate(0, sub.Plan.BillingMonths(), 0)

	claim := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND status = ? AND current_period_end = ?",
			sub.ID, types.SubscriptionStatusActive, oldEnd).
		Updates(map[string]any{
			"current_period_start": oldEnd,
			"current_period_end":   newEnd,
			"next_billing_at":      newEnd,
		})
	if claim.Error != nil {
		return nil, fmt.Errorf("failed to claim billing period: %w", claim.Error)
	}
	if claim.RowsAffected == 0 {
		return nil, ErrPeriodClaimed
	}

	before := *sub
	sub.CurrentPeriodStart = oldEnd
	sub.CurrentPeriodEnd = newEnd
	sub.NextBillingAt = &newEnd

	record, chargeErr := s.charge(ctx, sub)
	if chargeErr != nil {
		logctx.FromCtx(ctx, s.log).Errorf("charge errored for subscription %s: %v", sub.ID, chargeErr)
	}

	if record.Outcome == types.BillingOutcomeSucceeded {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("failed to create billing record: %w", err)
			}
			if err := tx.Model(&models.Subscription{}).Where("id = ?", sub.ID).
				Update("failed_payments", 0).Error; err != nil {
				return fmt.Errorf("failed to reset failure counter: %w", err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sub.FailedPayments = 0
		s.writeSubscriptionLog(ctx, &before, sub, types.SubscriptionChangeReasonRenewal)
		s.recordChargeCommission(ctx, sub, record)
		return record, nil
	}

	// Failed attempt: roll the claim back so the next scheduled run retries,
	// and grow the failure counter atomically.
	var failures int
	var cancelled bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return fmt.Errorf("failed to create billing record: %w", err)
		}
		if err := tx.Model(&models.Subscription{}).
			Where("id = ? AND current_period_end = ?", sub.ID, newEnd).
			Updates(map[string]any{
				"current_period_start": oldStart,
				"current_period_end":   oldEnd,
				"next_billing_at":      oldEnd,
				"failed_payments":      gorm.Expr("failed_payments + 1"),
			}).Error; err != nil {
			return fmt.Errorf("failed to record charge failure: %w", err)
		}
		var reloaded models.Subscription
		if err := tx.Where("id = ?", sub.ID).First(&reloaded).Error; err != nil {
			return fmt.Errorf("failed to reload subscription: %w", err)
		}
		failures = reloaded.FailedPayments
		if failures >= sub.MaxFailedPayments {
			res := tx.Model(&models.Subscription{}).
				Where("id = ? AND status = ?", sub.ID, types.SubscriptionStatusActive).
				Updates(map[string]any{
					"status":        types.SubscriptionStatusCancelled,
					"cancelled_at":  time.Now(),
					"cancel_reason": "max failed payments reached",
				})
			if res.Error != nil {
				return fmt.Errorf("failed to cancel subscription: %w", res.Error)
			}
			cancelled = res.RowsAffected > 0
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sub.CurrentPeriodStart = oldStart
	sub.CurrentPeriodEnd = oldEnd
	sub.NextBillingAt = &oldEnd
	sub.FailedPayments = failures
	if cancelled {
		sub.Status = types.SubscriptionStatusCancelled
		s.writeSubscriptionLog(ctx, &before, sub, types.SubscriptionChangeReasonAutoCancelled)
		s.notifier.Notify(ctx, notifier.KindSubscriptionCancelled, sub.UserID,
			map[string]any{"subscription_id": sub.ID, "reason": "max failed payments reached"})
	} else {
		s.writeSubscriptionLog(ctx, &before, sub, types.SubscriptionChangeReasonChargeFailed)
		s.notifier.Notify(ctx, notifier.KindChargeFailed, sub.UserID,
			map[string]any{"subscription_id": sub.ID, "failed_payments": failures})
	}
	return record, nil
}

// ProcessDueSubscriptions is the scheduler entry point. It is safe to invoke
// at any time, at any frequency, and concurrently across instances: due-ness
// is derived from the period boundary, and every per-subscription attempt is
// its own transaction.
func (s *Service) ProcessDueSubscriptions(ctx context.Context, now time.Time) (*ProcessDueResult, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("status = ? AND current_period_end <= ?", types.SubscriptionStatusActive, now).
		Order("current_period_end asc").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to select due subscriptions: %w", err)
	}

	result := &ProcessDueResult{}
	for _, id := range ids {
		result.Processed++
		record, err := s.ProcessBilling(ctx, id)
		switch {
		case errors.Is(err, ErrSubscriptionNotActive),
			errors.Is(err, ErrSubscriptionNotDue),
			errors.Is(err, ErrPeriodClaimed):
			// Cancelled, paused or already billed by another run between
			// selection and processing.
			result.Processed--
		case err != nil:
			result.Failed++
			logctx.FromCtx(ctx, s.log).Errorf("billing failed for subscription %s: %v", id, err)
		case record.Outcome == types.BillingOutcomeSucceeded:
			result.Succeeded++
		default:
			result.Failed++
		}
	}

	observeBillingRun(result)
	logctx.FromCtx(ctx, s.log).Infow("billing run completed",
		"processed", result.Processed, "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

// CancelSubscription cancels a subscription and downgrades the user's
// entitlement through the notification channel. Cancelling an already
// cancelled subscription is a no-op.
func (s *Service) CancelSubscription(ctx context.Context, subscriptionID string, reason string) error {
	sub, err := s.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub.Status == types.SubscriptionStatusCancelled {
		return nil
	}

	before := *sub
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND status <> ?", subscriptionID, types.SubscriptionStatusCancelled).
		Updates(map[string]any{
			"status":        types.SubscriptionStatusCancelled,
			"cancelled_at":  time.Now(),
			"cancel_reason": reason,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to cancel subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil
	}

	sub.Status = types.SubscriptionStatusCancelled
	sub.CancelReason = reason
	s.writeSubscriptionLog(ctx, &before, sub, types.SubscriptionChangeReasonCancel)
	s.notifier.Notify(ctx, notifier.KindSubscriptionCancelled, sub.UserID,
		map[string]any{"subscription_id": sub.ID, "reason": reason})
	return nil
}

func (s *Service) PauseSubscription(ctx context.Context, subscriptionID string) error {
	sub, err := s.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	before := *sub

	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND status = ?", subscriptionID, types.SubscriptionStatusActive).
		Update("status", types.SubscriptionStatusPaused)
	if res.Error != nil {
		return fmt.Errorf("failed to pause subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSubscriptionNotActive
	}
	sub.Status = types.SubscriptionStatusPaused
	s.writeSubscriptionLog(ctx, &before, sub, types.SubscriptionChangeReasonPause)
	return nil
}

func (s *Service) ResumeSubscription(ctx context.Context, subscriptionID string) error {
	sub, err := s.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	before := *sub

	res := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND status = ?", subscriptionID, types.SubscriptionStatusPaused).
		Update("status", types.SubscriptionStatusActive)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrSubscriptionActiveExists
		}
		return fmt.Errorf("failed to resume subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSubscriptionNotPaused
	}
	sub.Status = types.SubscriptionStatusActive
	s.writeSubscriptionLog(ctx, &before, sub, types.SubscriptionChangeReasonResume)
	return nil
}

// recordChargeCommission attributes a successful charge to the affiliate who
// referred the subscriber, if any. Best-effort: the commission engine is
// idempotent on the billing record id, so a missed attribution is simply
// retried by the next qualifying event, and errors never fail the charge.
func (s *Service) recordChargeCommission(ctx context.Context, sub *models.Subscription, record *models.BillingRecord) {
	program, err := s.affiliates.ProgramForReferredUser(ctx, sub.UserID)
	if errors.Is(err, affiliate.ErrProgramNotFound) {
		return
	}
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to resolve referring program for %s: %v", sub.UserID, err)
		return
	}

	_, err = s.affiliates.RecordCommission(ctx, &affiliate.RecordCommissionRequest{
		ProgramID:      program.ID,
		ReferredUserID: sub.UserID,
		Amount:         tool.PercentOf(record.Amount, program.CommissionRate),
		Type:           types.CommissionTypeSubscription,
		RelatedEntity:  types.RelatedEntity{Type: "billing_record", ID: record.ID},
	})
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to record renewal commission for %s: %v", sub.ID, err)
	}
}

// writeSubscriptionLog appends an audit row asynchronously; errors are
// logged but never returned.
func (s *Service) writeSubscriptionLog(ctx context.Context, before, after *models.Subscription, reason types.SubscriptionChangeReason) {
	go func() {
		row := &models.SubscriptionLog{
			ID:             tool.GenerateUUIDV7(),
			SubscriptionID: after.ID,
			UserID:         after.UserID,
			Reason:         reason,
			Before:         datatypes.NewJSONType(before),
			After:          datatypes.NewJSONType(after),
			Extra:          datatypes.JSONMap{},
		}
		if err := s.db.Save(row).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
		}
	}()
}
