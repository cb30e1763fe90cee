package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/tradeacademy/commissioner/internal/app/service/notification_log"
	"github.com/tradeacademy/commissioner/internal/models"
	cfgpkg "github.com/tradeacademy/commissioner/pkg/config"
	"github.com/tradeacademy/commissioner/pkg/logctx"
)

// Notification kinds emitted by the engine.
const (
	KindSubscriptionCancelled = "subscription_cancelled"
	KindSubscriptionCreated   = "subscription_created"
	KindChargeFailed          = "charge_failed"
	KindChallengeRewardEarned = "challenge_reward_earned"
	KindCommissionApproved    = "commission_approved"
)

// Emitter is the fire-and-forget side channel for admin/user alerts.
// Delivery failures are logged and never propagated to callers.
type Emitter interface {
	Notify(ctx context.Context, kind string, userID string, payload any)
}

type Service struct {
	cfg    cfgpkg.NotifierConfig
	log    *zap.SugaredLogger
	logs   *notification_log.Service
	client *http.Client
}

func New(cfg *cfgpkg.Config, log *zap.SugaredLogger, logs *notification_log.Service) Emitter {
	timeout := cfg.Notifier.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{
		cfg:    cfg.Notifier,
		log:    log,
		logs:   logs,
		client: &http.Client{Timeout: timeout},
	}
}

// Notify records the notification and posts it to the configured webhook in
// the background.
func (s *Service) Notify(ctx context.Context, kind string, userID string, payload any) {
	body, err := json.Marshal(map[string]any{"kind": kind, "user_id": userID, "payload": payload})
	if err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to marshal notification %s: %v", kind, err)
		return
	}

	row := &models.NotificationLog{
		Kind:    kind,
		Payload: datatypes.JSON(body),
		Status:  models.NotificationLogStatusQueued,
	}
	if userID != "" {
		row.UserID = &userID
	}
	if tid, ok := ctx.Value("traceID").(string); ok {
		row.TraceID = tid
	}
	s.logs.Save(ctx, row)

	if s.cfg.WebhookURL == "" {
		return
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), s.client.Timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(sendCtx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
		if err != nil {
			s.log.Errorf("failed to build notification request: %v", err)
			s.logs.MarkDelivered(sendCtx, row.ID, models.NotificationLogStatusSendFailed)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil || resp.StatusCode >= http.StatusMultipleChoices {
			if err != nil {
				s.log.Errorf("failed to deliver notification %s: %v", kind, err)
			} else {
				s.log.Errorf("notification webhook returned status %d for %s", resp.StatusCode, kind)
			}
			s.logs.MarkDelivered(sendCtx, row.ID, models.NotificationLogStatusSendFailed)
		} else {
			s.logs.MarkDelivered(sendCtx, row.ID, models.NotificationLogStatusSent)
		}
		if resp != nil {
			resp.Body.Close()
		}
	}()
}
