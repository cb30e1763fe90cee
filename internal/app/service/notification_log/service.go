package notification_log

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tradeacademy/commissioner/internal/models"
	"github.com/tradeacademy/commissioner/pkg/logctx"
	"github.com/tradeacademy/commissioner/pkg/tool"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Save persists an emitted-notification log row. Nil input is ignored.
func (s *Service) Save(ctx context.Context, row *models.NotificationLog) {
	if row == nil {
		return
	}
	if row.ID == "" {
		row.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.Save(row).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to save notification log: %v", err)
	}
}

// MarkDelivered updates the delivery status of a previously saved row.
func (s *Service) MarkDelivered(ctx context.Context, id string, status models.NotificationLogStatus) {
	if id == "" {
		return
	}
	if err := s.db.Model(&models.NotificationLog{}).Where("id = ?", id).
		Update("status", status).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorf("failed to update notification log %s: %v", id, err)
	}
}
