package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationLogStatus string

const (
	NotificationLogStatusQueued     NotificationLogStatus = "queued"
	NotificationLogStatusSent       NotificationLogStatus = "sent"
	NotificationLogStatusSendFailed NotificationLogStatus = "send_failed"
)

// NotificationLog records every notification emitted to the side channel.
// Delivery is best-effort; the log row is the durable trace.
type NotificationLog struct {
	ID      string  `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Kind    string  `gorm:"column:kind;type:varchar(64);not null;index" json:"kind"`
	UserID  *string `gorm:"column:user_id;type:varchar(64)" json:"user_id"`
	TraceID string  `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	// Payload is the notification body as sent to the webhook.
	Payload   datatypes.JSON        `gorm:"column:payload;type:jsonb" json:"payload"`
	Status    NotificationLogStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

func (NotificationLog) TableName() string { return "notification_log" }
