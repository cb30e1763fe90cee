package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/tradeacademy/commissioner/internal/app/api/server"
	"github.com/tradeacademy/commissioner/internal/app/service/affiliate"
	"github.com/tradeacademy/commissioner/internal/app/service/billing"
	notificationlog "github.com/tradeacademy/commissioner/internal/app/service/notification_log"
	"github.com/tradeacademy/commissioner/internal/app/service/notifier"
	"github.com/tradeacademy/commissioner/internal/app/service/statistics"
	"github.com/tradeacademy/commissioner/internal/platform/db"
	"github.com/tradeacademy/commissioner/internal/platform/payment"
	"github.com/tradeacademy/commissioner/pkg/config"
	"github.com/tradeacademy/commissioner/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	server.Module,
	payment.Module,
	notificationlog.Module,
	notifier.Module,
	affiliate.Module,
	billing.Module,
	statistics.Module,
)
