package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tradeacademy/commissioner/internal/app/service/notification_log"
	"github.com/tradeacademy/commissioner/internal/models"
	cfgpkg "github.com/tradeacademy/commissioner/pkg/config"
)

func newTestEmitter(t *testing.T, webhookURL string) (Emitter, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.NotificationLog{}))

	log := zap.NewNop().Sugar()
	cfg := &cfgpkg.Config{Notifier: cfgpkg.NotifierConfig{WebhookURL: webhookURL, Timeout: 2 * time.Second}}
	return New(cfg, log, notification_log.New(db, log)), db
}

func TestNotify_SavesLogAndDeliversWebhook(t *testing.T) {
	var delivered atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	emitter, db := newTestEmitter(t, srv.URL)
	emitter.Notify(context.Background(), KindChallengeRewardEarned, "user-1", map[string]any{"amount": 1000})

	var row models.NotificationLog
	require.NoError(t, db.Where("kind = ?", KindChallengeRewardEarned).First(&row).Error)
	require.NotNil(t, row.UserID)
	require.Equal(t, "user-1", *row.UserID)

	require.Eventually(t, func() bool {
		return delivered.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		var reloaded models.NotificationLog
		if err := db.Where("id = ?", row.ID).First(&reloaded).Error; err != nil {
			return false
		}
		return reloaded.Status == models.NotificationLogStatusSent
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNotify_NoWebhookConfigured(t *testing.T) {
	emitter, db := newTestEmitter(t, "")
	emitter.Notify(context.Background(), KindChargeFailed, "user-1", nil)

	var row models.NotificationLog
	require.NoError(t, db.Where("kind = ?", KindChargeFailed).First(&row).Error)
	require.Equal(t, models.NotificationLogStatusQueued, row.Status)
}
