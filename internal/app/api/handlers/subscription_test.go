package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/tradeacademy/commissioner/internal/app/service/billing"
	models "github.com/tradeacademy/commissioner/internal/models"
	types "github.com/tradeacademy/commissioner/pkg/types"
)

type stubManager struct{}

func (s *stubManager) CreateSubscription(_ context.Context, req *billing.CreateSubscriptionRequest) (*models.Subscription, error) {
	if req.PlanCode == "nope" {
		return nil, billing.ErrPlanUnknown
	}
	now := time.Now()
	return &models.Subscription{
		ID: "sub-1", UserID: req.UserID, PlanCode: req.PlanCode,
		Status:             types.SubscriptionStatusActive,
		CurrentPeriodStart: now, CurrentPeriodEnd: now.AddDate(0, 1, 0),
	}, nil
}

func (s *stubManager) GetSubscription(_ context.Context, _ string) (*models.Subscription, error) {
	panic("not used")
}

func (s *stubManager) ProcessBilling(_ context.Context, _ string) (*models.BillingRecord, error) {
	panic("not used")
}

func (s *stubManager) ProcessDueSubscriptions(_ context.Context, _ time.Time) (*billing.ProcessDueResult, error) {
	return &billing.ProcessDueResult{Processed: 2, Succeeded: 1, Failed: 1}, nil
}

func (s *stubManager) CancelSubscription(_ context.Context, subscriptionID string, _ string) error {
	if subscriptionID == "missing" {
		return billing.ErrSubscriptionNotFound
	}
	return nil
}

func (s *stubManager) PauseSubscription(_ context.Context, _ string) error {
	return billing.ErrSubscriptionNotActive
}

func (s *stubManager) ResumeSubscription(_ context.Context, _ string) error {
	return nil
}

func newSubscriptionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterSubscriptionRoutes(r.Group("/api/v1"), &stubManager{})
	RegisterInternalBillingRoutes(r.Group("/api/v1/internal"), &stubManager{})
	return r
}

func TestApiCreateSubscription_Active(t *testing.T) {
	r := newSubscriptionRouter()
	w := postJSON(t, r, "/api/v1/subscriptions", map[string]any{"user_id": "user-1", "plan_code": "copy-monthly"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"active"`)
}

func TestApiCreateSubscription_UnknownPlan(t *testing.T) {
	r := newSubscriptionRouter()
	w := postJSON(t, r, "/api/v1/subscriptions", map[string]any{"user_id": "user-1", "plan_code": "nope"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"code":40000`)
}

func TestApiCancelSubscription_NotFound(t *testing.T) {
	r := newSubscriptionRouter()
	w := postJSON(t, r, "/api/v1/subscriptions/missing/cancel", map[string]any{"reason": "test"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"code":40000`)
}

func TestApiPauseSubscription_NotActive(t *testing.T) {
	r := newSubscriptionRouter()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/sub-1/pause", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"code":40000`)
}

func TestApiRunBilling_ReportsCounts(t *testing.T) {
	r := newSubscriptionRouter()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/billing/run", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"processed":2`)
	require.Contains(t, w.Body.String(), `"succeeded":1`)
}
