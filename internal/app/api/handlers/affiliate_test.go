package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/tradeacademy/commissioner/internal/app/service/affiliate"
	models "github.com/tradeacademy/commissioner/internal/models"
	types "github.com/tradeacademy/commissioner/pkg/types"
)

type stubEngine struct{}

func (s *stubEngine) CreateProgram(_ context.Context, userID string) (*models.AffiliateProgram, error) {
	return &models.AffiliateProgram{
		ID: "prog-1", UserID: userID, Code: "ABCD1234",
		Tier: types.AffiliateTierBronze, CommissionRate: 10, Active: true,
	}, nil
}

func (s *stubEngine) GetProgram(_ context.Context, userID string) (*models.AffiliateProgram, error) {
	if userID == "missing" {
		return nil, affiliate.ErrProgramNotFound
	}
	return &models.AffiliateProgram{ID: "prog-1", UserID: userID, Code: "ABCD1234"}, nil
}

func (s *stubEngine) ProgramForReferredUser(_ context.Context, _ string) (*models.AffiliateProgram, error) {
	panic("not used")
}

func (s *stubEngine) RegisterReferral(_ context.Context, code string, referredUserID string) (*models.AffiliateReferral, error) {
	if code == "BADCODE1" {
		return nil, affiliate.ErrProgramNotFound
	}
	return &models.AffiliateReferral{
		ID: "ref-1", ProgramID: "prog-1", ReferredUserID: referredUserID,
		Status: types.ReferralStatusPending,
	}, nil
}

func (s *stubEngine) RecordCommission(_ context.Context, req *affiliate.RecordCommissionRequest) (*models.AffiliateCommission, error) {
	if req.Amount <= 0 {
		return nil, affiliate.ErrInvalidAmount
	}
	return &models.AffiliateCommission{
		ID: "com-1", ProgramID: req.ProgramID, ReferredUserID: req.ReferredUserID,
		Type: req.Type, Amount: req.Amount, Status: types.CommissionStatusApproved,
	}, nil
}

func (s *stubEngine) ApproveCommission(_ context.Context, commissionID string, approverID string) (*models.AffiliateCommission, error) {
	return &models.AffiliateCommission{
		ID: commissionID, Status: types.CommissionStatusApproved, Verified: true, VerifiedBy: approverID,
	}, nil
}

func (s *stubEngine) RecordReferralForChallenge(_ context.Context, _ string, _ string) error {
	panic("not used")
}

func (s *stubEngine) ScanCommissions(_ context.Context, _ *affiliate.ScanCommissionsRequest) (*affiliate.ScanCommissionsResponse, error) {
	return &affiliate.ScanCommissionsResponse{Items: []*models.AffiliateCommission{{ID: "com-1"}}, Total: 1}, nil
}

func (s *stubEngine) ListPayouts(_ context.Context, userID string) ([]*models.AffiliatePayout, error) {
	return []*models.AffiliatePayout{{ID: "payout-1", UserID: userID, Amount: 1000}}, nil
}

func newAffiliateRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterAffiliateRoutes(r.Group("/api/v1/affiliate"), &stubEngine{})
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestApiCreateProgram_ReturnsCode(t *testing.T) {
	r := newAffiliateRouter()
	w := postJSON(t, r, "/api/v1/affiliate/programs", map[string]any{"user_id": "user-1"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ABCD1234")
	require.Contains(t, w.Body.String(), `"code":0`)
}

func TestApiCreateProgram_MissingUserID(t *testing.T) {
	r := newAffiliateRouter()
	w := postJSON(t, r, "/api/v1/affiliate/programs", map[string]any{})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"code":40000`)
}

func TestApiGetProgram_NotFound(t *testing.T) {
	r := newAffiliateRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/affiliate/programs?user_id=missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"code":40000`)
}

func TestApiRegisterReferral_UnknownCode(t *testing.T) {
	r := newAffiliateRouter()
	w := postJSON(t, r, "/api/v1/affiliate/referrals", map[string]any{"code": "BADCODE1", "referred_user_id": "user-2"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"code":40000`)
}

func TestApiRecordCommission_InvalidAmount(t *testing.T) {
	r := newAffiliateRouter()
	w := postJSON(t, r, "/api/v1/affiliate/commissions", map[string]any{
		"program_id": "prog-1", "referred_user_id": "user-2", "amount": -5,
		"type": "academy", "related_entity": map[string]any{"type": "order", "id": "order-1"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"code":40000`)
}

func TestApiApproveCommission_ReturnsApproved(t *testing.T) {
	r := newAffiliateRouter()
	w := postJSON(t, r, "/api/v1/affiliate/commissions/com-1/approve", map[string]any{"approver_id": "admin-1"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"approved"`)
}

func TestApiListPayouts(t *testing.T) {
	r := newAffiliateRouter()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/affiliate/payouts?user_id=user-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "payout-1")
}
