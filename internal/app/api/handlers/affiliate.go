package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tradeacademy/commissioner/internal/app/service/affiliate"
	"github.com/tradeacademy/commissioner/pkg/response"
)

type createProgramRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// @Summary      Create Affiliate Program
// @Description  Enrolls a user as an affiliate and returns their program, including the referral code.
// @Tags         Affiliate
// @Accept       json
// @Produce      json
// @Param        request body createProgramRequest true "Program creation request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/affiliate/programs [post]
func ApiCreateProgram(eng affiliate.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createProgramRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		program, err := eng.CreateProgram(c.Request.Context(), req.UserID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(program))
	}
}

// @Summary      Get Affiliate Program
// @Description  Returns the affiliate program of a user.
// @Tags         Affiliate
// @Produce      json
// @Param        user_id query string true "User ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/affiliate/programs [get]
func ApiGetProgram(eng affiliate.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}
		program, err := eng.GetProgram(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, affiliate.ErrProgramNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(program))
	}
}

type registerReferralRequest struct {
	Code           string `json:"code" binding:"required"`
	ReferredUserID string `json:"referred_user_id" binding:"required"`
}

// @Summary      Register Referral
// @Description  Attributes a signup to an affiliate via referral code. Safe to retry.
// @Tags         Affiliate
// @Accept       json
// @Produce      json
// @Param        request body registerReferralRequest true "Referral registration request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/affiliate/referrals [post]
func ApiRegisterReferral(eng affiliate.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerReferralRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		referral, err := eng.RegisterReferral(c.Request.Context(), req.Code, req.ReferredUserID)
		if err != nil {
			if errors.Is(err, affiliate.ErrProgramNotFound) || errors.Is(err, affiliate.ErrProgramInactive) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(referral))
	}
}

// @Summary      Record Commission
// @Description  Records a commission for a qualifying revenue event. Idempotent on (program, referred user, type, related entity).
// @Tags         Affiliate
// @Accept       json
// @Produce      json
// @Param        request body affiliate.RecordCommissionRequest true "Commission request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/affiliate/commissions [post]
func ApiRecordCommission(eng affiliate.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req affiliate.RecordCommissionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		commission, err := eng.RecordCommission(c.Request.Context(), &req)
		if err != nil {
			if errors.Is(err, affiliate.ErrInvalidAmount) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(commission))
	}
}

type approveCommissionRequest struct {
	ApproverID string `json:"approver_id" binding:"required"`
}

// @Summary      Approve Commission
// @Description  Approves a pending commission and credits the affiliate's earnings. Approving twice is a no-op.
// @Tags         Affiliate
// @Accept       json
// @Produce      json
// @Param        id path string true "Commission ID"
// @Param        request body approveCommissionRequest true "Approval request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/affiliate/commissions/{id}/approve [post]
func ApiApproveCommission(eng affiliate.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req approveCommissionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		commission, err := eng.ApproveCommission(c.Request.Context(), c.Param("id"), req.ApproverID)
		if err != nil {
			if errors.Is(err, affiliate.ErrCommissionClosed) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(commission))
	}
}

// @Summary      List Payouts
// @Description  Lists an affiliate's payouts, newest first.
// @Tags         Affiliate
// @Produce      json
// @Param        user_id query string true "User ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/affiliate/payouts [get]
func ApiListPayouts(eng affiliate.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}
		payouts, err := eng.ListPayouts(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(payouts))
	}
}

func RegisterAffiliateRoutes(r gin.IRouter, eng affiliate.Engine) {
	r.POST("/programs", ApiCreateProgram(eng))
	r.GET("/programs", ApiGetProgram(eng))
	r.POST("/referrals", ApiRegisterReferral(eng))
	r.POST("/commissions", ApiRecordCommission(eng))
	r.POST("/commissions/:id/approve", ApiApproveCommission(eng))
	r.GET("/payouts", ApiListPayouts(eng))
}
