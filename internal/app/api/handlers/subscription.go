package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tradeacademy/commissioner/internal/app/service/billing"
	"github.com/tradeacademy/commissioner/pkg/response"
)

// @Summary      Create Subscription
// @Description  Creates a subscription and attempts the first charge; the subscription is active only if the charge succeeds.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        request body billing.CreateSubscriptionRequest true "Subscription creation request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscriptions [post]
func ApiCreateSubscription(mgr billing.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req billing.CreateSubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		sub, err := mgr.CreateSubscription(c.Request.Context(), &req)
		if err != nil {
			if errors.Is(err, billing.ErrPlanUnknown) || errors.Is(err, billing.ErrSubscriptionActiveExists) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(sub))
	}
}

type cancelSubscriptionRequest struct {
	Reason string `json:"reason"`
}

// @Summary      Cancel Subscription
// @Description  Cancels a subscription. Cancelling twice is a no-op.
// @Tags         Subscription
// @Accept       json
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Param        request body cancelSubscriptionRequest true "Cancellation request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscriptions/{id}/cancel [post]
func ApiCancelSubscription(mgr billing.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cancelSubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		if err := mgr.CancelSubscription(c.Request.Context(), c.Param("id"), req.Reason); err != nil {
			if errors.Is(err, billing.ErrSubscriptionNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Pause Subscription
// @Tags         Subscription
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscriptions/{id}/pause [post]
func ApiPauseSubscription(mgr billing.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := mgr.PauseSubscription(c.Request.Context(), c.Param("id")); err != nil {
			if errors.Is(err, billing.ErrSubscriptionNotFound) || errors.Is(err, billing.ErrSubscriptionNotActive) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Resume Subscription
// @Tags         Subscription
// @Produce      json
// @Param        id path string true "Subscription ID"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscriptions/{id}/resume [post]
func ApiResumeSubscription(mgr billing.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := mgr.ResumeSubscription(c.Request.Context(), c.Param("id")); err != nil {
			if errors.Is(err, billing.ErrSubscriptionNotFound) || errors.Is(err, billing.ErrSubscriptionNotPaused) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT[any](nil))
	}
}

// @Summary      Run Billing Cycle
// @Description  Processes all due subscriptions. Safe to invoke at any time and frequency; also driven by the internal scheduler.
// @Tags         Billing
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/internal/billing/run [post]
func ApiRunBilling(mgr billing.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := mgr.ProcessDueSubscriptions(c.Request.Context(), time.Now())
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterSubscriptionRoutes(r gin.IRouter, mgr billing.Manager) {
	r.POST("/subscriptions", ApiCreateSubscription(mgr))
	r.POST("/subscriptions/:id/cancel", ApiCancelSubscription(mgr))
	r.POST("/subscriptions/:id/pause", ApiPauseSubscription(mgr))
	r.POST("/subscriptions/:id/resume", ApiResumeSubscription(mgr))
}

func RegisterInternalBillingRoutes(r gin.IRouter, mgr billing.Manager) {
	r.POST("/billing/run", ApiRunBilling(mgr))
}
