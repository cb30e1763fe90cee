package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tradeacademy/commissioner/internal/app/service/affiliate"
	"github.com/tradeacademy/commissioner/internal/app/service/statistics"
	"github.com/tradeacademy/commissioner/pkg/response"
)

// @Summary      List Commissions (Admin)
// @Description  Retrieves a paginated and filterable list of commissions.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body affiliate.ScanCommissionsRequest true "List request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListCommissions
// @Router       /api/v1/admin/list_commissions [post]
func ApiListCommissions(eng affiliate.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req affiliate.ScanCommissionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := eng.ScanCommissions(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Get Billing Snapshots (Admin)
// @Description  Retrieves daily billing snapshots within a date range.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.SnapshotRangeRequest true "Snapshot range request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/get_billing_snapshots [post]
func ApiGetBillingSnapshots(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.SnapshotRangeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		rows, err := svc.GetSnapshots(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Run Daily Snapshot (Admin)
// @Description  Computes and upserts the billing snapshot for a day (default: today). Safe to repeat.
// @Tags         Admin
// @Produce      json
// @Param        date query string false "Snapshot date (YYYY-MM-DD)"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/run_daily_snapshot [post]
func ApiRunDailySnapshot(svc *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		day := time.Now()
		if v := c.Query("date"); v != "" {
			parsed, err := time.Parse(time.DateOnly, v)
			if err != nil {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid date"))
				return
			}
			day = parsed
		}
		snap, err := svc.SnapshotDaily(c.Request.Context(), day)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(snap))
	}
}

func RegisterAdminRoutes(r gin.IRouter, eng affiliate.Engine, stats *statistics.Service) {
	r.POST("/list_commissions", ApiListCommissions(eng))
	r.POST("/get_billing_snapshots", ApiGetBillingSnapshots(stats))
	r.POST("/run_daily_snapshot", ApiRunDailySnapshot(stats))
}
