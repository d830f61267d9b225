package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shopsync/internal/service"
)

type KPIHandler struct {
	KPIs *service.KPIService
}

func (h *KPIHandler) Register(r *gin.Engine) {
	g := r.Group("/api/kpis")
	g.GET("/summary", h.summary)
	g.GET("/today", h.today)
	g.GET("/trends", h.trends)
	g.GET("/top-products", h.topProducts)
}

// @Summary KPI summary for a date window
// @Tags kpis
// @Param from query string false "window start (RFC3339 or YYYY-MM-DD, default 30 days ago)"
// @Param to query string false "window end (default now)"
// @Success 200 {object} service.SummaryKPIs
// @Router /api/kpis/summary [get]
func (h *KPIHandler) summary(c *gin.Context) {
	if h.KPIs == nil {
		Error(c, http.StatusServiceUnavailable, "kpi service unavailable", nil)
		return
	}
	end := time.Now().UTC()
	if t := timeQueryPtr(c, "to"); t != nil {
		end = *t
	}
	start := end.AddDate(0, 0, -30)
	if t := timeQueryPtr(c, "from"); t != nil {
		start = *t
	}
	if !start.Before(end) {
		Error(c, http.StatusBadRequest, "from must be before to", nil)
		return
	}
	out, err := h.KPIs.Summary(c.Request.Context(), start, end)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, out, nil)
}

func (h *KPIHandler) today(c *gin.Context) {
	if h.KPIs == nil {
		Error(c, http.StatusServiceUnavailable, "kpi service unavailable", nil)
		return
	}
	out, err := h.KPIs.Today(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, out, nil)
}

func (h *KPIHandler) trends(c *gin.Context) {
	if h.KPIs == nil {
		Error(c, http.StatusServiceUnavailable, "kpi service unavailable", nil)
		return
	}
	days := intQuery(c, "days", 7)
	if days < 1 || days > 90 {
		days = 7
	}
	out, err := h.KPIs.Trends(c.Request.Context(), days)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, out, map[string]any{"days": days})
}

func (h *KPIHandler) topProducts(c *gin.Context) {
	if h.KPIs == nil {
		Error(c, http.StatusServiceUnavailable, "kpi service unavailable", nil)
		return
	}
	out, err := h.KPIs.TopProducts(c.Request.Context(), intQuery(c, "limit", 10))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, out, nil)
}
