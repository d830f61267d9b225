package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shopsync/internal/client/tiktok"
	"shopsync/internal/service"
)

// AnalyticsHandler proxies the upstream analytics endpoints. These numbers
// are not mirrored locally; every request here hits the live API with a
// fresh credential.
type AnalyticsHandler struct {
	Client *tiktok.Client
	Tokens service.TokenProvider
}

func (h *AnalyticsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/analytics")
	g.GET("/shop-performance", h.shopPerformance)
	g.GET("/hourly-performance", h.hourlyPerformance)
}

func (h *AnalyticsHandler) client(c *gin.Context) (*tiktok.Client, bool) {
	if h.Client == nil || h.Tokens == nil {
		Error(c, http.StatusServiceUnavailable, "analytics unavailable", nil)
		return nil, false
	}
	token, err := h.Tokens.AccessToken(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoCredential) {
			Error(c, http.StatusUnauthorized, err.Error(), nil)
		} else {
			Error(c, http.StatusBadGateway, err.Error(), nil)
		}
		return nil, false
	}
	return h.Client.WithAccessToken(token), true
}

func (h *AnalyticsHandler) shopPerformance(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	now := time.Now().UTC()
	start := c.DefaultQuery("start_date", now.AddDate(0, 0, -7).Format("2006-01-02"))
	end := c.DefaultQuery("end_date", now.Format("2006-01-02"))
	raw, err := client.GetShopPerformance(c.Request.Context(), start, end, c.Query("currency"))
	if err != nil {
		Error(c, upstreamStatus(err), err.Error(), nil)
		return
	}
	Ok(c, raw, nil)
}

func (h *AnalyticsHandler) hourlyPerformance(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	date := c.DefaultQuery("date", time.Now().UTC().Format("2006-01-02"))
	raw, err := client.GetShopPerformancePerHour(c.Request.Context(), date, c.Query("currency"))
	if err != nil {
		Error(c, upstreamStatus(err), err.Error(), nil)
		return
	}
	Ok(c, raw, nil)
}

func upstreamStatus(err error) int {
	var apiErr *tiktok.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return http.StatusUnauthorized
		case http.StatusTooManyRequests:
			return http.StatusTooManyRequests
		}
	}
	return http.StatusBadGateway
}
