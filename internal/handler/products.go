package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shopsync/internal/client/tiktok"
	"shopsync/internal/repository"
	"shopsync/internal/service"
)

type ProductHandler struct {
	Repo     repository.Repository
	Insights *service.InsightsService
	Client   *tiktok.Client
	Tokens   service.TokenProvider
}

func (h *ProductHandler) Register(r *gin.Engine) {
	g := r.Group("/api/products")
	g.GET("/list", h.list)
	g.GET("/brands", h.brands)
	g.GET("/analytics", h.analytics)
	g.GET("/:id", h.detail)
}

func (h *ProductHandler) detail(c *gin.Context) {
	if h.Client == nil || h.Tokens == nil {
		Error(c, http.StatusServiceUnavailable, "upstream client unavailable", nil)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	token, err := h.Tokens.AccessToken(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrNoCredential) {
			Error(c, http.StatusUnauthorized, err.Error(), nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	raw, err := h.Client.WithAccessToken(token).GetProductDetail(c.Request.Context(), id)
	if err != nil {
		Error(c, upstreamStatus(err), err.Error(), nil)
		return
	}
	Ok(c, raw, nil)
}

func (h *ProductHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	page := intQuery(c, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := intQuery(c, "page_size", 20)
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}
	orderBy := parseOrder(c.Query("order_by"), map[string]string{
		"synced_at":      "synced_at",
		"name":           "name",
		"price":          "price",
		"stock_quantity": "stock_quantity",
		"status":         "status",
		"brand":          "brand",
	})
	params := repository.ListProductsParams{
		Limit:   pageSize,
		Offset:  (page - 1) * pageSize,
		Status:  strQueryPtr(c, "status"),
		Search:  strQueryPtr(c, "search"),
		OrderBy: orderBy,
		Asc:     boolPtr(boolQueryDefault(c, "asc", false)),
	}
	items, err := h.Repo.ListProducts(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountProducts(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(pageSize, (page-1)*pageSize, total))
}

func (h *ProductHandler) brands(c *gin.Context) {
	if h.Insights == nil {
		Error(c, http.StatusServiceUnavailable, "insights unavailable", nil)
		return
	}
	brands, err := h.Insights.Brands(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, brands, map[string]any{"count": len(brands)})
}

func (h *ProductHandler) analytics(c *gin.Context) {
	if h.Insights == nil {
		Error(c, http.StatusServiceUnavailable, "insights unavailable", nil)
		return
	}
	out, err := h.Insights.Analytics(c.Request.Context(), intQuery(c, "top", 10))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, out, nil)
}
