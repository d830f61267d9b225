package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"shopsync/internal/client/tiktok"
	"shopsync/internal/models"
	"shopsync/internal/repository"
	"shopsync/internal/service"
)

type OrderHandler struct {
	Repo   repository.Repository
	Client *tiktok.Client
	Tokens service.TokenProvider
}

func (h *OrderHandler) Register(r *gin.Engine) {
	g := r.Group("/api/orders")
	g.GET("/list", h.list)
	g.GET("/:id", h.detail)
}

// detail fetches the live order record upstream; the mirrored row may lag
// by up to one sync interval.
func (h *OrderHandler) detail(c *gin.Context) {
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
	raw, err := h.Client.WithAccessToken(token).GetOrderDetail(c.Request.Context(), id)
	if err != nil {
		Error(c, upstreamStatus(err), err.Error(), nil)
		return
	}
	Ok(c, raw, nil)
}

func (h *OrderHandler) list(c *gin.Context) {
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
		"created_time": "created_time",
		"paid_time":    "paid_time",
		"synced_at":    "synced_at",
		"total_amount": "total_amount",
		"item_count":   "item_count",
		"status":       "status",
		"order_number": "order_number",
	})
	params := repository.ListOrdersParams{
		Limit:   pageSize,
		Offset:  (page - 1) * pageSize,
		Status:  strQueryPtr(c, "status"),
		Search:  strQueryPtr(c, "search"),
		From:    timeQueryPtr(c, "from"),
		To:      timeQueryPtr(c, "to"),
		OrderBy: orderBy,
		Asc:     boolPtr(boolQueryDefault(c, "asc", false)),
	}
	items, err := h.Repo.ListOrders(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	// Brand filtering digs into raw line items, so it happens after the
	// DB query and before pagination metadata would be exact. Total then
	// reflects the unfiltered count.
	if brand := c.Query("brand"); brand != "" {
		items = filterOrdersByBrand(items, brand)
	}
	total, err := h.Repo.CountOrders(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(pageSize, (page-1)*pageSize, total))
}

func filterOrdersByBrand(items []models.Order, brand string) []models.Order {
	out := items[:0]
	for i := range items {
		var raw struct {
			LineItems []struct {
				ProductName string `json:"product_name"`
			} `json:"line_items"`
			ItemList []struct {
				ProductName string `json:"product_name"`
			} `json:"item_list"`
		}
		if err := json.Unmarshal(items[i].RawData, &raw); err != nil {
			continue
		}
		names := raw.LineItems
		if len(names) == 0 {
			names = raw.ItemList
		}
		for _, item := range names {
			if strings.EqualFold(service.ExtractBrand(item.ProductName), brand) {
				out = append(out, items[i])
				break
			}
		}
	}
	return out
}

func timeQueryPtr(c *gin.Context, key string) *time.Time {
	v := c.Query(key)
	if v == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}
