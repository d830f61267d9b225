package tiktok

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

type SearchOrdersParams struct {
	CreateTimeFrom *int64
	CreateTimeTo   *int64
	OrderStatus    string
	PageSize       int
	PageToken      string
	SortField      string
	SortOrder      string
}

// OrdersPage is one page of raw order records. An empty NextPageToken means
// no further pages; an empty Orders slice alone does not.
type OrdersPage struct {
	Orders        []json.RawMessage `json:"orders"`
	NextPageToken string            `json:"next_page_token"`
	TotalCount    int64             `json:"total_count"`
}

// SearchOrders queries /order/202309/orders/search. Time-window filters go
// in the body; pagination and sorting go in the query string.
func (c *Client) SearchOrders(ctx context.Context, p SearchOrdersParams) (*OrdersPage, error) {
	body := map[string]any{}
	if p.CreateTimeFrom != nil && p.CreateTimeTo != nil {
		body["create_time_from"] = *p.CreateTimeFrom
		body["create_time_to"] = *p.CreateTimeTo
	}
	if p.OrderStatus != "" {
		body["order_status"] = p.OrderStatus
	}

	pageSize := p.PageSize
	if pageSize <= 0 || pageSize > 50 {
		pageSize = 50
	}
	sortField := p.SortField
	if sortField == "" {
		sortField = "create_time"
	}
	sortOrder := p.SortOrder
	if sortOrder == "" {
		sortOrder = "DESC"
	}

	params := url.Values{}
	params.Set("page_size", strconv.Itoa(pageSize))
	params.Set("version", "202309")
	params.Set("sort_field", sortField)
	params.Set("sort_order", sortOrder)
	if p.PageToken != "" {
		params.Set("page_token", p.PageToken)
	}
	params = c.shopParams(params)

	data, err := c.doRequest(ctx, http.MethodPost, "/order/202309/orders/search", params, body)
	if err != nil {
		return nil, err
	}
	var page OrdersPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetOrderDetail fetches one order by upstream ID.
func (c *Client) GetOrderDetail(ctx context.Context, orderID string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("order_id", orderID)
	params = c.shopParams(params)
	return c.doRequest(ctx, http.MethodGet, "/order/202309/orders/detail", params, nil)
}
