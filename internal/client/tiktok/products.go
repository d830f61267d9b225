package tiktok

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

type SearchProductsParams struct {
	Status    string
	PageSize  int
	PageToken string
}

type ProductsPage struct {
	Products      []json.RawMessage `json:"products"`
	NextPageToken string            `json:"next_page_token"`
	TotalCount    int64             `json:"total_count"`
}

// SearchProducts queries /product/202502/products/search with page_token
// pagination, mirroring the order search contract.
func (c *Client) SearchProducts(ctx context.Context, p SearchProductsParams) (*ProductsPage, error) {
	body := map[string]any{}
	if p.Status != "" {
		body["status"] = p.Status
	}

	pageSize := p.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}

	params := url.Values{}
	params.Set("page_size", strconv.Itoa(pageSize))
	params.Set("version", "202502")
	if p.PageToken != "" {
		params.Set("page_token", p.PageToken)
	}
	params = c.shopParams(params)

	data, err := c.doRequest(ctx, http.MethodPost, "/product/202502/products/search", params, body)
	if err != nil {
		return nil, err
	}
	var page ProductsPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetProductDetail fetches one product by upstream ID.
func (c *Client) GetProductDetail(ctx context.Context, productID string) (json.RawMessage, error) {
	params := c.shopParams(nil)
	return c.doRequest(ctx, http.MethodGet, "/product/202309/products/"+url.PathEscape(productID), params, nil)
}
