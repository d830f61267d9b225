package tiktok

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// GetShopPerformance returns the analytics shop performance overview for a
// date range. The payload is passed through untyped; the dashboard renders
// it as-is.
func (c *Client) GetShopPerformance(ctx context.Context, startDate, endDate, currency string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("start_date_ge", startDate)
	params.Set("end_date_lt", endDate)
	if currency == "" {
		currency = "LOCAL"
	}
	params.Set("currency", currency)
	if c.shopCipher != "" {
		params.Set("shop_cipher", c.shopCipher)
	}
	return c.doRequest(ctx, http.MethodGet, "/analytics/202405/shop/performance", params, nil)
}

// GetShopPerformancePerHour returns hourly GMV/orders/visitors for one day.
func (c *Client) GetShopPerformancePerHour(ctx context.Context, date, currency string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("date", date)
	if currency == "" {
		currency = "LOCAL"
	}
	params.Set("currency", currency)
	if c.shopCipher != "" {
		params.Set("shop_cipher", c.shopCipher)
	}
	return c.doRequest(ctx, http.MethodGet, "/analytics/202510/shop/performance_per_hour", params, nil)
}
