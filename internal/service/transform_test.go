package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var syncedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func TestTransformOrder_Basic(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "576461413036missing",
		"order_id": "ORD-001",
		"order_status": "COMPLETED",
		"create_time": 1767225600,
		"paid_time": 1767225700,
		"payment": {"total_amount": "42.50", "currency": "USD"},
		"line_items": [{}, {}],
		"buyer_uid": "buyer-1",
		"shipping_provider_name": "Royal Mail",
		"tracking_number": "RM123"
	}`)
	order, created, err := TransformOrder(raw, syncedAt)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if order.ID != "576461413036missing" || order.OrderNumber != "ORD-001" {
		t.Fatalf("id=%q number=%q", order.ID, order.OrderNumber)
	}
	if order.Status != "COMPLETED" {
		t.Fatalf("status=%q", order.Status)
	}
	if !order.TotalAmount.Equal(mustDecimal(t, "42.50")) {
		t.Fatalf("total=%s", order.TotalAmount)
	}
	if order.Currency != "USD" || order.ItemCount != 2 {
		t.Fatalf("currency=%q items=%d", order.Currency, order.ItemCount)
	}
	if order.CustomerID == nil || *order.CustomerID != "buyer-1" {
		t.Fatalf("customer=%v", order.CustomerID)
	}
	if order.PaidTime == nil || order.PaidTime.Unix() != 1767225700 {
		t.Fatalf("paid_time=%v", order.PaidTime)
	}
	if created.Unix() != 1767225600 {
		t.Fatalf("created=%v", created)
	}
}

func TestTransformOrder_Fallbacks(t *testing.T) {
	raw := json.RawMessage(`{
		"id": 123456,
		"status": "UNPAID",
		"create_time": 1767225600,
		"item_list": [{}],
		"buyer_user_id": 987,
		"shipping_provider": "Evri",
		"payment": {"total_amount": 9.99}
	}`)
	order, _, err := TransformOrder(raw, syncedAt)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	// Numeric id and order number fallback to id.
	if order.ID != "123456" || order.OrderNumber != "123456" {
		t.Fatalf("id=%q number=%q", order.ID, order.OrderNumber)
	}
	if order.Status != "UNPAID" {
		t.Fatalf("status=%q", order.Status)
	}
	if order.Currency != "GBP" {
		t.Fatalf("currency=%q want GBP default", order.Currency)
	}
	if order.ItemCount != 1 {
		t.Fatalf("items=%d", order.ItemCount)
	}
	if order.CustomerID == nil || *order.CustomerID != "987" {
		t.Fatalf("customer=%v", order.CustomerID)
	}
	if order.ShippingProvider == nil || *order.ShippingProvider != "Evri" {
		t.Fatalf("provider=%v", order.ShippingProvider)
	}
	if !order.TotalAmount.Equal(mustDecimal(t, "9.99")) {
		t.Fatalf("total=%s", order.TotalAmount)
	}
}

func TestTransformOrder_NoStatus(t *testing.T) {
	order, _, err := TransformOrder(json.RawMessage(`{"id":"x","create_time":1}`), syncedAt)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if order.Status != "UNKNOWN" {
		t.Fatalf("status=%q want UNKNOWN", order.Status)
	}
}

func TestTransformOrder_MissingID(t *testing.T) {
	if _, _, err := TransformOrder(json.RawMessage(`{"order_status":"X"}`), syncedAt); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTransformProduct_Basic(t *testing.T) {
	raw := json.RawMessage(`{
		"id": "p1",
		"title": "Dyson V15 Vacuum",
		"status": "DRAFT",
		"audit": {"status": "ACTIVE"},
		"create_time": 1767225600,
		"skus": [
			{"seller_sku": "SKU-1", "price": {"tax_exclusive_price": "299.00"}, "inventory": [{"quantity": 3}]},
			{"price": {"amount": "310.00"}, "stock_infos": [{"available_stock": 2}]}
		],
		"category_name": "Home",
		"brand": {"name": "Dyson"},
		"main_images": [{"urls": ["https://img/1.jpg"]}]
	}`)
	product, created, err := TransformProduct(raw, syncedAt)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if product.ID != "p1" || product.Name != "Dyson V15 Vacuum" {
		t.Fatalf("id=%q name=%q", product.ID, product.Name)
	}
	// Audit status wins over the top-level one.
	if product.Status != "ACTIVE" {
		t.Fatalf("status=%q", product.Status)
	}
	if product.SKU == nil || *product.SKU != "SKU-1" {
		t.Fatalf("sku=%v", product.SKU)
	}
	if !product.Price.Equal(mustDecimal(t, "299.00")) {
		t.Fatalf("price=%s", product.Price)
	}
	if product.StockQuantity != 5 {
		t.Fatalf("stock=%d want 5", product.StockQuantity)
	}
	if product.Brand == nil || *product.Brand != "Dyson" {
		t.Fatalf("brand=%v", product.Brand)
	}
	if product.ImageURL == nil || *product.ImageURL != "https://img/1.jpg" {
		t.Fatalf("image=%v", product.ImageURL)
	}
	if created.Unix() != 1767225600 {
		t.Fatalf("created=%v", created)
	}
}

func TestTransformProduct_StockFallback(t *testing.T) {
	// A SKU carrying both lists must not double-count: inventory wins
	// and stock_infos is ignored.
	raw := json.RawMessage(`{
		"id": "p2",
		"title": "Widget",
		"skus": [
			{"inventory": [{"quantity": 4}], "stock_infos": [{"available_stock": 4}]},
			{"stock_infos": [{"quantity": 7}]},
			{"stock_infos": [{"available_stock": 2}]}
		]
	}`)
	product, _, err := TransformProduct(raw, syncedAt)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if product.StockQuantity != 13 {
		t.Fatalf("stock=%d want 13", product.StockQuantity)
	}
}

func TestTransformProduct_Fallbacks(t *testing.T) {
	raw := json.RawMessage(`{
		"product_id": 555,
		"product_name": "Widget",
		"skus": [{"price": {"original_price": "5.00"}}],
		"category": {"name": "Misc"},
		"brand": "Acme",
		"images": ["https://img/2.jpg"]
	}`)
	product, created, err := TransformProduct(raw, syncedAt)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if product.ID != "555" || product.Name != "Widget" {
		t.Fatalf("id=%q name=%q", product.ID, product.Name)
	}
	if product.Status != "UNKNOWN" {
		t.Fatalf("status=%q", product.Status)
	}
	if !product.Price.Equal(mustDecimal(t, "5.00")) {
		t.Fatalf("price=%s", product.Price)
	}
	if product.Category == nil || *product.Category != "Misc" {
		t.Fatalf("category=%v", product.Category)
	}
	if product.Brand == nil || *product.Brand != "Acme" {
		t.Fatalf("brand=%v", product.Brand)
	}
	if product.ImageURL == nil || *product.ImageURL != "https://img/2.jpg" {
		t.Fatalf("image=%v", product.ImageURL)
	}
	if !created.IsZero() {
		t.Fatalf("created=%v want zero", created)
	}
}

func TestTransformProduct_UnknownName(t *testing.T) {
	product, _, err := TransformProduct(json.RawMessage(`{"id":"p2"}`), syncedAt)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if product.Name != "Unknown Product" {
		t.Fatalf("name=%q", product.Name)
	}
	if !product.Price.IsZero() || product.SKU != nil {
		t.Fatalf("price=%s sku=%v", product.Price, product.SKU)
	}
}
