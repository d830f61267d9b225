package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"shopsync/internal/models"
)

// The upstream API is loose about field names and types across versions:
// amounts arrive as strings or numbers, timestamps as epoch seconds, and
// several fields have two spellings. The raw types below accept all the
// shapes observed in production payloads.

type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

type rawOrder struct {
	ID           flexString `json:"id"`
	OrderID      flexString `json:"order_id"`
	OrderStatus  string     `json:"order_status"`
	Status       string     `json:"status"`
	CreateTime   int64      `json:"create_time"`
	PaidTime     *int64     `json:"paid_time"`
	ShipTime     *int64     `json:"ship_time"`
	DeliveryTime *int64     `json:"delivery_time"`
	Payment      struct {
		TotalAmount flexString `json:"total_amount"`
		Currency    string     `json:"currency"`
	} `json:"payment"`
	LineItems            []json.RawMessage `json:"line_items"`
	ItemList             []json.RawMessage `json:"item_list"`
	BuyerUID             flexString        `json:"buyer_uid"`
	BuyerUserID          flexString        `json:"buyer_user_id"`
	ShippingProviderName string            `json:"shipping_provider_name"`
	ShippingProvider     string            `json:"shipping_provider"`
	TrackingNumber       string            `json:"tracking_number"`
}

type rawImage struct {
	URL string
}

func (i *rawImage) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "\"") {
		return json.Unmarshal(data, &i.URL)
	}
	var obj struct {
		URL  string   `json:"url"`
		URLs []string `json:"urls"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	i.URL = obj.URL
	if i.URL == "" && len(obj.URLs) > 0 {
		i.URL = obj.URLs[0]
	}
	return nil
}

type rawBrand struct {
	Name string
}

func (b *rawBrand) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "\"") {
		return json.Unmarshal(data, &b.Name)
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	b.Name = obj.Name
	return nil
}

// rawStockEntry is one warehouse's stock level; newer payloads carry
// quantity, older ones available_stock.
type rawStockEntry struct {
	Quantity       int `json:"quantity"`
	AvailableStock int `json:"available_stock"`
}

func (e rawStockEntry) count() int {
	if e.Quantity != 0 {
		return e.Quantity
	}
	return e.AvailableStock
}

type rawSKU struct {
	SellerSKU string `json:"seller_sku"`
	Price     struct {
		TaxExclusivePrice flexString `json:"tax_exclusive_price"`
		Amount            flexString `json:"amount"`
		OriginalPrice     flexString `json:"original_price"`
	} `json:"price"`
	Inventory  []rawStockEntry `json:"inventory"`
	StockInfos []rawStockEntry `json:"stock_infos"`
}

type rawProduct struct {
	ID          flexString `json:"id"`
	ProductID   flexString `json:"product_id"`
	Title       string     `json:"title"`
	ProductName string     `json:"product_name"`
	Status      string     `json:"status"`
	CreateTime  int64      `json:"create_time"`
	Audit       struct {
		Status string `json:"status"`
	} `json:"audit"`
	MainImages   []rawImage `json:"main_images"`
	Images       []rawImage `json:"images"`
	Skus         []rawSKU   `json:"skus"`
	CategoryName string     `json:"category_name"`
	Category     struct {
		Name string `json:"name"`
	} `json:"category"`
	Brand rawBrand `json:"brand"`
}

// TransformOrder maps one raw order record onto the local row shape.
// The record's creation time is returned alongside for checkpoint tracking.
func TransformOrder(raw json.RawMessage, syncedAt time.Time) (models.Order, time.Time, error) {
	var src rawOrder
	if err := json.Unmarshal(raw, &src); err != nil {
		return models.Order{}, time.Time{}, fmt.Errorf("decode order: %w", err)
	}
	id := string(src.ID)
	if id == "" {
		return models.Order{}, time.Time{}, fmt.Errorf("order record has no id")
	}

	orderNumber := string(src.OrderID)
	if orderNumber == "" {
		orderNumber = id
	}
	status := src.OrderStatus
	if status == "" {
		status = src.Status
	}
	if status == "" {
		status = "UNKNOWN"
	}

	items := src.LineItems
	if len(items) == 0 {
		items = src.ItemList
	}

	customerID := string(src.BuyerUID)
	if customerID == "" {
		customerID = string(src.BuyerUserID)
	}
	provider := src.ShippingProviderName
	if provider == "" {
		provider = src.ShippingProvider
	}

	currency := src.Payment.Currency
	if currency == "" {
		currency = "GBP"
	}

	createdTime := epochTime(src.CreateTime)
	order := models.Order{
		ID:               id,
		OrderNumber:      orderNumber,
		Status:           status,
		CreatedTime:      createdTime,
		PaidTime:         epochTimePtr(src.PaidTime),
		ShippedTime:      epochTimePtr(src.ShipTime),
		DeliveredTime:    epochTimePtr(src.DeliveryTime),
		TotalAmount:      parseAmount(string(src.Payment.TotalAmount)),
		Currency:         currency,
		ItemCount:        len(items),
		CustomerID:       strPtr(customerID),
		ShippingProvider: strPtr(provider),
		TrackingNumber:   strPtr(src.TrackingNumber),
		RawData:          datatypes.JSON(raw),
		SyncedAt:         syncedAt,
	}
	return order, createdTime, nil
}

// TransformProduct maps one raw product record onto the local row shape.
func TransformProduct(raw json.RawMessage, syncedAt time.Time) (models.Product, time.Time, error) {
	var src rawProduct
	if err := json.Unmarshal(raw, &src); err != nil {
		return models.Product{}, time.Time{}, fmt.Errorf("decode product: %w", err)
	}
	id := string(src.ID)
	if id == "" {
		id = string(src.ProductID)
	}
	if id == "" {
		return models.Product{}, time.Time{}, fmt.Errorf("product record has no id")
	}

	name := src.Title
	if name == "" {
		name = src.ProductName
	}
	if name == "" {
		name = "Unknown Product"
	}

	status := src.Status
	if src.Audit.Status != "" {
		status = src.Audit.Status
	}
	if status == "" {
		status = "UNKNOWN"
	}

	price := decimal.Zero
	var sellerSKU string
	if len(src.Skus) > 0 {
		first := src.Skus[0]
		sellerSKU = first.SellerSKU
		price = firstAmount(
			string(first.Price.TaxExclusivePrice),
			string(first.Price.Amount),
			string(first.Price.OriginalPrice),
		)
	}

	// Stock is summed across every SKU and warehouse. stock_infos is the
	// legacy field name and only counts when a SKU has no inventory list.
	stock := 0
	for _, sku := range src.Skus {
		entries := sku.Inventory
		if len(entries) == 0 {
			entries = sku.StockInfos
		}
		for _, inv := range entries {
			stock += inv.count()
		}
	}

	category := src.CategoryName
	if category == "" {
		category = src.Category.Name
	}

	var imageURL string
	images := src.MainImages
	if len(images) == 0 {
		images = src.Images
	}
	if len(images) > 0 {
		imageURL = images[0].URL
	}

	product := models.Product{
		ID:            id,
		Name:          name,
		SKU:           strPtr(sellerSKU),
		Status:        status,
		Price:         price,
		StockQuantity: stock,
		Category:      strPtr(category),
		Brand:         strPtr(src.Brand.Name),
		ImageURL:      strPtr(imageURL),
		RawData:       datatypes.JSON(raw),
		SyncedAt:      syncedAt,
	}
	var createdTime time.Time
	if src.CreateTime > 0 {
		createdTime = epochTime(src.CreateTime)
	}
	return product, createdTime, nil
}

func epochTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func epochTimePtr(sec *int64) *time.Time {
	if sec == nil || *sec <= 0 {
		return nil
	}
	t := time.Unix(*sec, 0).UTC()
	return &t
}

func parseAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	val, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return val
}

func firstAmount(values ...string) decimal.Decimal {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return parseAmount(v)
		}
	}
	return decimal.Zero
}

func strPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
