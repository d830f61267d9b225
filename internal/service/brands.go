package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"shopsync/internal/repository"
)

// knownBrands are matched case-insensitively anywhere in a product name
// before falling back to the separator heuristics.
var knownBrands = []string{
	"Apple", "Samsung", "Sony", "Nike", "Adidas", "Dyson", "Shark",
	"Ninja", "Philips", "Braun", "Oral-B", "L'Oreal", "Maybelline",
	"The Ordinary", "CeraVe", "Nivea", "Garnier", "Remington", "Tefal",
	"Russell Hobbs", "Lego", "Disney", "Anker", "JBL", "Logitech",
}

var brandSeparators = []string{" - ", " | ", " (", " /", " with ", " by "}

// ExtractBrand guesses a brand from a product title. Titles on the
// marketplace rarely carry a structured brand field, so this is heuristic:
// a known brand match wins, then the text before a common separator, then
// the first two words.
func ExtractBrand(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Unknown"
	}
	lower := strings.ToLower(name)
	for _, b := range knownBrands {
		if strings.Contains(lower, strings.ToLower(b)) {
			return b
		}
	}
	for _, sep := range brandSeparators {
		if i := strings.Index(name, sep); i > 0 {
			candidate := strings.TrimSpace(name[:i])
			if candidate != "" && len(candidate) <= 40 {
				return candidate
			}
		}
	}
	words := strings.Fields(name)
	if len(words) >= 2 {
		return words[0] + " " + words[1]
	}
	return words[0]
}

// BrandStat aggregates sold units and revenue per extracted brand.
type BrandStat struct {
	Brand    string          `json:"brand"`
	Products int             `json:"products"`
	Units    int             `json:"units"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// ProductStat aggregates sold units and revenue per product name.
type ProductStat struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Brand       string          `json:"brand"`
	Units       int             `json:"units"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// ProductAnalytics is derived from the raw line items of mirrored orders,
// since per-product sales are not exposed as first-class upstream data.
type ProductAnalytics struct {
	TopProducts    []ProductStat  `json:"top_products"`
	TopBrands      []BrandStat    `json:"top_brands"`
	PaymentMethods map[string]int `json:"payment_methods"`
	OrdersScanned  int            `json:"orders_scanned"`
}

// rawLineOrder is the slice of an order's raw payload the analytics care
// about.
type rawLineOrder struct {
	LineItems []struct {
		ProductID   flexString `json:"product_id"`
		ProductName string     `json:"product_name"`
		SalePrice   flexString `json:"sale_price"`
		Quantity    int        `json:"quantity"`
	} `json:"line_items"`
	ItemList []struct {
		ProductID   flexString `json:"product_id"`
		ProductName string     `json:"product_name"`
		SalePrice   flexString `json:"sale_price"`
		Quantity    int        `json:"quantity"`
	} `json:"item_list"`
	Payment struct {
		PaymentMethodName string `json:"payment_method_name"`
	} `json:"payment"`
	PaymentMethodName string `json:"payment_method_name"`
}

// InsightsService derives brand and product level stats from the mirror.
type InsightsService struct {
	Repo repository.Repository
}

// scanLimit caps how many recent orders one analytics request walks.
const scanLimit = 2000

// Analytics walks recent orders' raw payloads and aggregates line items by
// product and by extracted brand.
func (s *InsightsService) Analytics(ctx context.Context, topN int) (ProductAnalytics, error) {
	if topN <= 0 || topN > 100 {
		topN = 10
	}
	orders, err := s.Repo.ListOrdersWithRawData(ctx, scanLimit)
	if err != nil {
		return ProductAnalytics{}, err
	}

	byProduct := make(map[string]*ProductStat)
	byBrand := make(map[string]*BrandStat)
	brandProducts := make(map[string]map[string]struct{})
	payments := make(map[string]int)

	for i := range orders {
		var raw rawLineOrder
		if err := json.Unmarshal(orders[i].RawData, &raw); err != nil {
			continue
		}
		items := raw.LineItems
		if len(items) == 0 {
			items = raw.ItemList
		}
		method := raw.Payment.PaymentMethodName
		if method == "" {
			method = raw.PaymentMethodName
		}
		if method != "" {
			payments[method]++
		}
		for _, item := range items {
			name := item.ProductName
			if name == "" {
				continue
			}
			qty := item.Quantity
			if qty <= 0 {
				qty = 1
			}
			price := parseAmount(string(item.SalePrice))
			revenue := price.Mul(decimal.NewFromInt(int64(qty)))
			brand := ExtractBrand(name)

			key := string(item.ProductID)
			if key == "" {
				key = name
			}
			p := byProduct[key]
			if p == nil {
				p = &ProductStat{ProductID: string(item.ProductID), ProductName: name, Brand: brand, Revenue: decimal.Zero}
				byProduct[key] = p
			}
			p.Units += qty
			p.Revenue = p.Revenue.Add(revenue)

			b := byBrand[brand]
			if b == nil {
				b = &BrandStat{Brand: brand, Revenue: decimal.Zero}
				byBrand[brand] = b
			}
			b.Units += qty
			b.Revenue = b.Revenue.Add(revenue)
			if brandProducts[brand] == nil {
				brandProducts[brand] = make(map[string]struct{})
			}
			brandProducts[brand][key] = struct{}{}
		}
	}

	out := ProductAnalytics{
		PaymentMethods: payments,
		OrdersScanned:  len(orders),
	}
	for _, p := range byProduct {
		out.TopProducts = append(out.TopProducts, *p)
	}
	sort.Slice(out.TopProducts, func(i, j int) bool {
		return out.TopProducts[i].Revenue.GreaterThan(out.TopProducts[j].Revenue)
	})
	if len(out.TopProducts) > topN {
		out.TopProducts = out.TopProducts[:topN]
	}
	for brand, b := range byBrand {
		b.Products = len(brandProducts[brand])
		out.TopBrands = append(out.TopBrands, *b)
	}
	sort.Slice(out.TopBrands, func(i, j int) bool {
		return out.TopBrands[i].Revenue.GreaterThan(out.TopBrands[j].Revenue)
	})
	if len(out.TopBrands) > topN {
		out.TopBrands = out.TopBrands[:topN]
	}
	return out, nil
}

// Brands lists the distinct extracted brands of the mirrored catalog,
// preferring the stored brand column and falling back to the name
// heuristic.
func (s *InsightsService) Brands(ctx context.Context) ([]string, error) {
	products, err := s.Repo.ListProducts(ctx, repository.ListProductsParams{Limit: 5000})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var out []string
	for i := range products {
		brand := ""
		if products[i].Brand != nil {
			brand = *products[i].Brand
		}
		if brand == "" {
			brand = ExtractBrand(products[i].Name)
		}
		if brand == "" || brand == "Unknown" {
			continue
		}
		if _, ok := seen[brand]; ok {
			continue
		}
		seen[brand] = struct{}{}
		out = append(out, brand)
	}
	sort.Strings(out)
	return out, nil
}
