package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"shopsync/internal/models"
	"shopsync/internal/repository"
)

// netRevenueFactor approximates net revenue after platform fees, shipping
// and refunds when no settlement data is available.
var netRevenueFactor = decimal.NewFromFloat(0.85)

var (
	completedStatuses = map[string]bool{"COMPLETED": true, "DELIVERED": true}
	pendingStatuses   = map[string]bool{"PENDING": true, "AWAITING_SHIPMENT": true, "AWAITING_COLLECTION": true, "IN_TRANSIT": true, "UNPAID": true, "ON_HOLD": true}
	cancelledStatuses = map[string]bool{"CANCELLED": true, "CANCEL": true}
)

// SummaryKPIs aggregates the mirrored orders of one time window.
type SummaryKPIs struct {
	PeriodStart         time.Time       `json:"period_start"`
	PeriodEnd           time.Time       `json:"period_end"`
	TotalOrders         int             `json:"total_orders"`
	TotalGMV            decimal.Decimal `json:"total_gmv"`
	EstimatedNetRevenue decimal.Decimal `json:"estimated_net_revenue"`
	TotalItems          int             `json:"total_items"`
	AverageOrderValue   decimal.Decimal `json:"average_order_value"`
	CompletedOrders     int             `json:"completed_orders"`
	PendingOrders       int             `json:"pending_orders"`
	CancelledOrders     int             `json:"cancelled_orders"`
	UniqueCustomers     int             `json:"unique_customers"`
	Currency            string          `json:"currency"`
}

// DailyTrend is one day of order volume and revenue.
type DailyTrend struct {
	Date     string          `json:"date"`
	Orders   int             `json:"orders"`
	Revenue  decimal.Decimal `json:"revenue"`
	ItemsQty int             `json:"items"`
}

// TodayMetrics compares today's totals against yesterday's.
type TodayMetrics struct {
	Today          SummaryKPIs     `json:"today"`
	Yesterday      SummaryKPIs     `json:"yesterday"`
	OrdersChange   decimal.Decimal `json:"orders_change_pct"`
	RevenueChange  decimal.Decimal `json:"revenue_change_pct"`
	LastComputedAt time.Time       `json:"last_computed_at"`
}

// KPIService computes dashboard metrics from mirrored rows. All figures are
// derived locally so the dashboard stays usable when the upstream API is
// rate limited or down.
type KPIService struct {
	Repo repository.Repository

	// Now is overridable in tests.
	Now func() time.Time
}

func (s *KPIService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Summary computes the aggregate KPIs for orders created in [start, end).
func (s *KPIService) Summary(ctx context.Context, start, end time.Time) (SummaryKPIs, error) {
	orders, err := s.Repo.ListOrdersInWindow(ctx, start, end)
	if err != nil {
		return SummaryKPIs{}, err
	}
	return summarize(orders, start, end), nil
}

func summarize(orders []models.Order, start, end time.Time) SummaryKPIs {
	out := SummaryKPIs{
		PeriodStart: start,
		PeriodEnd:   end,
		TotalGMV:    decimal.Zero,
		Currency:    "GBP",
	}
	customers := make(map[string]struct{})
	for i := range orders {
		o := &orders[i]
		out.TotalOrders++
		out.TotalItems += o.ItemCount
		out.TotalGMV = out.TotalGMV.Add(o.TotalAmount)
		if o.Currency != "" {
			out.Currency = o.Currency
		}
		switch {
		case completedStatuses[o.Status]:
			out.CompletedOrders++
		case cancelledStatuses[o.Status]:
			out.CancelledOrders++
		case pendingStatuses[o.Status]:
			out.PendingOrders++
		}
		if o.CustomerID != nil && *o.CustomerID != "" {
			customers[*o.CustomerID] = struct{}{}
		}
	}
	out.UniqueCustomers = len(customers)
	out.EstimatedNetRevenue = out.TotalGMV.Mul(netRevenueFactor).Round(2)
	if out.TotalOrders > 0 {
		out.AverageOrderValue = out.TotalGMV.DivRound(decimal.NewFromInt(int64(out.TotalOrders)), 2)
	} else {
		out.AverageOrderValue = decimal.Zero
	}
	return out
}

// Trends returns per-day order counts and revenue for the trailing N days,
// oldest first. Days without orders are included with zeros.
func (s *KPIService) Trends(ctx context.Context, days int) ([]DailyTrend, error) {
	if days <= 0 {
		days = 7
	}
	end := s.now()
	// The window opens at midnight UTC of the oldest reported day so the
	// query fetches exactly the orders that show up in the output.
	first := end.UTC().AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)
	orders, err := s.Repo.ListOrdersInWindow(ctx, first, end)
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]*DailyTrend, days)
	for i := range orders {
		o := &orders[i]
		if cancelledStatuses[o.Status] {
			continue
		}
		day := o.CreatedTime.UTC().Format("2006-01-02")
		t := byDay[day]
		if t == nil {
			t = &DailyTrend{Date: day, Revenue: decimal.Zero}
			byDay[day] = t
		}
		t.Orders++
		t.ItemsQty += o.ItemCount
		t.Revenue = t.Revenue.Add(o.TotalAmount)
	}
	out := make([]DailyTrend, 0, days)
	for d := 0; d < days; d++ {
		day := first.AddDate(0, 0, d).Format("2006-01-02")
		if t, ok := byDay[day]; ok {
			out = append(out, *t)
		} else {
			out = append(out, DailyTrend{Date: day, Revenue: decimal.Zero})
		}
	}
	return out, nil
}

// Today compares the current day (UTC) against the previous one.
func (s *KPIService) Today(ctx context.Context) (TodayMetrics, error) {
	now := s.now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	yesterdayStart := todayStart.AddDate(0, 0, -1)

	today, err := s.Summary(ctx, todayStart, now)
	if err != nil {
		return TodayMetrics{}, err
	}
	yesterday, err := s.Summary(ctx, yesterdayStart, todayStart)
	if err != nil {
		return TodayMetrics{}, err
	}
	return TodayMetrics{
		Today:          today,
		Yesterday:      yesterday,
		OrdersChange:   percentChange(decimal.NewFromInt(int64(yesterday.TotalOrders)), decimal.NewFromInt(int64(today.TotalOrders))),
		RevenueChange:  percentChange(yesterday.TotalGMV, today.TotalGMV),
		LastComputedAt: now,
	}, nil
}

func percentChange(prev, curr decimal.Decimal) decimal.Decimal {
	if prev.IsZero() {
		if curr.IsZero() {
			return decimal.Zero
		}
		return decimal.NewFromInt(100)
	}
	return curr.Sub(prev).DivRound(prev, 4).Mul(decimal.NewFromInt(100)).Round(2)
}

// TopProducts returns the highest priced active products.
func (s *KPIService) TopProducts(ctx context.Context, limit int) ([]models.Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.Repo.ListActiveProductsByPrice(ctx, limit)
}
