package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"shopsync/internal/models"
	"shopsync/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// It implements the full interface but only the subset the sync and KPI
// tests exercise keeps real state.
type stubRepo struct {
	orders      map[string]models.Order
	products    map[string]models.Product
	checkpoints map[string]models.SyncCheckpoint
	token       *models.OAuthToken

	// failUpsertAfter makes the Nth orders upsert fail (1-based); zero
	// disables the fault.
	failUpsertAfter int
	upsertCalls     int

	// lastWindowStart records the start of the most recent
	// ListOrdersInWindow call.
	lastWindowStart time.Time
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		orders:      make(map[string]models.Order),
		products:    make(map[string]models.Product),
		checkpoints: make(map[string]models.SyncCheckpoint),
	}
}

var errInjected = errors.New("injected failure")

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func (s *stubRepo) UpsertOrdersTx(ctx context.Context, tx *gorm.DB, items []models.Order) error {
	s.upsertCalls++
	if s.failUpsertAfter > 0 && s.upsertCalls >= s.failUpsertAfter {
		return errInjected
	}
	for _, it := range items {
		s.orders[it.ID] = it
	}
	return nil
}

func (s *stubRepo) UpsertProductsTx(ctx context.Context, tx *gorm.DB, items []models.Product) error {
	for _, it := range items {
		s.products[it.ID] = it
	}
	return nil
}

func (s *stubRepo) ListOrders(ctx context.Context, params repository.ListOrdersParams) ([]models.Order, error) {
	var out []models.Order
	for _, o := range s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) CountOrders(ctx context.Context, params repository.ListOrdersParams) (int64, error) {
	return int64(len(s.orders)), nil
}

func (s *stubRepo) ListOrdersInWindow(ctx context.Context, start, end time.Time) ([]models.Order, error) {
	s.lastWindowStart = start
	var out []models.Order
	for _, o := range s.orders {
		if !o.CreatedTime.Before(start) && o.CreatedTime.Before(end) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) ListOrdersWithRawData(ctx context.Context, limit int) ([]models.Order, error) {
	return s.ListOrders(ctx, repository.ListOrdersParams{})
}

func (s *stubRepo) LatestOrderSyncedAt(ctx context.Context) (*time.Time, error) { return nil, nil }

func (s *stubRepo) ListProducts(ctx context.Context, params repository.ListProductsParams) ([]models.Product, error) {
	var out []models.Product
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubRepo) CountProducts(ctx context.Context, params repository.ListProductsParams) (int64, error) {
	return int64(len(s.products)), nil
}

func (s *stubRepo) ListActiveProductsByPrice(ctx context.Context, limit int) ([]models.Product, error) {
	var out []models.Product
	for _, p := range s.products {
		if p.Status == "ACTIVE" {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price.GreaterThan(out[j].Price) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubRepo) LatestProductSyncedAt(ctx context.Context) (*time.Time, error) { return nil, nil }

func (s *stubRepo) GetSyncCheckpoint(ctx context.Context, syncType string) (*models.SyncCheckpoint, error) {
	cp, ok := s.checkpoints[syncType]
	if !ok {
		return nil, nil
	}
	out := cp
	return &out, nil
}

func (s *stubRepo) SaveSyncCheckpointTx(ctx context.Context, tx *gorm.DB, cp *models.SyncCheckpoint) error {
	s.checkpoints[cp.SyncType] = *cp
	return nil
}

func (s *stubRepo) DeleteSyncCheckpoint(ctx context.Context, syncType string) error {
	delete(s.checkpoints, syncType)
	return nil
}

func (s *stubRepo) ListSyncCheckpoints(ctx context.Context) ([]models.SyncCheckpoint, error) {
	var out []models.SyncCheckpoint
	for _, cp := range s.checkpoints {
		out = append(out, cp)
	}
	return out, nil
}

func (s *stubRepo) GetOAuthToken(ctx context.Context, shopID string) (*models.OAuthToken, error) {
	if s.token == nil {
		return nil, nil
	}
	out := *s.token
	return &out, nil
}

func (s *stubRepo) SaveOAuthToken(ctx context.Context, item *models.OAuthToken) error {
	cp := *item
	s.token = &cp
	return nil
}
