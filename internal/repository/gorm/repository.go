package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shopsync/internal/models"
	"shopsync/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- orders -----------------------------------------------------------------

func (s *Store) UpsertOrdersTx(ctx context.Context, tx *gorm.DB, items []models.Order) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"order_number",
			"status",
			"created_time",
			"paid_time",
			"shipped_time",
			"delivered_time",
			"total_amount",
			"currency",
			"item_count",
			"customer_id",
			"shipping_provider",
			"tracking_number",
			"raw_data",
			"synced_at",
		}),
	}), items, 200)
}

func (s *Store) ListOrders(ctx context.Context, params repository.ListOrdersParams) ([]models.Order, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.applyOrderFilters(s.db.WithContext(ctx).Model(&models.Order{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_time")
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Order
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountOrders(ctx context.Context, params repository.ListOrdersParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	query := s.applyOrderFilters(s.db.WithContext(ctx).Model(&models.Order{}), params)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) applyOrderFilters(query *gorm.DB, params repository.ListOrdersParams) *gorm.DB {
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		pattern := "%" + strings.TrimSpace(*params.Search) + "%"
		query = query.Where("id LIKE ? OR order_number LIKE ?", pattern, pattern)
	}
	if params.From != nil && !params.From.IsZero() {
		query = query.Where("created_time >= ?", *params.From)
	}
	if params.To != nil && !params.To.IsZero() {
		query = query.Where("created_time <= ?", *params.To)
	}
	return query
}

func (s *Store) ListOrdersInWindow(ctx context.Context, start, end time.Time) ([]models.Order, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Order
	err := s.db.WithContext(ctx).
		Where("created_time >= ?", start).
		Where("created_time <= ?", end).
		Order("created_time asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListOrdersWithRawData(ctx context.Context, limit int) ([]models.Order, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Where("raw_data IS NOT NULL").
		Order("created_time desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var items []models.Order
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) LatestOrderSyncedAt(ctx context.Context) (*time.Time, error) {
	return s.latestSyncedAt(ctx, &models.Order{})
}

// --- products ---------------------------------------------------------------

func (s *Store) UpsertProductsTx(ctx context.Context, tx *gorm.DB, items []models.Product) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"sku",
			"status",
			"price",
			"stock_quantity",
			"category",
			"brand",
			"image_url",
			"raw_data",
			"synced_at",
		}),
	}), items, 200)
}

func (s *Store) ListProducts(ctx context.Context, params repository.ListProductsParams) ([]models.Product, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.applyProductFilters(s.db.WithContext(ctx).Model(&models.Product{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "synced_at")
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Product
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountProducts(ctx context.Context, params repository.ListProductsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	query := s.applyProductFilters(s.db.WithContext(ctx).Model(&models.Product{}), params)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) applyProductFilters(query *gorm.DB, params repository.ListProductsParams) *gorm.DB {
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		pattern := "%" + strings.TrimSpace(*params.Search) + "%"
		query = query.Where("name ILIKE ? OR sku ILIKE ?", pattern, pattern)
	}
	return query
}

func (s *Store) ListActiveProductsByPrice(ctx context.Context, limit int) ([]models.Product, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Product
	err := s.db.WithContext(ctx).
		Where("status = ?", "ACTIVE").
		Order("price desc").
		Limit(normalizeLimit(limit, 10)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) LatestProductSyncedAt(ctx context.Context) (*time.Time, error) {
	return s.latestSyncedAt(ctx, &models.Product{})
}

func (s *Store) latestSyncedAt(ctx context.Context, model any) (*time.Time, error) {
	var row struct {
		SyncedAt *time.Time
	}
	err := s.db.WithContext(ctx).Model(model).
		Select("max(synced_at) as synced_at").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return row.SyncedAt, nil
}

// --- sync checkpoints -------------------------------------------------------

func (s *Store) GetSyncCheckpoint(ctx context.Context, syncType string) (*models.SyncCheckpoint, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var cp models.SyncCheckpoint
	err := s.db.WithContext(ctx).First(&cp, "sync_type = ?", syncType).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *Store) SaveSyncCheckpointTx(ctx context.Context, tx *gorm.DB, cp *models.SyncCheckpoint) error {
	if cp == nil {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sync_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_sync_time",
			"last_record_time",
			"records_synced",
			"is_full_sync",
			"updated_at",
		}),
	}).Create(cp).Error
}

func (s *Store) DeleteSyncCheckpoint(ctx context.Context, syncType string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Delete(&models.SyncCheckpoint{}, "sync_type = ?", syncType).Error
}

func (s *Store) ListSyncCheckpoints(ctx context.Context) ([]models.SyncCheckpoint, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var cps []models.SyncCheckpoint
	if err := s.db.WithContext(ctx).Order("sync_type asc").Find(&cps).Error; err != nil {
		return nil, err
	}
	return cps, nil
}

// --- oauth tokens -----------------------------------------------------------

// GetOAuthToken returns the token row for shopID, or the first stored token
// when shopID is empty. nil when none exist.
func (s *Store) GetOAuthToken(ctx context.Context, shopID string) (*models.OAuthToken, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.OAuthToken{})
	if shopID != "" {
		query = query.Where("shop_id = ?", shopID)
	}
	var token models.OAuthToken
	err := query.Order("id asc").First(&token).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *Store) SaveOAuthToken(ctx context.Context, item *models.OAuthToken) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"shop_name",
			"access_token",
			"refresh_token",
			"expires_at",
			"updated_at",
		}),
	}).Create(item).Error
}

// --- helpers ----------------------------------------------------------------

func createInBatches[T any](tx *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	return tx.CreateInBatches(items, batchSize).Error
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
