package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"shopsync/internal/models"
)

type ListOrdersParams struct {
	Limit   int
	Offset  int
	Status  *string
	Search  *string
	From    *time.Time
	To      *time.Time
	OrderBy string
	Asc     *bool
}

type ListProductsParams struct {
	Limit   int
	Offset  int
	Status  *string
	Search  *string
	OrderBy string
	Asc     *bool
}

// Repository is the persistence boundary for the mirror. Entity rows are
// written only through the page-scoped UpsertTx methods; the checkpoint row
// is written only by the sync orchestrator.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	UpsertOrdersTx(ctx context.Context, tx *gorm.DB, items []models.Order) error
	UpsertProductsTx(ctx context.Context, tx *gorm.DB, items []models.Product) error

	ListOrders(ctx context.Context, params ListOrdersParams) ([]models.Order, error)
	CountOrders(ctx context.Context, params ListOrdersParams) (int64, error)
	ListOrdersInWindow(ctx context.Context, start, end time.Time) ([]models.Order, error)
	ListOrdersWithRawData(ctx context.Context, limit int) ([]models.Order, error)
	LatestOrderSyncedAt(ctx context.Context) (*time.Time, error)

	ListProducts(ctx context.Context, params ListProductsParams) ([]models.Product, error)
	CountProducts(ctx context.Context, params ListProductsParams) (int64, error)
	ListActiveProductsByPrice(ctx context.Context, limit int) ([]models.Product, error)
	LatestProductSyncedAt(ctx context.Context) (*time.Time, error)

	GetSyncCheckpoint(ctx context.Context, syncType string) (*models.SyncCheckpoint, error)
	SaveSyncCheckpointTx(ctx context.Context, tx *gorm.DB, cp *models.SyncCheckpoint) error
	DeleteSyncCheckpoint(ctx context.Context, syncType string) error
	ListSyncCheckpoints(ctx context.Context) ([]models.SyncCheckpoint, error)

	GetOAuthToken(ctx context.Context, shopID string) (*models.OAuthToken, error)
	SaveOAuthToken(ctx context.Context, item *models.OAuthToken) error
}
