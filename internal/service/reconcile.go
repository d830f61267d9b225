package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopsync/internal/models"
	"shopsync/internal/repository"
)

// Reconciler turns one page of raw records into committed local state.
// Each page is applied in a single transaction; the upserts key on the
// upstream ID, so re-applying the same page is a no-op beyond a fresh
// synced_at.
type Reconciler struct {
	Repo   repository.Repository
	Logger *zap.Logger

	// Now is overridable in tests; defaults to time.Now UTC.
	Now func() time.Time
}

func (r *Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// ApplyPage upserts every record in the page and returns the number applied
// plus the maximum creation timestamp observed. Records that fail to decode
// are skipped with a warning rather than poisoning the page.
func (r *Reconciler) ApplyPage(ctx context.Context, entity EntityType, records []json.RawMessage) (int, time.Time, error) {
	if len(records) == 0 {
		return 0, time.Time{}, nil
	}
	now := r.now()
	var maxTS time.Time

	switch entity {
	case EntityOrders:
		rows := make([]models.Order, 0, len(records))
		for _, raw := range records {
			row, createdAt, err := TransformOrder(raw, now)
			if err != nil {
				r.warn(entity, err)
				continue
			}
			rows = append(rows, row)
			if createdAt.After(maxTS) {
				maxTS = createdAt
			}
		}
		err := r.Repo.InTx(ctx, func(tx *gorm.DB) error {
			return r.Repo.UpsertOrdersTx(ctx, tx, rows)
		})
		if err != nil {
			return 0, time.Time{}, err
		}
		return len(rows), maxTS, nil

	case EntityProducts:
		rows := make([]models.Product, 0, len(records))
		for _, raw := range records {
			row, createdAt, err := TransformProduct(raw, now)
			if err != nil {
				r.warn(entity, err)
				continue
			}
			rows = append(rows, row)
			if createdAt.After(maxTS) {
				maxTS = createdAt
			}
		}
		err := r.Repo.InTx(ctx, func(tx *gorm.DB) error {
			return r.Repo.UpsertProductsTx(ctx, tx, rows)
		})
		if err != nil {
			return 0, time.Time{}, err
		}
		return len(rows), maxTS, nil

	default:
		return 0, time.Time{}, fmt.Errorf("unknown entity type: %s", entity)
	}
}

func (r *Reconciler) warn(entity EntityType, err error) {
	if r.Logger != nil {
		r.Logger.Warn("skipping malformed record",
			zap.String("entity", string(entity)),
			zap.Error(err),
		)
	}
}
