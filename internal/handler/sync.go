package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"shopsync/internal/client/tiktok"
	"shopsync/internal/repository"
	"shopsync/internal/service"
)

type SyncHandler struct {
	Repo repository.Repository
	Sync *service.SyncService
}

func (h *SyncHandler) Register(r *gin.Engine) {
	g := r.Group("/api/sync")
	g.POST("/trigger", h.trigger)
	g.POST("/orders", h.syncOrders)
	g.POST("/orders/full", h.syncOrdersFull)
	g.POST("/products", h.syncProducts)
	g.GET("/status", h.status)
	g.POST("/reset/:type", h.reset)
}

type triggerRequest struct {
	SyncType   string `json:"sync_type"`
	ForceFull  bool   `json:"force_full"`
	MaxRecords int    `json:"max_records"`
}

// @Summary Trigger a sync run
// @Tags sync
// @Accept json
// @Param request body triggerRequest true "run parameters"
// @Success 200 {object} service.RunResult
// @Router /api/sync/trigger [post]
func (h *SyncHandler) trigger(c *gin.Context) {
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	entity := service.EntityType(strings.ToLower(strings.TrimSpace(req.SyncType)))
	if entity == "" {
		entity = service.EntityOrders
	}
	opts := service.RunOptions{MaxRecords: req.MaxRecords}
	if req.ForceFull {
		opts.Mode = service.ModeForceFull
	}
	h.run(c, entity, opts)
}

func (h *SyncHandler) syncOrders(c *gin.Context) {
	h.run(c, service.EntityOrders, service.RunOptions{MaxRecords: intQuery(c, "max_records", 0)})
}

func (h *SyncHandler) syncOrdersFull(c *gin.Context) {
	h.run(c, service.EntityOrders, service.RunOptions{Mode: service.ModeForceFull, MaxRecords: intQuery(c, "max_records", 0)})
}

func (h *SyncHandler) syncProducts(c *gin.Context) {
	h.run(c, service.EntityProducts, service.RunOptions{MaxRecords: intQuery(c, "max_records", 0)})
}

func (h *SyncHandler) run(c *gin.Context, entity service.EntityType, opts service.RunOptions) {
	if h.Sync == nil {
		Error(c, http.StatusServiceUnavailable, "sync service unavailable", nil)
		return
	}
	result, err := h.Sync.RunSync(c.Request.Context(), entity, opts)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, service.ErrUnknownEntity):
			status = http.StatusBadRequest
		case errors.Is(err, service.ErrNoCredential):
			status = http.StatusUnauthorized
		case errors.Is(err, service.ErrSyncAlreadyRunning):
			status = http.StatusConflict
		default:
			var apiErr *tiktok.APIError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
				status = http.StatusUnauthorized
			}
		}
		var meta map[string]any
		var syncErr *service.SyncError
		if errors.As(err, &syncErr) && syncErr.Partial {
			meta = map[string]any{"partial": true, "records_synced": result.RecordsSynced}
		}
		Error(c, status, err.Error(), meta)
		return
	}
	Ok(c, result, nil)
}

// @Summary Sync status and checkpoints
// @Tags sync
// @Success 200 {object} map[string]any
// @Router /api/sync/status [get]
func (h *SyncHandler) status(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	ctx := c.Request.Context()
	checkpoints, err := h.Repo.ListSyncCheckpoints(ctx)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	orderCount, err := h.Repo.CountOrders(ctx, repository.ListOrdersParams{})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	productCount, err := h.Repo.CountProducts(ctx, repository.ListProductsParams{})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	lastOrderSync, err := h.Repo.LatestOrderSyncedAt(ctx)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	lastProductSync, err := h.Repo.LatestProductSyncedAt(ctx)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	running := map[string]bool{}
	if h.Sync != nil {
		running[string(service.EntityOrders)] = h.Sync.Running(service.EntityOrders)
		running[string(service.EntityProducts)] = h.Sync.Running(service.EntityProducts)
	}
	Ok(c, gin.H{
		"orders_count":           orderCount,
		"products_count":         productCount,
		"last_order_synced_at":   lastOrderSync,
		"last_product_synced_at": lastProductSync,
		"checkpoints":            checkpoints,
		"running":                running,
	}, nil)
}

func (h *SyncHandler) reset(c *gin.Context) {
	if h.Sync == nil {
		Error(c, http.StatusServiceUnavailable, "sync service unavailable", nil)
		return
	}
	entity := service.EntityType(strings.ToLower(strings.TrimSpace(c.Param("type"))))
	if err := h.Sync.ResetCheckpoint(c.Request.Context(), entity); err != nil {
		if errors.Is(err, service.ErrUnknownEntity) {
			Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"sync_type": string(entity), "reset": true}, nil)
}
