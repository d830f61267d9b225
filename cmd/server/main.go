package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"shopsync/internal/client/tiktok"
	"shopsync/internal/config"
	cronrunner "shopsync/internal/cron"
	"shopsync/internal/db"
	"shopsync/internal/handler"
	"shopsync/internal/logger"
	gormrepository "shopsync/internal/repository/gorm"
	"shopsync/internal/service"

	_ "shopsync/docs"
)

func main() {
	cfgPath := os.Getenv("SHOPSYNC_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SHOPSYNC_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	shopHTTP := &http.Client{Timeout: cfg.TikTok.Timeout}
	shopClient := tiktok.NewClient(shopHTTP, tiktok.Options{
		BaseURL:       cfg.TikTok.BaseURL,
		TokenURL:      cfg.TikTok.TokenURL,
		AppKey:        cfg.TikTok.AppKey,
		AppSecret:     cfg.TikTok.AppSecret,
		ShopID:        cfg.TikTok.ShopID,
		ShopCipher:    cfg.TikTok.ShopCipher,
		MaxRetries:    cfg.Sync.MaxRetries,
		RetryInterval: cfg.Sync.RetryInterval,
		RetryMaxWait:  cfg.Sync.RetryMaxWait,
	})
	store := gormrepository.New(dbConn.Gorm)

	cipher, err := service.NewTokenCipher(cfg.Security.EncryptionKey)
	if err != nil {
		logger.Fatal("token cipher init failed", zap.Error(err))
	}
	tokenManager := &service.TokenManager{
		Repo:        store,
		Client:      shopClient,
		Cipher:      cipher,
		Logger:      logger,
		StaticToken: cfg.TikTok.AccessToken,
	}

	reconciler := &service.Reconciler{Repo: store, Logger: logger}
	syncService := &service.SyncService{
		Repo: store,
		Sources: map[service.EntityType]service.RecordSource{
			service.EntityOrders:   &service.OrderSource{Client: shopClient, Tokens: tokenManager},
			service.EntityProducts: &service.ProductSource{Client: shopClient, Tokens: tokenManager},
		},
		Reconciler: reconciler,
		Tokens:     tokenManager,
		Logger:     logger,
		Overlap:    cfg.Sync.Overlap,
		PageSize:   cfg.Sync.PageSize,
	}
	kpiService := &service.KPIService{Repo: store}
	insights := &service.InsightsService{Repo: store}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	syncHandler := &handler.SyncHandler{Repo: store, Sync: syncService}
	syncHandler.Register(engine)
	orderHandler := &handler.OrderHandler{Repo: store, Client: shopClient, Tokens: tokenManager}
	orderHandler.Register(engine)
	productHandler := &handler.ProductHandler{Repo: store, Insights: insights, Client: shopClient, Tokens: tokenManager}
	productHandler.Register(engine)
	kpiHandler := &handler.KPIHandler{KPIs: kpiService}
	kpiHandler.Register(engine)
	analyticsHandler := &handler.AnalyticsHandler{Client: shopClient, Tokens: tokenManager}
	analyticsHandler.Register(engine)
	authHandler := &handler.AuthHandler{
		Client:      shopClient,
		Tokens:      tokenManager,
		Cfg:         cfg.TikTok,
		FrontendURL: cfg.Server.FrontendURL,
	}
	authHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cron.Enabled {
		cronRunner := cronrunner.New(logger, ctx)
		_, err = cronRunner.Add(cfg.Cron.OrdersSync, func(ctx context.Context) {
			result, err := syncService.RunSync(ctx, service.EntityOrders, service.RunOptions{})
			if err != nil {
				if errors.Is(err, service.ErrSyncAlreadyRunning) {
					return
				}
				logger.Warn("cron orders sync failed", zap.Error(err))
				return
			}
			logger.Info("cron orders sync ok",
				zap.Int("records", result.RecordsSynced),
				zap.Int("pages", result.Pages),
				zap.Bool("full", result.FullSync),
			)
		})
		if err != nil {
			logger.Warn("cron register orders sync failed", zap.Error(err))
		}
		_, err = cronRunner.Add(cfg.Cron.ProductsSync, func(ctx context.Context) {
			result, err := syncService.RunSync(ctx, service.EntityProducts, service.RunOptions{})
			if err != nil {
				if errors.Is(err, service.ErrSyncAlreadyRunning) {
					return
				}
				logger.Warn("cron products sync failed", zap.Error(err))
				return
			}
			logger.Info("cron products sync ok",
				zap.Int("records", result.RecordsSynced),
				zap.Int("pages", result.Pages),
			)
		})
		if err != nil {
			logger.Warn("cron register products sync failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
