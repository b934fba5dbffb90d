package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"siesa-sync/config"
	"siesa-sync/internal/clients/shopify"
	"siesa-sync/internal/clients/siesa"
	"siesa-sync/internal/export"
	"siesa-sync/internal/handler"
	syncredis "siesa-sync/internal/redis"
	"siesa-sync/internal/repository"
	"siesa-sync/internal/services"
	"siesa-sync/pkg/database"
	"siesa-sync/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.Server.Mode == gin.ReleaseMode {
		mode = logger.ProductionMode
	}
	zaplog := logger.New(mode)
	defer zaplog.Logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.InitSchema(ctx, db); err != nil {
		return err
	}

	redisClient, err := syncredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	orderRepo := repository.NewOrderRepository(db)
	orderLogRepo := repository.NewOrderLogRepository(db)
	batchRepo := repository.NewSyncBatchRepository(db)
	syncRepo := repository.NewSyncRepository(db)

	tokenCache := syncredis.NewTokenCache(redisClient, cfg.Siesa.TokenCacheTTL)
	siesaClient := siesa.NewClient(cfg.Siesa, tokenCache)
	shopifyClient := shopify.NewClient(cfg.Shopify)

	audit := services.NewAuditRecorder(orderLogRepo, zaplog)
	orderService := services.NewOrderService(orderRepo, shopifyClient, audit, zaplog, cfg.Jobs.MaxAttempts)

	inventoryService := services.NewInventoryService(batchRepo, syncRepo, siesaClient, shopifyClient, zaplog, cfg.Jobs.SyncWorkers)

	exporter := export.NewFlatFileExporter(cfg.Siesa)
	exportWorker := services.NewExportWorker(orderService, exporter, zaplog,
		cfg.Jobs.ExportInterval, cfg.Jobs.ExportBatchSize, cfg.Jobs.StalledThreshold)
	scheduler := services.NewSyncScheduler(inventoryService, zaplog, cfg.Jobs.SyncInterval)

	exportWorker.Start(ctx)
	defer exportWorker.Stop()
	scheduler.Start(ctx)
	defer scheduler.Stop()

	gin.SetMode(cfg.Server.Mode)
	router := handler.NewRouter(
		zaplog,
		cfg.Shopify.WebhookSecret,
		handler.NewWebhookHandler(orderService),
		handler.NewOrderHandler(orderService, cfg.Jobs.StalledThreshold),
		handler.NewSyncHandler(inventoryService, scheduler, zaplog),
		handler.NewHealthHandler(db, redisClient),
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		zaplog.Infof("starting server on port %s", cfg.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zaplog.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
