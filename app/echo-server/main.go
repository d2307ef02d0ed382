package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adserve/app/echo-server/router"
	"adserve/business/catalog"
	"adserve/business/serving"
	"adserve/internal/middleware"
	psqlRepo "adserve/internal/repository/postgres"
	redisRepo "adserve/internal/repository/redis"
	"adserve/internal/rest"
	"adserve/pkg/config"
	database "adserve/pkg/database/postgres"
	redisdb "adserve/pkg/database/redis"
	"adserve/pkg/logger"
	"adserve/pkg/metrics"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	logger.Info("Starting ad serving API", "version", cfg.App.Version)

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	if err := psqlRepo.AutoMigrate(db); err != nil {
		logger.Fatal("Failed to run repository migrations", "error", err)
	}

	logger.Info("Database connected successfully")

	redisClient, err := redisdb.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to redis", "error", err)
	}
	defer func() {
		_ = redisdb.CloseRedisClient(redisClient)
	}()

	metrics.Init()

	// Init repo
	catalogRepo := psqlRepo.NewCatalogRepository(db)
	eventRepo := psqlRepo.NewAdEventRepository(db)
	cfgRepo := psqlRepo.NewServingConfigRepository(db)
	embeddingRepo := psqlRepo.NewSegmentEmbeddingRepository(db)
	antiTargetingRepo := psqlRepo.NewAntiTargetingRepository(db)
	armRepo := redisRepo.NewBanditArmRepository(redisClient)

	// Host-level defaults; per-ad-type rows in serving_configs override these
	defaultCfg := serving.DefaultConfig()
	defaultCfg.Epsilon = cfg.Serving.Epsilon
	defaultCfg.MinimumWait = time.Duration(cfg.Serving.MinimumWaitSeconds) * time.Second

	// Init service
	servingService := serving.NewServingService(
		catalog.NewStore(),
		catalogRepo,
		eventRepo,
		cfgRepo,
		armRepo,
		embeddingRepo,
		antiTargetingRepo,
		serving.StaticSubdivisionResolver{Code: cfg.Serving.SubdivisionCode},
		serving.StaticIssuerStatus{Valid: cfg.Serving.IssuersValid},
		nil,
		nil,
		nil,
		nil,
		defaultCfg,
	)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := servingService.LoadCatalog(bootCtx); err != nil {
		logger.Fatal("Failed to load catalog", "error", err)
	}
	bootCancel()

	// Init handler
	serveHandler := rest.NewServeHandler(servingService)
	eventHandler := rest.NewEventHandler(servingService)
	adminHandler := rest.NewServingAdminHandler(cfgRepo, servingService, armRepo)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Setup routes
	api := e.Group("/api/v1")
	router.SetupServingRoutes(api, serveHandler, eventHandler)
	router.SetServingAdminRoutes(api, adminHandler)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}
