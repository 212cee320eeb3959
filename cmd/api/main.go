package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/keyprice_api/internal/cache"
	"github.com/GTDGit/keyprice_api/internal/config"
	"github.com/GTDGit/keyprice_api/internal/database"
	"github.com/GTDGit/keyprice_api/internal/events"
	"github.com/GTDGit/keyprice_api/internal/handler"
	"github.com/GTDGit/keyprice_api/internal/metrics"
	"github.com/GTDGit/keyprice_api/internal/middleware"
	"github.com/GTDGit/keyprice_api/internal/repository"
	"github.com/GTDGit/keyprice_api/internal/service"
	"github.com/GTDGit/keyprice_api/internal/worker"
	"github.com/GTDGit/keyprice_api/pkg/allkeyshop"
	"github.com/GTDGit/keyprice_api/pkg/steampage"
)

// main is the entrypoint for the key price API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Str("cache_backend", cfg.Cache.Backend).Msg("starting keyprice api")

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 4. Open price cache store
	checks := map[string]handler.Pinger{
		"database": handler.PingFunc(db.PingContext),
	}
	var store cache.Store
	switch cfg.Cache.Backend {
	case "pebble":
		pebbleStore, err := cache.NewPebbleStore(cfg.Cache.PebbleDir)
		if err != nil {
			log.Error().Err(err).Str("dir", cfg.Cache.PebbleDir).Msg("pebble open failed")
			fmt.Fprintf(os.Stderr, "pebble open failed: %v\n", err)
			os.Exit(1)
		}
		store = pebbleStore
	default:
		redisStore, err := cache.NewRedisStore(&cfg.Redis)
		if err != nil {
			log.Error().Err(err).Msg("redis connection failed")
			fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
			os.Exit(1)
		}
		checks["redis"] = redisStore
		store = redisStore
		log.Info().Msg("redis connected successfully")
	}
	defer store.Close()

	// 5. Metrics and search events
	reg := metrics.NewRegistry()

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("search events enabled")
	}
	defer publisher.Close()

	// 6. Initialize catalog client
	catalog := service.NewAllkeyshopCatalog(allkeyshop.NewClient(allkeyshop.Config{
		BaseURL: cfg.Allkeyshop.BaseURL,
		Timeout: cfg.Allkeyshop.Timeout,
	}))

	// 7. Initialize repositories
	apiKeyRepo := repository.NewAPIKeyRepository(db)
	adminUserRepo := repository.NewAdminUserRepository(db)

	// 8. Initialize services
	// A load makes two catalog calls.
	priceCache := cache.NewPriceCache(store, cfg.Cache.TTL, reg).WithLoadTimeout(2 * cfg.Allkeyshop.Timeout)
	priceSvc := service.NewPriceService(catalog, priceCache, publisher, reg, cfg.Pricing)
	apiKeySvc := service.NewAPIKeyService(apiKeyRepo, cfg.Admin, reg)
	adminAuthSvc := service.NewAdminAuthService(adminUserRepo, cfg.JWTSecret)
	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		bootCtx, bootCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := adminAuthSvc.EnsureAdmin(bootCtx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name); err != nil {
			log.Error().Err(err).Str("email", cfg.Admin.Email).Msg("bootstrap admin failed")
		}
		bootCancel()
	}
	optionsSvc, err := service.NewOptionsService(cfg.Pricing.FilterOptionsPath)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.Pricing.FilterOptionsPath).Msg("filter options invalid")
		fmt.Fprintf(os.Stderr, "filter options invalid: %v\n", err)
		os.Exit(1)
	}

	// 9. Initialize handlers
	handlers := &Handlers{
		Health:  handler.NewHealthHandler(checks, catalog.IsHealthy),
		Price:   handler.NewPriceHandler(priceSvc),
		Title:   handler.NewTitleHandler(steampage.NewFetcher(cfg.Allkeyshop.Timeout)),
		Options: handler.NewOptionsHandler(optionsSvc),
		Auth:    handler.NewAuthHandler(adminAuthSvc),
		APIKey:  handler.NewAPIKeyHandler(apiKeySvc),
		Metrics: gin.WrapH(reg.Handler()),
	}

	// 10. Initialize middleware
	rateLimiter := middleware.NewInvalidAuthRateLimiter(middleware.DefaultInvalidAuthLimit, middleware.DefaultInvalidAuthWindow)
	defer rateLimiter.Stop()
	apiKeyMw := middleware.NewAPIKeyMiddleware(apiKeySvc, rateLimiter)
	adminMw := middleware.NewAdminMiddleware(cfg.Admin.Key, cfg.JWTSecret)

	// 11. Setup router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, apiKeyMw, adminMw)

	// 12. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 13. Start workers
	go worker.NewAPIKeyCleanupWorker(apiKeySvc, cfg.Worker.APIKeyCleanupInterval).Start(ctx)
	if cfg.Cache.Backend == "pebble" {
		go worker.NewCacheSweepWorker(store, cfg.Worker.CacheSweepInterval).Start(ctx)
	}

	// 14. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 15. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 16. Cancel context to stop workers
	cancel()

	// 17. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health  *handler.HealthHandler
	Price   *handler.PriceHandler
	Title   *handler.TitleHandler
	Options *handler.OptionsHandler
	Auth    *handler.AuthHandler
	APIKey  *handler.APIKeyHandler
	Metrics gin.HandlerFunc
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, apiKeyMiddleware *middleware.APIKeyMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	router.GET("/health", handlers.Health.GetHealth)
	router.GET("/metrics", handlers.Metrics)

	api := router.Group("/api")
	api.GET("/options", handlers.Options.GetOptions)
	api.POST("/prices", apiKeyMiddleware.Handle(), handlers.Price.GetPrices)
	api.POST("/titles/extract", apiKeyMiddleware.Handle(), handlers.Title.Extract)

	auth := api.Group("/auth")
	auth.POST("/login", handlers.Auth.Login)
	auth.POST("/apikey", adminMiddleware.Handle(), handlers.APIKey.Create)
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
