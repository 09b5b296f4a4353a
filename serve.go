package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fenilmodi00/flight-deals-backend/config"
	"github.com/fenilmodi00/flight-deals-backend/database"
	"github.com/fenilmodi00/flight-deals-backend/handlers"
	"github.com/fenilmodi00/flight-deals-backend/jobs"
	"github.com/fenilmodi00/flight-deals-backend/services"
	"github.com/fenilmodi00/flight-deals-backend/shared"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the search API and the price watch job.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

// server holds everything the HTTP routes depend on
type server struct {
	search    handlers.Searcher
	dealStore *services.DealStore
	watchJob  *jobs.PriceWatchJob
	metrics   *shared.SearchMetrics
	adminKey  string
}

func serve(ctx context.Context) error {
	cfg := config.LoadConfig()
	unified := cfg.UnifiedConfiguration()
	config.ConfigureLogging(unified.Logging)

	metrics := shared.NewSearchMetrics("flightdeals")
	factory := shared.NewHTTPClientFactory(unified.Provider.HTTPRequestTimeout)
	defer factory.CleanupAllClients()

	searchService := services.NewSearchService(unified.Provider, factory, metrics)

	var dealStore *services.DealStore
	var dealSaver jobs.DealSaver
	if cfg.DatabaseURL != "" {
		if err := database.ConnectWithConfig(cfg.DatabaseURL, &unified.Database); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()

		if err := database.Migrate(ctx); err != nil {
			return err
		}
		dealStore = services.NewDealStore(database.DB, metrics)
		dealSaver = dealStore
	} else {
		logrus.Warn("DATABASE_URL not set, deals will not be stored")
	}

	routes, err := jobs.ParseWatchRoutes(cfg.WatchRoutes)
	if err != nil {
		return fmt.Errorf("invalid WATCH_ROUTES: %w", err)
	}
	watchJob := jobs.NewPriceWatchJob(searchService, dealSaver, routes, unified.Watch.Interval, metrics)
	watchJob.Start(ctx)

	var apiSearch handlers.Searcher = searchService
	if ttl := cfg.GetSearchCacheTTL(); ttl > 0 {
		cache := services.NewCacheService(ttl, 1000)
		jobs.NewCacheCleanupJob(cache, ttl).Start(ctx)
		apiSearch = services.NewCachedSearchService(searchService, cache)
	}

	app := newServerApp(&server{
		search:    apiSearch,
		dealStore: dealStore,
		watchJob:  watchJob,
		metrics:   metrics,
		adminKey:  cfg.AdminToken,
	})

	go func() {
		<-ctx.Done()
		logrus.Info("Shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.WithError(err).Error("Server shutdown failed")
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port":        cfg.ServerPort,
		"provider":    searchService.BaseURL(),
		"watch_count": len(routes),
	}).Info("Server starting")
	return app.Listen(":" + cfg.ServerPort)
}

func newServerApp(s *server) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Use(logger.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
			"database":  "disabled",
		}
		if s.dealStore != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := database.HealthCheck(ctx); err != nil {
				status["status"] = "degraded"
				status["database"] = err.Error()
				return c.Status(fiber.StatusServiceUnavailable).JSON(status)
			}
			status["database"] = "ok"
		}
		return c.JSON(status)
	})
	app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))

	api := app.Group("/api/v1")

	searchHandler := handlers.NewSearchHandler(s.search)
	api.Get("/providers", searchHandler.ListProviders)
	api.Get("/search/:provider", searchHandler.Search)

	if s.dealStore != nil {
		dealHandler := handlers.NewDealHandler(s.dealStore)
		api.Get("/deals/:origin/:destination", dealHandler.GetCheapestDeals)
	}

	admin := api.Group("/admin", handlers.RequireAdminToken(s.adminKey))
	admin.Post("/watch/run", handlers.NewAdminHandler(s.watchJob).TriggerWatchRun)

	return app
}
