package main

import (
	"log"
	"time"

	"sangha/backend/config"
	"sangha/backend/middleware"
	"sangha/backend/routes"
	"sangha/backend/services"
	"sangha/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger()

	// Open the local cache mirror
	cache, err := services.OpenCache(cfg.CachePath)
	if err != nil {
		log.Fatalf("Error opening local cache: %v", err)
	}
	defer cache.Close()

	// Reconciliation core
	clock := services.SystemClock
	ledger := services.NewHistoryLedger(db, cache, clock, logger)
	stats := services.NewStatsAggregator(db, cache, ledger, clock, logger)
	weekly := services.NewWeeklyTracker(db, cache, clock, logger)
	ranking := services.NewRankingCalculator(db, stats, clock, logger)

	scheduler := services.NewRolloverScheduler(
		stats, ledger, cache, clock, logger,
		time.Duration(cfg.RolloverIntervalSec)*time.Second,
		stats.Invalidate,
	)
	scheduler.CheckAtStartup()
	scheduler.Start()
	defer scheduler.Stop()

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, db, cfg, routes.Deps{
		Stats:   stats,
		Ledger:  ledger,
		Weekly:  weekly,
		Ranking: ranking,
		Clock:   clock,
	})

	// Start server
	log.Fatal(app.Listen(":" + cfg.ServerPort))
}
