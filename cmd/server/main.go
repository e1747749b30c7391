package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // Loads .env files into the process environment
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/property-inspection-api/internal/config"     // Internal config loader
	"github.com/iliyamo/property-inspection-api/internal/database"   // MySQL connection pool
	"github.com/iliyamo/property-inspection-api/internal/guard"      // Ownership guard
	"github.com/iliyamo/property-inspection-api/internal/handler"    // HTTP handlers
	"github.com/iliyamo/property-inspection-api/internal/middleware" // Rate limit and cache middleware
	"github.com/iliyamo/property-inspection-api/internal/queue"      // Background report-event consumer
	"github.com/iliyamo/property-inspection-api/internal/report"     // PDF renderer
	"github.com/iliyamo/property-inspection-api/internal/repository" // Data access layer
	"github.com/iliyamo/property-inspection-api/internal/router"     // Route registration
)

func main() {
	_ = godotenv.Load() // Load .env when present; real env vars win in production

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories share the single pooled connection.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	inspections := repository.NewInspectionRepo(db)
	photos := repository.NewPhotoRepo(db)

	// The guard is the only place ownership of inspections and photos is
	// decided; handlers never compare owner ids themselves.
	g := guard.New(inspections, photos)

	renderer := report.NewRenderer(cfg.FetchTimeout)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	inspH := handler.NewInspectionHandler(inspections, photos, g)
	reportH := handler.NewReportHandler(inspections, photos, g, renderer)

	// Redis backs rate limiting and the GET response cache.  When the
	// client is nil both middlewares become pass-throughs.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and caching disabled")
	}

	// Consume report.generated events in the background and append them to
	// logs/reports.log.  The consumer reconnects on broker failures.
	go func() {
		if err := queue.StartReportConsumer(); err != nil {
			log.Printf("report-consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewResponseCache(config.LoadCacheConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret, users)
	router.RegisterInspections(e, inspH, reportH, cfg.JWTSecret, users)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
