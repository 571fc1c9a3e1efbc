package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/mantasj/ticket-marketplace/internal/app"
	"github.com/mantasj/ticket-marketplace/internal/cache"
	"github.com/mantasj/ticket-marketplace/internal/clock"
	"github.com/mantasj/ticket-marketplace/internal/config"
	"github.com/mantasj/ticket-marketplace/internal/database"
	"github.com/mantasj/ticket-marketplace/internal/handler"
	"github.com/mantasj/ticket-marketplace/internal/queue"
	"github.com/mantasj/ticket-marketplace/internal/repository"
	"github.com/mantasj/ticket-marketplace/internal/router"
)

func main() {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database open failed: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema migration failed: %v", err)
	}
	cancel()

	// Redis backs holds, the analytics cache and activity feeds.  The
	// client is nil when Redis is unreachable; holds are mandatory, the
	// rest degrades.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis unavailable: cart holds require it")
	}

	userRepo := repository.NewUserRepo(db)
	eventRepo := repository.NewEventRepo(db)
	ticketRepo := repository.NewTicketRepo(db)
	orderRepo := repository.NewOrderRepo(db)
	holdRepo := repository.NewHoldRepo(rdb)

	analyticsCache := cache.New(rdb, config.LoadCacheConfig())

	clk := clock.NewSystem()
	availability := app.NewAvailabilityService(ticketRepo, orderRepo, holdRepo)
	allocator := app.NewAllocator(ticketRepo, availability)
	orderSvc := app.NewOrderService(orderRepo, ticketRepo, userRepo, eventRepo, allocator, clk, queue.Publish)
	cartSvc := app.NewCartService(holdRepo, ticketRepo, orderRepo, allocator, orderSvc, cfg.CartTTL, clk, queue.Publish)

	// Side-effect consumers; each runs its own reconnect loop.
	go func() {
		if err := queue.StartOrderEventsConsumer(analyticsCache); err != nil {
			log.Printf("order events consumer stopped: %v", err)
		}
	}()
	go func() {
		if err := queue.StartActivityConsumer(rdb); err != nil {
			log.Printf("activity consumer stopped: %v", err)
		}
	}()
	go func() {
		if err := queue.StartGraphSyncConsumer(); err != nil {
			log.Printf("graph sync consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, userRepo),
		Users:     handler.NewUserHandler(cfg, userRepo),
		Events:    handler.NewEventHandler(eventRepo, ticketRepo, queue.Publish),
		Tickets:   handler.NewTicketHandler(availability),
		Orders:    handler.NewOrderHandler(orderSvc),
		Cart:      handler.NewCartHandler(cartSvc),
		Analytics: handler.NewAnalyticsHandler(orderRepo, eventRepo, availability, analyticsCache),
		Activity:  handler.NewActivityHandler(rdb),
	}, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
