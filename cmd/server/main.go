package main // Entry point package

import (
	"log"  // Logging library
	"time" // durations for hold and idempotency TTLs

	"github.com/joho/godotenv"    // loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/event-ticket-booking/internal/config"   // Internal config loader
	"github.com/iliyamo/event-ticket-booking/internal/database" // MySQL connection pool
	"github.com/iliyamo/event-ticket-booking/internal/handler"  // HTTP handlers
	"github.com/iliyamo/event-ticket-booking/internal/hold"     // seat hold manager
	"github.com/iliyamo/event-ticket-booking/internal/idempotency"
	"github.com/iliyamo/event-ticket-booking/internal/lease" // Redis lease store
	"github.com/iliyamo/event-ticket-booking/internal/middleware"
	"github.com/iliyamo/event-ticket-booking/internal/purchase" // purchase coordinator
	"github.com/iliyamo/event-ticket-booking/internal/queue"    // order.confirmed consumer
	"github.com/iliyamo/event-ticket-booking/internal/repository"
	"github.com/iliyamo/event-ticket-booking/internal/router" // Internal router setup
	queue_publisher "github.com/iliyamo/event-ticket-booking/internal/service"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load() // Load environment config

	// ---- Durable store (MySQL) ----
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)
	seats := repository.NewSeatRepo(db)
	orders := repository.NewOrderRepo(db)
	payments := repository.NewPaymentRepo(db)
	inventory := repository.NewInventory(db, seats, orders)

	// ---- Lease store (Redis) ----
	// Holds and idempotency live in Redis; unlike rate limiting and response
	// caching, the service cannot run without it.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis connection failed; holds require a reachable lease store")
	}
	leases := lease.NewRedisStore(rdb)
	holds := hold.NewManager(leases, seats, time.Duration(cfg.HoldTTLSec)*time.Second)
	idem := idempotency.NewCache(rdb, time.Duration(cfg.IdemTTLSec)*time.Second)

	// ---- Purchase pipeline ----
	var publisher purchase.Publisher
	if cfg.RabbitURL != "" {
		publisher = queue_publisher.NewOrderPublisher(cfg.RabbitURL, events)
	}
	coordinator := purchase.NewCoordinator(inventory, leases, payments, idem, publisher)

	// ---- HTTP handlers ----
	authH := handler.NewAuthHandler(cfg, users, tokens)
	eventH := handler.NewEventHandler(events, seats, cfg.SeatRows, cfg.SeatCols)
	seatH := handler.NewSeatHandler(events, seats, leases, cfg.SeatRows, cfg.SeatCols)
	holdH := handler.NewHoldHandler(events, holds)
	payH := handler.NewPaymentHandler(payments)
	buyH := handler.NewPurchaseHandler(coordinator, orders)

	// ---- Optional Redis-backed middlewares ----
	var limitMW, cacheMW echo.MiddlewareFunc
	if rlCfg := config.LoadRateLimitConfig(); rlCfg.Enabled {
		limitMW = middleware.NewTokenBucket(rlCfg, rdb)
	}
	if cCfg := config.LoadCacheConfig(); cCfg.Enabled {
		cacheMW = middleware.NewRedisCache(cCfg, rdb)
	}

	e := echo.New() // Create Echo instance
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, eventH, seatH, cacheMW)
	router.RegisterCustomer(e, holdH, payH, buyH, cfg.JWTSecret, limitMW)
	router.RegisterOrganizer(e, eventH, cfg.JWTSecret)

	// ---- Background consumer ----
	if cfg.RabbitURL != "" {
		go func() {
			if err := queue.StartOrderConsumer(cfg.RabbitURL); err != nil {
				log.Printf("order consumer stopped: %v", err)
			}
		}()
	}

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
