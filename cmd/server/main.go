package main // HTTP server entry point

import (
	"context"   // shutdown and signal contexts
	"errors"    // sentinel comparisons
	"log"       // process log, routed through lumberjack
	"net/http"  // http.ErrServerClosed
	"os"        // signals and env
	"os/signal" // SIGINT/SIGTERM handling
	"syscall"   // SIGTERM

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // built-in Echo middleware

	"github.com/alanwtom/carmodel/internal/config"
	"github.com/alanwtom/carmodel/internal/database"
	"github.com/alanwtom/carmodel/internal/handler"
	"github.com/alanwtom/carmodel/internal/imagestore"
	"github.com/alanwtom/carmodel/internal/logging"
	"github.com/alanwtom/carmodel/internal/middleware"
	"github.com/alanwtom/carmodel/internal/queue"
	"github.com/alanwtom/carmodel/internal/repository"
	"github.com/alanwtom/carmodel/internal/router"
	"github.com/alanwtom/carmodel/internal/scheduler"
	"github.com/alanwtom/carmodel/internal/service"
)

// bookingLogFile receives one line per booking lifecycle event.
const bookingLogFile = "logs/booking.log"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	cfg := config.Load() // Load environment config

	logOut, logFile := logging.Setup(cfg.Log)
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	// nil when Redis is unreachable; cache and rate limit then pass through
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		defer rdb.Close()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	vehicles := repository.NewVehicleRepo(db)
	images := repository.NewVehicleImageRepo(db, vehicles)
	bookings := repository.NewBookingRepo(db)
	wallets := repository.NewWalletRepo(db)
	payments := repository.NewPaymentRepo(db)
	analytics := repository.NewAnalyticsRepo(db)

	amqpURL := queue.URLFromEnv()
	bookingLog := logging.NewRotatingFile(bookingLogFile, cfg.Log)
	defer bookingLog.Close()
	go func() {
		if err := queue.StartBookingConsumer(ctx, amqpURL, bookingLog); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	store := service.NewSQLStore(db, vehicles, bookings, wallets, payments)
	paymentLog := service.NewPaymentLog(payments)
	// requests enqueue events; delivery to the broker happens off the request path
	events := queue.NewDispatcher(queue.NewPublisher(amqpURL), cfg.EventBuffer, cfg.EventTimeout)
	manager := service.NewManager(store, service.NewLedger(cfg.WalletDefaultBalance), paymentLog,
		events, service.ManagerConfig{
			MaxAttempts:  cfg.BookingMaxAttempts,
			RetryBackoff: cfg.BookingRetryBackoff,
		})

	uploader, err := imagestore.New(config.LoadCloudinaryConfig())
	if err != nil {
		log.Printf("image upload disabled: %v", err)
		uploader = imagestore.Disabled{}
	}

	sched, err := scheduler.New()
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	if err := sched.AddReconcile(config.LoadSchedulerConfig(),
		scheduler.ReconcileWallets(wallets, payments)); err != nil {
		log.Fatalf("schedule reconcile: %v", err)
	}
	sched.Start() // runs the reconcile job in the background

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Logger.SetOutput(logOut)
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Printf("%s %s %d %s rid=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))

	rateCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()
	guard := router.Guard{JWTSecret: cfg.JWTSecret, Users: users}

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, manager), guard,
		middleware.NewTokenBucket(rateCfg, rdb))
	router.RegisterPublic(e, handler.NewCatalogHandler(vehicles, images), middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterCustomer(e,
		handler.NewBookingHandler(manager, bookings),
		handler.NewWalletHandler(manager, paymentLog),
		guard, middleware.NewTokenBucket(rateCfg.ForBookings(), rdb))
	router.RegisterAdmin(e, router.AdminHandlers{
		Vehicles:  handler.NewAdminVehicleHandler(vehicles, images, uploader),
		Bookings:  handler.NewAdminBookingHandler(manager, bookings),
		Users:     handler.NewAdminUserHandler(users),
		Analytics: handler.NewAnalyticsHandler(analytics),
	}, guard, middleware.InvalidateCache(cacheCfg, rdb))

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done() // wait for SIGINT/SIGTERM
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("scheduler shutdown: %v", err)
	}
	if err := events.Close(shutdownCtx); err != nil { // drain queued booking events
		log.Printf("event dispatcher: %v", err)
	}
}
