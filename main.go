package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mindease/config"
	"mindease/cron"
	"mindease/database"
	counselorRepo "mindease/database/repository/counselor"
	ledgerRepo "mindease/database/repository/ledger"
	"mindease/handlers"
	"mindease/middleware"
	"mindease/models"
	"mindease/routes"
	"mindease/services/booking"
	"mindease/services/notification"
	"mindease/services/payment"
	"mindease/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// stores is the storage backend selected by STORE_DRIVER.
type stores struct {
	counselors counselorRepo.CounselorRepository
	ledger     ledgerRepo.BookingLedger
	checks     map[string]utils.Pinger
	close      func(ctx context.Context)
}

func openStores(ctx context.Context, logger *zap.Logger) (*stores, error) {
	cfg := config.AppConfig
	holdTTL := config.HoldTTL()

	s := &stores{checks: map[string]utils.Pinger{}, close: func(context.Context) {}}
	switch cfg.StoreDriver {
	case "mongo":
		db, err := database.InitDB(ctx)
		if err != nil {
			return nil, err
		}
		coll := db.Collection("counselors")
		if err := counselorRepo.EnsureCounselorIndexes(ctx, coll); err != nil {
			return nil, err
		}
		s.counselors = counselorRepo.NewMongoCounselorRepo(coll)
		s.ledger = ledgerRepo.NewMongoLedger(db.Collection("bookings"), holdTTL)
		s.checks["mongo"] = database.PingMongo
		s.close = database.CloseDB

	case "postgres":
		db, err := database.ConnectPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
			return nil, err
		}
		s.counselors = counselorRepo.NewPostgresCounselorRepo(db)
		s.ledger = ledgerRepo.NewPostgresLedger(db, holdTTL)
		s.checks["postgres"] = db.PingContext
		s.close = func(context.Context) { db.Close() }

	case "sqlite":
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		if s.counselors, err = counselorRepo.NewGormCounselorRepo(db); err != nil {
			return nil, err
		}
		s.ledger = ledgerRepo.NewGormLedger(db, holdTTL)
		s.checks["sqlite"] = sqlDB.PingContext
		s.close = func(context.Context) { sqlDB.Close() }

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if err := s.ledger.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	logger.Info("main: booking store ready", zap.String("driver", cfg.StoreDriver), zap.Duration("holdTTL", holdTTL))
	return s, nil
}

func newNotifier(ctx context.Context, logger *zap.Logger) (notification.NotificationService, error) {
	if !config.AppConfig.NotificationsEnabled {
		return notification.NewNoopNotificationService(logger), nil
	}
	client, err := utils.FirebaseMessaging(ctx)
	if err != nil {
		return nil, err
	}
	return notification.NewDefaultNotificationService(client, logger)
}

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handlers.RegisterValidators(); err != nil {
		logger.Sugar().Fatalf("main: failed to register validators: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := config.AppConfig

	st, err := openStores(ctx, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to open store: %v", err)
	}
	checks := st.checks

	counselors := st.counselors
	useRedis := cfg.RedisAddr != ""
	if useRedis {
		cache := utils.GetCacheClient()
		counselors = counselorRepo.NewCachedCounselorRepo(counselors, cache, cfg.CounselorCacheTTL, logger)
		checks["redis"] = func(ctx context.Context) error { return cache.Ping(ctx).Err() }
	}
	if cfg.SeedCounselors {
		if err := counselorRepo.SeedCounselors(ctx, counselors, logger); err != nil {
			logger.Sugar().Fatalf("main: failed to seed counselors: %v", err)
		}
	}

	notifier, err := newNotifier(ctx, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize notifications: %v", err)
	}

	var (
		gate    payment.PaymentGate
		stripe  *payment.StripeGate
		sandbox *payment.SandboxGate
	)
	switch cfg.PaymentProvider {
	case "stripe":
		stripe = payment.NewStripeGate(cfg.StripeKey, cfg.StripeWebhookSecret, cfg.PaymentSuccessURL, cfg.PaymentCancelURL, logger)
		gate = stripe
	case "sandbox":
		sandbox = payment.NewSandboxGate(logger, cfg.SandboxAutoComplete)
		gate = sandbox
	default:
		logger.Sugar().Fatalf("main: unknown PAYMENT_PROVIDER %q", cfg.PaymentProvider)
	}

	var (
		enqueuer booking.TaskEnqueuer
		redisOpt = asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisQueueDB}
	)
	if useRedis {
		client := asynq.NewClient(redisOpt)
		defer client.Close()
		enqueuer = client
	}

	bookingService, err := booking.NewDefaultBookingService(counselors, st.ledger, gate, notifier, enqueuer, logger, booking.Options{
		Fee:          cfg.BookingFee,
		Currency:     cfg.BookingCurrency,
		Location:     config.Location(),
		ReminderLead: cfg.ReminderLead,
	})
	if err != nil {
		logger.Sugar().Fatalf("main: %v", err)
	}
	if sandbox != nil {
		sandbox.Subscribe(func(ctx context.Context, cb models.PaymentCallback) {
			if _, err := bookingService.OnPaymentCallback(ctx, cb); err != nil {
				logger.Warn("main: sandbox callback not applied", zap.String("bookingId", cb.BookingID), zap.Error(err))
			}
		})
	}

	// Hold sweep: asynq periodic task across replicas, or an in-process ticker.
	if useRedis {
		var sweeper cron.HoldSweeper
		if cfg.SweepMode == "asynq" {
			sweeper = bookingService
		}
		worker, err := cron.NewWorker(redisOpt, sweeper, notifier, cfg.SweepInterval, logger)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to create worker: %v", err)
		}
		worker.Start()
		defer worker.Shutdown()
	}
	if !useRedis || cfg.SweepMode != "asynq" {
		go cron.RunHoldSweeper(ctx, bookingService, cfg.SweepInterval, logger)
	}

	utils.StartHealthMonitor(ctx, checks, 30*time.Second)

	// Create the Gin router.
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Fatal("Invalid TRUSTED_PROXIES", zap.Error(err))
	}
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))
	router.Use(middleware.MetricsMiddleware())

	bookingHandler := handlers.NewBookingHandler(bookingService, cfg.PaymentCallbackSecret, config.Location())
	adminHandler := handlers.NewAdminHandler(bookingService)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		AdminKey: cfg.AdminAPIKey,

		ListCounselors:  bookingHandler.ListCounselorsHandler,
		GetAvailability: bookingHandler.GetAvailabilityHandler,

		CreateBooking:   bookingHandler.CreateBookingHandler,
		GetBooking:      bookingHandler.GetBookingHandler,
		CancelBooking:   bookingHandler.CancelBookingHandler,
		PaymentCallback: bookingHandler.PaymentCallbackHandler,

		AdminListBookings: adminHandler.ListBookingsHandler,
	}
	if stripe != nil {
		handlerBundle.StripeWebhook = handlers.NewWebhookHandler(stripe, bookingService).StripeWebhookHandler
	}

	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("main: server forced to shutdown", zap.Error(err))
	}
	st.close(shutdownCtx)

	logger.Sugar().Info("main: server stopped gracefully")
}
