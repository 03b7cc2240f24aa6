package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/movie-booking/internal/clock"
	"github.com/iliyamo/movie-booking/internal/config"
	"github.com/iliyamo/movie-booking/internal/database"
	"github.com/iliyamo/movie-booking/internal/handler"
	"github.com/iliyamo/movie-booking/internal/lock"
	"github.com/iliyamo/movie-booking/internal/middleware"
	"github.com/iliyamo/movie-booking/internal/payment"
	"github.com/iliyamo/movie-booking/internal/queue"
	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/router"
	"github.com/iliyamo/movie-booking/internal/service"
)

func main() {
	// .env is optional; real deployments set the variables directly.
	_ = godotenv.Load()
	cfg := config.Load()
	log := newLogger(cfg)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	if strings.EqualFold(cfg.Env, "prod") || strings.EqualFold(cfg.Env, "production") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

func run(cfg config.Config, log *logrus.Logger) error {
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	store := repository.NewStore(db)

	redisCfg, err := config.LoadRedisConfig()
	if err != nil {
		return err
	}
	rateCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		return err
	}
	cacheCfg, err := config.LoadCacheConfig()
	if err != nil {
		return err
	}

	rdb := config.NewRedisClient(redisCfg)
	var locker lock.Locker
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		locker = lock.NewRedisLocker(rdb, cfg.Booking.ShowLockTTL, lock.WithLogger(log))
	} else {
		log.Warn("redis unavailable: using in-process show locks, rate limiting and caching disabled")
		locker = lock.NewLocalLocker()
	}

	gateway := payment.NewStripeGateway(cfg.Payment.SecretKey, cfg.Payment.WebhookSecret)
	publisher := queue.NewPublisher(cfg.AMQPURL, log)
	defer func() { _ = publisher.Close() }()

	clk := clock.NewSystem()
	bookings := service.NewBookingService(store, locker, gateway, clk,
		service.WithExpiry(cfg.Booking.Expiry),
		service.WithPaymentCheckDelay(cfg.Booking.PaymentCheckDelay),
		service.WithCurrency(cfg.Payment.Currency),
		service.WithSessionTTL(cfg.Payment.SessionTTL),
		service.WithScheduler(publisher),
		service.WithPublisher(publisher),
		service.WithLogger(log),
	)
	catalog := service.NewCatalogService(store, clk, log)

	invalidate := func(ctx context.Context) {
		middleware.InvalidateCache(ctx, rdb, cacheCfg.Prefix, log)
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
	} else {
		e.Use(echomw.CORS())
	}
	e.Use(middleware.RequestLogger(log))

	bookingHandler := handler.NewBookingHandler(bookings, log)
	router.RegisterRoutes(e)
	router.RegisterPublic(e, handler.NewPublicHandler(catalog, log), bookingHandler, middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterBookings(e, bookingHandler, handler.NewFavoriteHandler(catalog, log), cfg.JWTSecret, middleware.NewTokenBucket(rateCfg, rdb, log))
	router.RegisterAdmin(e, handler.NewAdminHandler(catalog, bookings, invalidate, log), cfg.JWTSecret)
	router.RegisterWebhook(e, handler.NewWebhookHandler(gateway, bookings, log))

	paidLog := queue.NewBookingLog("logs")
	paidConsumer := queue.NewBookingPaidConsumer(cfg.AMQPURL, paidLog.Handle, log.WithField("queue", queue.BookingPaidQueue))
	checkConsumer := queue.NewPaymentCheckConsumer(cfg.AMQPURL, queue.PaymentCheckHandler(bookings, log), log.WithField("queue", queue.PaymentCheckQueue))

	g, runCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return paidConsumer.Run(runCtx)
	})
	g.Go(func() error {
		return checkConsumer.Run(runCtx)
	})
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("starting http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-runCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		log.Info("shutting down http server")
		if err := e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
