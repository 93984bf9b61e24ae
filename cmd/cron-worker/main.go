package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/voltlot/voltlot-backend/internal/abuse"
	"github.com/voltlot/voltlot-backend/internal/cron"
	"github.com/voltlot/voltlot-backend/internal/inquiries"
	"github.com/voltlot/voltlot-backend/internal/listings"
	"github.com/voltlot/voltlot-backend/internal/notifications"
	"github.com/voltlot/voltlot-backend/pkg/config"
	"github.com/voltlot/voltlot-backend/pkg/db"
	"github.com/voltlot/voltlot-backend/pkg/logger"
	"github.com/voltlot/voltlot-backend/pkg/metrics"
	"github.com/voltlot/voltlot-backend/pkg/migrate"
	"github.com/voltlot/voltlot-backend/pkg/redis"
)

const lockKeyFormat = "cron-worker:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	inquiryService, err := newInquiryService(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create inquiry service", err)
		os.Exit(1)
	}

	staleJob, err := cron.NewStaleDeliveryJob(cron.StaleDeliveryJobParams{
		Logger:     logg,
		Inquiries:  inquiryService,
		StaleAfter: cfg.Inquiry.StaleAfter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stale delivery job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redis.LockKey(lockKey(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(staleJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"interval":    cfg.Cron.Interval.String(),
		"stale_after": cfg.Inquiry.StaleAfter.String(),
		"jobs":        registry.Names(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// newInquiryService builds the full inquiry service. The sweep only uses
// ExpireStaleDeliveries, but the service validates its complete wiring.
func newInquiryService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (inquiries.Service, error) {
	backend, err := notifications.NewBackend(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	dispatcher, err := notifications.NewDispatcher(backend, cfg.Email, logg)
	if err != nil {
		return nil, err
	}
	return inquiries.NewService(inquiries.Deps{
		Repo:     inquiries.NewRepository(dbClient.DB()),
		Listings: listings.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Limiter:  abuse.NewLimiter(redisClient, cfg.Inquiry.RateLimitPerMinute),
		Captcha:  abuse.NewCaptchaVerifier(cfg.Captcha, &http.Client{Timeout: cfg.Captcha.Timeout}, logg),
		Notifier: dispatcher,
		Logger:   logg,
	})
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
