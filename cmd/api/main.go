package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/voltlot/voltlot-backend/api/controllers"
	"github.com/voltlot/voltlot-backend/api/routes"
	"github.com/voltlot/voltlot-backend/internal/abuse"
	"github.com/voltlot/voltlot-backend/internal/inbox"
	"github.com/voltlot/voltlot-backend/internal/inquiries"
	"github.com/voltlot/voltlot-backend/internal/listings"
	"github.com/voltlot/voltlot-backend/internal/notifications"
	"github.com/voltlot/voltlot-backend/internal/photos"
	"github.com/voltlot/voltlot-backend/internal/users"
	"github.com/voltlot/voltlot-backend/pkg/awsconf"
	"github.com/voltlot/voltlot-backend/pkg/config"
	"github.com/voltlot/voltlot-backend/pkg/db"
	"github.com/voltlot/voltlot-backend/pkg/logger"
	"github.com/voltlot/voltlot-backend/pkg/metrics"
	"github.com/voltlot/voltlot-backend/pkg/migrate"
	"github.com/voltlot/voltlot-backend/pkg/pubsub"
	"github.com/voltlot/voltlot-backend/pkg/redis"
	"github.com/voltlot/voltlot-backend/pkg/storage/s3"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api exited with error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	closers = append(closers, dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	checks := map[string]controllers.Pinger{"postgres": dbClient, "redis": nil}

	var counters abuse.CounterStore
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		closers = append(closers, redisClient.Close)
		counters = redisClient
		checks["redis"] = redisClient
	} else {
		logg.Warn(ctx, "redis not configured, inquiry rate limits are per process")
		counters = abuse.NewMemoryStore()
	}

	awsCfg, err := awsconf.Load(ctx, cfg.AWS)
	if err != nil {
		return err
	}
	photoStore, err := s3.NewClient(ctx, awsCfg, cfg.Photos, logg)
	if err != nil {
		return err
	}

	var taskPublisher photos.TaskPublisher
	if strings.TrimSpace(cfg.GCP.ProjectID) != "" {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return err
		}
		closers = append(closers, psClient.Close)
		publisher, err := photos.NewPubSubPublisher(psClient.PhotoPublisher())
		if err != nil {
			return err
		}
		taskPublisher = publisher
	} else {
		logg.Warn(ctx, "gcp project not configured, photo processing tasks are not published")
	}

	backend, err := notifications.NewBackend(ctx, cfg)
	if err != nil {
		return err
	}
	dispatcher, err := notifications.NewDispatcher(backend, cfg.Email, logg)
	if err != nil {
		return err
	}

	listingRepo := listings.NewRepository(dbClient.DB())
	listingService, err := listings.NewService(listingRepo, photoStore, cfg.App.PublicBaseURL, logg)
	if err != nil {
		return err
	}

	captcha := abuse.NewCaptchaVerifier(cfg.Captcha, &http.Client{Timeout: cfg.Captcha.Timeout}, logg)
	inquiryService, err := inquiries.NewService(inquiries.Deps{
		Repo:     inquiries.NewRepository(dbClient.DB()),
		Listings: listingRepo,
		Tx:       dbClient,
		Limiter:  abuse.NewLimiter(counters, cfg.Inquiry.RateLimitPerMinute),
		Captcha:  captcha,
		Notifier: dispatcher,
		Metrics:  metrics.NewInquiryMetrics(prometheus.DefaultRegisterer),
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	inboxService, err := inbox.NewService(inbox.NewRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		return err
	}

	photoService, err := photos.NewService(photos.NewRepository(dbClient.DB()), dbClient, photoStore, taskPublisher, cfg.Photos, logg)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":           cfg.App.Env,
		"addr":          addr,
		"email_backend": dispatcher.BackendName(),
		"captcha":       captcha.Provider(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			Checks:    checks,
			Gatherer:  prometheus.DefaultGatherer,
			Users:     users.NewRepository(dbClient.DB()),
			Listings:  listingService,
			Inquiries: inquiryService,
			Challenge: captcha,
			Inbox:     inboxService,
			Photos:    photoService,
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
