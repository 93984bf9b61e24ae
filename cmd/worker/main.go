package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/voltlot/voltlot-backend/internal/photos"
	"github.com/voltlot/voltlot-backend/pkg/awsconf"
	"github.com/voltlot/voltlot-backend/pkg/config"
	"github.com/voltlot/voltlot-backend/pkg/db"
	"github.com/voltlot/voltlot-backend/pkg/logger"
	"github.com/voltlot/voltlot-backend/pkg/pubsub"
	"github.com/voltlot/voltlot-backend/pkg/storage/s3"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.ConsoleLogs(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(context.Background(), "worker exited with error", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "worker shutting down gracefully")
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

	awsCfg, err := awsconf.Load(ctx, cfg.AWS)
	if err != nil {
		return err
	}
	store, err := s3.NewClient(ctx, awsCfg, cfg.Photos, logg)
	if err != nil {
		return err
	}

	psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	closers = append(closers, psClient.Close)

	processor, err := photos.NewProcessor(photos.NewRepository(dbClient.DB()), store, logg)
	if err != nil {
		return err
	}
	consumer, err := photos.NewConsumer(processor, psClient.PhotoSubscription(), logg)
	if err != nil {
		return err
	}

	svc, err := NewService(ServiceParams{
		Logger:        logg,
		DB:            dbClient,
		PubSub:        psClient,
		Storage:       store,
		PhotoConsumer: consumer,
	})
	if err != nil {
		return err
	}

	logg.Info(logg.WithField(ctx, "subscription", cfg.PubSub.PhotoSubscription), "starting worker")
	return svc.Run(ctx)
}
