package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voltlot/voltlot-backend/pkg/logger"
)

const heartbeatInterval = time.Minute

type pinger interface {
	Ping(ctx context.Context) error
}

type runner interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger        *logger.Logger
	DB            pinger
	PubSub        pinger
	Storage       pinger
	PhotoConsumer runner
}

type Service struct {
	logg     *logger.Logger
	deps     []namedPinger
	consumer runner
}

type namedPinger struct {
	name string
	ping func(context.Context) error
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.Storage == nil {
		return nil, errors.New("photo storage is required")
	}
	if params.PhotoConsumer == nil {
		return nil, errors.New("photo consumer is required")
	}
	return &Service{
		logg: params.Logger,
		deps: []namedPinger{
			{name: "database", ping: params.DB.Ping},
			{name: "pubsub", ping: params.PubSub.Ping},
			{name: "s3", ping: params.Storage.Ping},
		},
		consumer: params.PhotoConsumer,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.name), err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

// Run checks dependencies, then consumes photo tasks until ctx is canceled
// or the consumer fails.
func (s *Service) Run(ctx context.Context) error {
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := s.consumer.Run(groupCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logg.Error(groupCtx, "photo consumer stopped unexpectedly", err)
			return err
		}
		return nil
	})
	group.Go(func() error {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-groupCtx.Done():
				return nil
			case <-ticker.C:
				s.logg.Info(groupCtx, "worker heartbeat")
			}
		}
	})

	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
