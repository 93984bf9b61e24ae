package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/voltlot/voltlot-backend/pkg/logger"
)

const defaultStaleAfter = 15 * time.Minute

type staleDeliveryExpirer interface {
	ExpireStaleDeliveries(ctx context.Context, olderThan time.Duration) (int, error)
}

// StaleDeliveryJobParams configure the stale delivery sweep.
type StaleDeliveryJobParams struct {
	Logger     *logger.Logger
	Inquiries  staleDeliveryExpirer
	StaleAfter time.Duration
}

// NewStaleDeliveryJob closes out inquiries whose email outcome was never
// written back. It never re-sends.
func NewStaleDeliveryJob(params StaleDeliveryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Inquiries == nil {
		return nil, fmt.Errorf("inquiries service required")
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &staleDeliveryJob{
		logg:       params.Logger,
		inquiries:  params.Inquiries,
		staleAfter: staleAfter,
	}, nil
}

type staleDeliveryJob struct {
	logg       *logger.Logger
	inquiries  staleDeliveryExpirer
	staleAfter time.Duration
}

func (j *staleDeliveryJob) Name() string { return "stale-delivery-sweep" }

func (j *staleDeliveryJob) Run(ctx context.Context) error {
	expired, err := j.inquiries.ExpireStaleDeliveries(ctx, j.staleAfter)
	if err != nil {
		return fmt.Errorf("expire stale deliveries: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"stale_after":   j.staleAfter.String(),
		"rows_affected": expired,
	}), "stale delivery sweep complete")
	return nil
}
