package notifications

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/voltlot/voltlot-backend/pkg/awsconf"
	"github.com/voltlot/voltlot-backend/pkg/config"
)

// NewBackend selects the email backend once, at startup.
func NewBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if !cfg.Email.UseSES {
		return NewSMTPBackend(cfg.SMTP), nil
	}
	awsCfg, err := awsconf.Load(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}
	return NewSESBackend(sesv2.NewFromConfig(awsCfg), cfg.Email)
}
