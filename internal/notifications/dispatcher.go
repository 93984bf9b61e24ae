package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/voltlot/voltlot-backend/pkg/config"
	"github.com/voltlot/voltlot-backend/pkg/logger"
)

const (
	msgNoRecipient     = "Listing seller does not have an email address configured."
	defaultSendTimeout = 5 * time.Second
)

// Info is the delivery metadata recorded on the inquiry and its event.
type Info map[string]any

// Reference returns the provider message id, else the backend name.
func (i Info) Reference() string {
	if id, ok := i["message_id"].(string); ok && id != "" {
		return id
	}
	if backend, ok := i["backend"].(string); ok {
		return backend
	}
	return ""
}

// Error returns the recorded failure text, if any.
func (i Info) Error() string {
	if msg, ok := i["error"].(string); ok {
		return msg
	}
	return ""
}

// Result is the outcome of one dispatch attempt.
type Result struct {
	Success bool
	Info    Info
}

// Backend sends a rendered message. It returns identifying metadata even
// when the send fails.
type Backend interface {
	Name() string
	Send(ctx context.Context, msg Message) (Info, error)
}

// Dispatcher makes exactly one delivery attempt per call. It never retries.
type Dispatcher struct {
	backend Backend
	from    string
	timeout time.Duration
	logg    *logger.Logger
}

// NewDispatcher wires a dispatcher around an already selected backend.
func NewDispatcher(backend Backend, cfg config.EmailConfig, logg *logger.Logger) (*Dispatcher, error) {
	if backend == nil {
		return nil, fmt.Errorf("email backend required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &Dispatcher{
		backend: backend,
		from:    cfg.DefaultFrom,
		timeout: timeout,
		logg:    logg,
	}, nil
}

// BackendName reports the backend chosen at construction.
func (d *Dispatcher) BackendName() string {
	return d.backend.Name()
}

// Notify emails the listing's seller about a new inquiry. Failures never
// escape as errors; they are folded into the returned Result.
func (d *Dispatcher) Notify(ctx context.Context, delivery Delivery) Result {
	logCtx := d.logg.WithFields(ctx, map[string]any{
		"inquiry_id": delivery.InquiryID.String(),
		"backend":    d.backend.Name(),
	})

	if strings.TrimSpace(delivery.SellerEmail) == "" {
		d.logg.Warn(logCtx, "inquiry.notify.no_recipient")
		return Result{Info: Info{"error": msgNoRecipient}}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	info, err := d.backend.Send(sendCtx, BuildMessage(delivery, d.from))
	if info == nil {
		info = Info{}
	}
	if err != nil {
		info["error"] = err.Error()
		d.logg.Error(logCtx, "inquiry.notify.failed", err)
		return Result{Info: info}
	}

	d.logg.Info(logCtx, "inquiry.notify.sent")
	return Result{Success: true, Info: info}
}
