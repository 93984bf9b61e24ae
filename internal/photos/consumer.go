package photos

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/voltlot/voltlot-backend/pkg/logger"
)

type photoProcessor interface {
	Process(ctx context.Context, photoID uuid.UUID) (Outcome, error)
}

// Consumer drains photo tasks from Pub/Sub.
type Consumer struct {
	processor    photoProcessor
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer constructs a consumer for the photo subscription.
func NewConsumer(processor photoProcessor, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if processor == nil {
		return nil, errors.New("photo processor is required")
	}
	if subscription == nil {
		return nil, errors.New("photo subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{processor: processor, subscription: subscription, logg: logg}, nil
}

// Run processes messages until ctx is canceled or the subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.handle(ctx, msg.ID, msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// handle reports whether the message should be acked.
func (c *Consumer) handle(ctx context.Context, messageID string, data []byte) bool {
	logCtx := c.logg.WithField(ctx, "message_id", messageID)

	task, err := decodeTask(data)
	if err != nil {
		c.logg.Error(logCtx, "photo.task.decode_failed", err)
		return true
	}
	if task.Task != "" && task.Task != TaskProcessPhoto {
		c.logg.Warn(c.logg.WithField(logCtx, "task", task.Task), "photo.task.unknown")
		return true
	}
	logCtx = c.logg.WithField(logCtx, "photo_id", task.PhotoID.String())

	outcome, err := c.processor.Process(ctx, task.PhotoID)
	if err != nil {
		c.logg.Error(logCtx, "photo.task.failed", err)
		return !isTransient(err)
	}
	c.logg.Info(c.logg.WithField(logCtx, "outcome", string(outcome)), "photo.task.done")
	return true
}

func decodeTask(data []byte) (TaskPayload, error) {
	var task TaskPayload
	if len(data) == 0 {
		return task, errors.New("payload empty")
	}
	raw := data
	if decoded, err := base64.StdEncoding.DecodeString(string(data)); err == nil {
		raw = decoded
	}
	if err := json.Unmarshal(raw, &task); err != nil {
		return task, fmt.Errorf("unmarshal photo task: %w", err)
	}
	if task.PhotoID == uuid.Nil {
		return task, errors.New("photo_id missing")
	}
	return task, nil
}

// isTransient reports whether a redelivery could succeed. Storage and
// database failures are retried; undecodable originals never will be.
func isTransient(err error) bool {
	return !errors.Is(err, ErrUndecodable)
}
