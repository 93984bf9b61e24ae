package photos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
)

// TaskProcessPhoto names the derivative generation task.
const TaskProcessPhoto = "process_listing_photo"

const defaultPublishTimeout = 5 * time.Second

// TaskPayload is the body of a photo task message.
type TaskPayload struct {
	Task    string    `json:"task"`
	PhotoID uuid.UUID `json:"photo_id"`
}

type publisher interface {
	Publish(context.Context, *pubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

// PubSubPublisher publishes photo tasks to a Pub/Sub topic.
type PubSubPublisher struct {
	pub     publisher
	timeout time.Duration
	now     func() time.Time
}

// NewPubSubPublisher wraps the photo topic publisher.
func NewPubSubPublisher(p *pubsub.Publisher) (*PubSubPublisher, error) {
	if p == nil {
		return nil, errors.New("photo topic publisher is required")
	}
	return newPublisher(&gcpPublisher{Publisher: p}), nil
}

func newPublisher(pub publisher) *PubSubPublisher {
	return &PubSubPublisher{
		pub:     pub,
		timeout: defaultPublishTimeout,
		now:     time.Now,
	}
}

// PublishProcessPhoto enqueues derivative generation for photoID and waits
// for the broker acknowledgement.
func (p *PubSubPublisher) PublishProcessPhoto(ctx context.Context, photoID uuid.UUID) error {
	data, err := json.Marshal(TaskPayload{Task: TaskProcessPhoto, PhotoID: photoID})
	if err != nil {
		return fmt.Errorf("encode photo task: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"task":       TaskProcessPhoto,
			"photo_id":   photoID.String(),
			"created_at": p.now().UTC().Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	result := p.pub.Publish(publishCtx, msg)
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	if _, err := result.Get(publishCtx); err != nil {
		return fmt.Errorf("publish photo task: %w", err)
	}
	return nil
}

type gcpPublisher struct {
	*pubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}
