package photos

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResult struct {
	id  string
	err error
}

func (r fakeResult) Get(context.Context) (string, error) { return r.id, r.err }

type recordingPublisher struct {
	msgs   []*pubsub.Message
	result publishResult
}

func (p *recordingPublisher) Publish(_ context.Context, msg *pubsub.Message) publishResult {
	p.msgs = append(p.msgs, msg)
	return p.result
}

func TestPublishProcessPhoto(t *testing.T) {
	rec := &recordingPublisher{result: fakeResult{id: "srv-1"}}
	pub := newPublisher(rec)
	pub.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	id := uuid.New()

	require.NoError(t, pub.PublishProcessPhoto(context.Background(), id))
	require.Len(t, rec.msgs, 1)

	msg := rec.msgs[0]
	assert.Equal(t, TaskProcessPhoto, msg.Attributes["task"])
	assert.Equal(t, id.String(), msg.Attributes["photo_id"])
	assert.Equal(t, "2026-01-02T03:04:05Z", msg.Attributes["created_at"])

	var payload TaskPayload
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, TaskPayload{Task: TaskProcessPhoto, PhotoID: id}, payload)
}

func TestPublishProcessPhotoErrors(t *testing.T) {
	pub := newPublisher(&recordingPublisher{result: fakeResult{err: errors.New("unavailable")}})
	assert.ErrorContains(t, pub.PublishProcessPhoto(context.Background(), uuid.New()), "unavailable")

	pub = newPublisher(&recordingPublisher{})
	assert.Error(t, pub.PublishProcessPhoto(context.Background(), uuid.New()))
}
