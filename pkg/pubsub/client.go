// Package pubsub connects to Google Cloud Pub/Sub for the photo task queue.
package pubsub

import (
	"context"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/voltlot/voltlot-backend/pkg/config"
	"github.com/voltlot/voltlot-backend/pkg/logger"
)

type Client struct {
	client       *pubsub.Client
	photoTopic   string
	photoSubName string
}

// NewClient dials Pub/Sub and fails unless the photo topic and subscription
// already exist. Inline credentials JSON wins over application default
// credentials.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, fmt.Errorf("gcp project id is required")
	}
	topic := qualify(project, "topics", cfg.PhotoTopic)
	sub := qualify(project, "subscriptions", cfg.PhotoSubscription)
	if topic == "" || sub == "" {
		return nil, fmt.Errorf("photo topic and subscription are required")
	}

	var opts []option.ClientOption
	if creds := strings.TrimSpace(gcp.CredentialsJSON); creds != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}
	ps, err := pubsub.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}

	c := &Client{client: ps, photoTopic: topic, photoSubName: sub}
	if err := c.Ping(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"topic": topic, "subscription": sub}), "pubsub client initialized")
	}
	return c, nil
}

// PhotoSubscription returns the subscriber for photo processing tasks.
func (c *Client) PhotoSubscription() *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Subscriber(c.photoSubName)
}

// PhotoPublisher returns the publisher for photo processing tasks.
func (c *Client) PhotoPublisher() *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Publisher(c.photoTopic)
}

// Ping confirms the photo topic and subscription are reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("pubsub client not initialized")
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.photoTopic})
	if err := describe("topic", c.photoTopic, err); err != nil {
		return err
	}
	_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: c.photoSubName})
	return describe("subscription", c.photoSubName, err)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func describe(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind, name)
	default:
		return fmt.Errorf("lookup %s %q: %w", kind, name, err)
	}
}

// qualify expands a bare id to projects/<project>/<collection>/<id>. Names
// already qualified for the same collection pass through unchanged.
func qualify(project, collection, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") {
		if strings.Contains(name, "/"+collection+"/") {
			return name
		}
		return ""
	}
	if project == "" {
		return ""
	}
	return "projects/" + project + "/" + collection + "/" + name
}
