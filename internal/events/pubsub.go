package events

import (
	"context"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"crm-connect/internal/common/errors"
)

// PubSubPublisher publishes to a Google Cloud Pub/Sub topic
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubPublisher uses the credentials file when given, otherwise
// Application Default Credentials
func NewPubSubPublisher(ctx context.Context, projectID, topicID, credentialsFile string) (*PubSubPublisher, error) {
	if projectID == "" || topicID == "" {
		return nil, errors.ConfigError("Pub/Sub project and topic are required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, errors.ConnectionError("failed to create Pub/Sub client", err)
	}
	return &PubSubPublisher{client: client, topic: client.Topic(topicID)}, nil
}

func (p *PubSubPublisher) Name() string { return "pubsub" }

func (p *PubSubPublisher) Publish(ctx context.Context, event Event) error {
	body, err := event.Encode()
	if err != nil {
		return errors.InternalError("failed to encode event", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"event_type": string(event.Type),
			"provider":   event.Provider,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return errors.ConnectionError("failed to publish to Pub/Sub", err)
	}
	return nil
}

func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
