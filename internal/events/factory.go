package events

import (
	"context"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/config"
	"crm-connect/internal/redis"
)

// NewPublisher builds the publisher selected by EVENTS_BACKEND. redisClient
// may be nil unless the backend is redis.
func NewPublisher(ctx context.Context, cfg *config.Config, redisClient *redis.Client) (Publisher, error) {
	awsCfg := AWSConfig{
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	}

	switch cfg.EventsBackend {
	case "", "none":
		return Noop{}, nil
	case "redis":
		return NewRedisPublisher(redisClient, cfg.EventsTopic)
	case "rabbitmq":
		return NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.EventsTopic)
	case "sns":
		return NewSNSPublisher(ctx, awsCfg, cfg.AWSSNSTopicARN)
	case "sqs":
		return NewSQSPublisher(ctx, awsCfg, cfg.AWSSQSQueueURL)
	case "pubsub":
		return NewPubSubPublisher(ctx, cfg.GCPProjectID, cfg.EventsTopic, cfg.GCPCredentialsFile)
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokerList(), cfg.EventsTopic)
	default:
		return nil, errors.ConfigError("unknown events backend: " + cfg.EventsBackend)
	}
}
