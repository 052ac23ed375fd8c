package events

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"crm-connect/internal/common/errors"
)

// AWSConfig selects the region and, optionally, static credentials. Without
// credentials the SDK's default chain applies.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

func loadAWSConfig(ctx context.Context, cfg AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, errors.ConnectionError("failed to load AWS config", err)
	}
	return awsCfg, nil
}

// SNSAPI is the part of the SNS client used here
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes to an SNS topic
type SNSPublisher struct {
	client   SNSAPI
	topicARN string
}

func NewSNSPublisher(ctx context.Context, cfg AWSConfig, topicARN string) (*SNSPublisher, error) {
	if topicARN == "" {
		return nil, errors.ConfigError("SNS topic ARN is required")
	}
	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &SNSPublisher{client: sns.NewFromConfig(awsCfg), topicARN: topicARN}, nil
}

func (p *SNSPublisher) Name() string { return "sns" }

func (p *SNSPublisher) Publish(ctx context.Context, event Event) error {
	body, err := event.Encode()
	if err != nil {
		return errors.InternalError("failed to encode event", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"EventType": {DataType: aws.String("String"), StringValue: aws.String(string(event.Type))},
			"Provider":  {DataType: aws.String("String"), StringValue: aws.String(event.Provider)},
		},
	})
	if err != nil {
		return errors.ConnectionError("failed to publish to SNS", err)
	}
	return nil
}

func (p *SNSPublisher) Close() error { return nil }

// SQSAPI is the part of the SQS client used here
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends to an SQS queue
type SQSPublisher struct {
	client   SQSAPI
	queueURL string
}

func NewSQSPublisher(ctx context.Context, cfg AWSConfig, queueURL string) (*SQSPublisher, error) {
	if queueURL == "" {
		return nil, errors.ConfigError("SQS queue URL is required")
	}
	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &SQSPublisher{client: sqs.NewFromConfig(awsCfg), queueURL: queueURL}, nil
}

func (p *SQSPublisher) Name() string { return "sqs" }

func (p *SQSPublisher) Publish(ctx context.Context, event Event) error {
	body, err := event.Encode()
	if err != nil {
		return errors.InternalError("failed to encode event", err)
	}
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"EventType": {DataType: aws.String("String"), StringValue: aws.String(string(event.Type))},
			"Provider":  {DataType: aws.String("String"), StringValue: aws.String(event.Provider)},
		},
	})
	if err != nil {
		return errors.ConnectionError("failed to send to SQS", err)
	}
	return nil
}

func (p *SQSPublisher) Close() error { return nil }
