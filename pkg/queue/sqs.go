// Package queue provides the SQS intake adapter.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/schedflow/schedflow/pkg/errors"
	"github.com/schedflow/schedflow/pkg/interfaces"
)

// Config holds SQS client configuration.
type Config struct {
	// URL is the queue URL.
	URL string

	// Region is the AWS region (e.g., "us-east-1").
	Region string

	// Endpoint overrides the default SQS endpoint (for LocalStack).
	Endpoint string

	// WaitTime is the long-poll duration per receive call.
	WaitTime time.Duration

	// VisibilityTimeout hides received messages from other consumers.
	VisibilityTimeout time.Duration

	// Credentials (optional - uses default chain if not provided)
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, region string) Config {
	return Config{
		URL:               url,
		Region:            region,
		WaitTime:          20 * time.Second,
		VisibilityTimeout: 2 * time.Minute,
	}
}

// SQSQueue implements interfaces.Queue on AWS SQS.
type SQSQueue struct {
	cfg    Config
	client *sqs.Client
}

var _ interfaces.Queue = (*SQSQueue)(nil)

// New creates an SQS-backed queue.
func New(ctx context.Context, cfg Config) (*SQSQueue, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("queue url is required")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var sqsOpts []func(*sqs.Options)
	if cfg.Endpoint != "" {
		sqsOpts = append(sqsOpts, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	return &SQSQueue{cfg: cfg, client: sqs.NewFromConfig(awsCfg, sqsOpts...)}, nil
}

// Receive long-polls for up to max messages.
func (q *SQSQueue) Receive(ctx context.Context, max int) ([]interfaces.Message, error) {
	if max < 1 {
		max = 1
	}
	if max > 10 {
		max = 10 // SQS batch cap
	}

	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.cfg.URL),
		MaxNumberOfMessages: int32(max),
		WaitTimeSeconds:     int32(q.cfg.WaitTime / time.Second),
		VisibilityTimeout:   int32(q.cfg.VisibilityTimeout / time.Second),
	})
	if err != nil {
		return nil, errors.Wrap(errors.CodeQueueReceive, "receive messages", err)
	}

	msgs := make([]interfaces.Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, interfaces.Message{
			ID:            aws.ToString(m.MessageId),
			Body:          []byte(aws.ToString(m.Body)),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		})
	}
	return msgs, nil
}

// Ack deletes a message from the queue.
func (q *SQSQueue) Ack(ctx context.Context, receiptHandle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.cfg.URL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return errors.Wrap(errors.CodeQueueAck, "delete message", err)
	}
	return nil
}
