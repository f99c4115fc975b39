// Package archive persists failed queue messages to S3 for operator
// replay. Messages are acknowledged before processing, so the archive
// holds the only remaining copy after a pipeline failure.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/schedflow/schedflow/pkg/errors"
	"github.com/schedflow/schedflow/pkg/interfaces"
)

// Config holds S3 archive configuration.
type Config struct {
	// Bucket is the archive bucket name.
	Bucket string

	// Region is the AWS region.
	Region string

	// Prefix is prepended to all object keys.
	Prefix string

	// Endpoint overrides the default S3 endpoint (for MinIO, LocalStack).
	Endpoint string

	// UsePathStyle forces path-style addressing.
	UsePathStyle bool

	// Credentials (optional - uses default chain if not provided)
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// S3Archive implements interfaces.FailureArchive on S3.
type S3Archive struct {
	cfg    Config
	client *s3.Client
}

var _ interfaces.FailureArchive = (*S3Archive)(nil)

// New creates an S3-backed failure archive.
func New(ctx context.Context, cfg Config) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
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

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Archive{cfg: cfg, client: s3.NewFromConfig(awsCfg, s3Opts...)}, nil
}

// Archive writes one failed-message record as a JSON object. Keys are
// date-partitioned for lifecycle rules and operator listing.
func (a *S3Archive) Archive(ctx context.Context, rec interfaces.FailedMessage) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(errors.CodeArchiveWrite, "marshal record", err)
	}

	key := fmt.Sprintf("%s%s/%s-%s.json",
		a.cfg.Prefix,
		rec.Timestamp.UTC().Format("2006/01/02"),
		rec.Timestamp.UTC().Format("150405"),
		uuid.NewString())

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return errors.Wrap(errors.CodeArchiveWrite, "put object", err).
			WithContext("bucket", a.cfg.Bucket).
			WithContext("key", key)
	}
	return nil
}
