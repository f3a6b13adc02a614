// Package storage provides S3-compatible object storage using MinIO. It
// handles server-side uploads, presigned download URLs, deletion by key, and
// storage health checks.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Service defines the interface for storage operations.
type Service interface {
	// Upload stores the object under key, reading at most size bytes from body.
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error

	// PresignDownload creates a time-limited URL granting read access to key.
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error

	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context) error

	// Health checks if the storage backend is accessible.
	Health(ctx context.Context) error
}

// Config holds the settings for connecting to the object store.
type Config struct {
	Endpoint       string
	PublicEndpoint string // endpoint embedded in presigned URLs, if different
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
}

type service struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	logger    *slog.Logger
}

// New creates a storage service for the given configuration. Presigned URLs
// are signed against the public endpoint so they resolve outside the
// deployment network.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Service, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("storage credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	protocol := "http"
	if cfg.UseSSL {
		protocol = "https"
	}

	client, err := newClient(ctx, fmt.Sprintf("%s://%s", protocol, cfg.Endpoint), cfg)
	if err != nil {
		return nil, err
	}

	// Sign URLs against the public endpoint when one is configured.
	presignClient := client
	if cfg.PublicEndpoint != "" && cfg.PublicEndpoint != cfg.Endpoint {
		presignClient, err = newClient(ctx, fmt.Sprintf("%s://%s", protocol, cfg.PublicEndpoint), cfg)
		if err != nil {
			return nil, err
		}
	}

	s := &service{
		client:    client,
		presigner: s3.NewPresignClient(presignClient),
		bucket:    cfg.Bucket,
		logger:    logger,
	}

	if err := s.EnsureBucketExists(ctx); err != nil {
		logger.Warn("failed to ensure bucket exists", "bucket", cfg.Bucket, "error", err)
	}

	return s, nil
}

func newClient(ctx context.Context, endpointURL string, cfg Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing is required for MinIO.
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpointURL)
		o.UsePathStyle = true
	}), nil
}

// EnsureBucketExists creates the bucket if it doesn't already exist.
func (s *service) EnsureBucketExists(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	s.logger.Info("created storage bucket", "bucket", s.bucket)
	return nil
}

// Upload stores the object under key.
func (s *service) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	if key == "" {
		return fmt.Errorf("object key cannot be empty")
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return nil
}

// PresignDownload creates a presigned GET URL for key.
func (s *service) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", fmt.Errorf("object key cannot be empty")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("TTL must be positive")
	}

	request, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign download for %s: %w", key, err)
	}

	return request.URL, nil
}

// Delete removes the object stored under key.
func (s *service) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("object key cannot be empty")
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// Health checks if the storage backend is accessible.
func (s *service) Health(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	return nil
}
