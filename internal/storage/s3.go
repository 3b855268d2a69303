package storage

import (
	"context"
	"alcyxob/gym-scheduler/internal/config"
	"errors"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config" // Alias config to avoid clash
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3ImageStore implements ImageStore using an S3-compatible backend.
type s3ImageStore struct {
	presignClient *s3.PresignClient
	bucketName    string
}

// NewS3ImageStore creates the presigning client for the configured bucket.
// No network call is made: presigning is purely local.
func NewS3ImageStore(ctx context.Context, cfg config.S3Config) (ImageStore, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("s3 bucket name is required")
	}

	awsSDKConfig, err := awsCfg.LoadDefaultConfig(ctx,
		awsCfg.WithRegion(cfg.Region),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, err
	}

	// Path-style addressing for S3-compatible services (MinIO, Spaces).
	s3Client := s3.NewFromConfig(awsSDKConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	slog.InfoContext(ctx, "S3 image store initialized", "endpoint", cfg.Endpoint, "bucket", cfg.BucketName)

	return &s3ImageStore{
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    cfg.BucketName,
	}, nil
}

// PresignedImageURL creates a temporary URL for downloading (GET).
func (s *s3ImageStore) PresignedImageURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	if objectKey == "" {
		return "", nil
	}
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}

	presignParams := &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}

	req, err := s.presignClient.PresignGetObject(ctx, presignParams, s3.WithPresignExpires(expires))
	if err != nil {
		slog.ErrorContext(ctx, "failed to presign image URL", "key", objectKey, "error", err)
		return "", err
	}
	return req.URL, nil
}
