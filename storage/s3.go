// Package storage uploads recipe photos to S3 and presigns them for reads.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"flavornet/config"
	"flavornet/logging"
	"flavornet/taxonomy"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type S3 struct {
	client     *s3.Client
	presign    *s3.PresignClient
	bucket     string
	region     string
	presignTTL time.Duration
}

func NewS3(ctx context.Context, cfg config.StorageConfig) (*S3, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	lg := logging.With("storage")
	lg.Info().Str("bucket", cfg.Bucket).Str("region", awsCfg.Region).Msg("s3 storage enabled")
	return &S3{
		client:     client,
		presign:    s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		region:     awsCfg.Region,
		presignTTL: ttl,
	}, nil
}

// ObjectKey places an upload under recipes/<slug>/ with a unique prefix and
// a slugified file name that keeps its extension.
func ObjectKey(slug, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	base := taxonomy.Slugify(strings.TrimSuffix(path.Base(filename), path.Ext(filename)))
	if base == "" {
		base = "image"
	}
	return fmt.Sprintf("recipes/%s/%s-%s%s", slug, uuid.NewString()[:8], base, ext)
}

// PublicURL is the virtual-hosted style URL of an object.
func PublicURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

// Upload stores body under key and returns the object URL.
func (s *S3) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return PublicURL(s.bucket, s.region, key), nil
}

// Presign returns a time-limited GET URL for key.
func (s *S3) Presign(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.presignTTL
	})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
