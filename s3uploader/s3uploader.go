package s3uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config describes the bucket shop photos are stored in.
type Config struct {
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	// PublicBaseURL, when set, is used to build object URLs instead of the
	// virtual-hosted bucket URL (for a CDN in front of the bucket).
	PublicBaseURL string
	// Endpoint overrides the S3 endpoint (S3 compatible stores, tests).
	Endpoint string
}

type Uploader struct {
	client  *s3.Client
	bucket  string
	region  string
	baseURL string
}

func New(ctx context.Context, cfg Config) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3uploader: bucket is required")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}

	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3uploader: failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Uploader{
		client:  client,
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Upload stores body under key and returns the object URL.
func (u *Uploader) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   body,
	}

	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := u.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("s3uploader: put %s: %w", key, err)
	}

	return u.ObjectURL(key), nil
}

func (u *Uploader) ObjectURL(key string) string {
	if u.baseURL != "" {
		return u.baseURL + "/" + key
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
}
