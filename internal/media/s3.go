// Package media stores uploaded images (avatars, course thumbnails) in an
// S3-compatible bucket.
package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	appconfig "github.com/iliyamo/course-marketplace/internal/config"
)

// Asset identifies a stored object.  PublicID doubles as the object key so
// Destroy needs no lookup.
type Asset struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// Uploader is the capability handlers depend on; tests substitute a fake.
type Uploader interface {
	Upload(ctx context.Context, content string, folder string) (Asset, error)
	Destroy(ctx context.Context, publicID string) error
}

// S3Store implements Uploader against an S3 bucket.
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

// NewS3Store builds the S3 client from app config.  A custom endpoint with
// path-style addressing supports MinIO and similar in dev environments.
func NewS3Store(cfg appconfig.Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	baseURL := cfg.S3Endpoint
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
	} else {
		baseURL = strings.TrimRight(baseURL, "/") + "/" + cfg.S3Bucket
	}
	return &S3Store{client: client, bucket: cfg.S3Bucket, baseURL: baseURL}, nil
}

// Upload writes the content under a fresh key in the given folder and
// returns the stored asset.  Content arrives as the raw string the client
// posted (typically a data URL), matching how the upload endpoints bind it.
func (s *S3Store) Upload(ctx context.Context, content string, folder string) (Asset, error) {
	key := folder + "/" + uuid.NewString()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   strings.NewReader(content),
	})
	if err != nil {
		return Asset{}, err
	}
	return Asset{PublicID: key, URL: s.baseURL + "/" + key}, nil
}

// Destroy removes a stored object.  Missing objects delete cleanly.
func (s *S3Store) Destroy(ctx context.Context, publicID string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(publicID),
	})
	return err
}
