package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

const DefaultRegion = "us-east-1"

// PutObjectAPI is the subset of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Uploader interface {
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error)
}

type S3Uploader struct {
	client PutObjectAPI
}

func NewS3Uploader(client PutObjectAPI) *S3Uploader {
	return &S3Uploader{client: client}
}

// LoadConfig resolves AWS credentials from the shared config, optionally for a named profile.
func LoadConfig(ctx context.Context, profile string) (*awssdk.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithDefaultRegion(DefaultRegion)}
	if profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	return &awsCfg, nil
}

func NewS3UploaderFromConfig(cfg awssdk.Config) *S3Uploader {
	return NewS3Uploader(s3.NewFromConfig(cfg))
}

// Upload stores body under bucket/key and returns the s3:// URI of the object.
func (u *S3Uploader) Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error) {
	if bucket == "" {
		return "", fmt.Errorf("bucket is required")
	}
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}

	input := &s3.PutObjectInput{
		Bucket: awssdk.String(bucket),
		Key:    awssdk.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = awssdk.String(contentType)
	}

	if _, err := u.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload s3://%s/%s: %w", bucket, key, err)
	}

	uri := fmt.Sprintf("s3://%s/%s", bucket, key)
	zerolog.Ctx(ctx).Info().Str("uri", uri).Msg("export uploaded")
	return uri, nil
}
