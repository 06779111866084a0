// Package storage implements the object-storage collaborator on S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clipforge/highlight-pipeline/internal/metrics"
	"github.com/clipforge/highlight-pipeline/pkg/models"
)

var tracer = otel.Tracer("highlight-storage")

// ObjectStore publishes local files to an S3 bucket and hands out signed GET
// URLs the inference service can fetch.
type ObjectStore struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	signedURLTTL  time.Duration
	log           *slog.Logger
}

// NewObjectStore creates an ObjectStore against the given bucket.
func NewObjectStore(ctx context.Context, region, bucket string, signedURLTTL time.Duration, log *slog.Logger) (*ObjectStore, error) {
	if bucket == "" {
		return nil, errors.New("object store bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	otelaws.AppendMiddlewares(&awsCfg.APIOptions)

	client := s3.NewFromConfig(awsCfg)

	return &ObjectStore{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		bucket:        bucket,
		signedURLTTL:  signedURLTTL,
		log:           log,
	}, nil
}

// Client exposes the underlying S3 client for health checks.
func (o *ObjectStore) Client() *s3.Client {
	return o.client
}

// Publish uploads the local file under a fresh random key and returns a
// signed URL for it. Each call generates its own key, so re-publishing the
// same file is harmless.
func (o *ObjectStore) Publish(ctx context.Context, localPath string) (string, error) {
	ctx, span := tracer.Start(ctx, "publish-file")
	defer span.End()

	key := fmt.Sprintf("videos/%s%s", strings.ReplaceAll(uuid.NewString(), "-", ""), filepath.Ext(localPath))

	if err := o.putFile(ctx, key, localPath); err != nil {
		return "", err
	}

	span.SetAttributes(attribute.String("object.key", key))

	return o.SignedURL(ctx, key, o.signedURLTTL)
}

// PublishThumbnail uploads a clip thumbnail under a deterministic key derived
// from the video and clip ids.
func (o *ObjectStore) PublishThumbnail(ctx context.Context, localPath, videoID, clipID string) (string, error) {
	ctx, span := tracer.Start(ctx, "publish-thumbnail")
	defer span.End()

	key := fmt.Sprintf("thumbnails/%s/%s%s", videoID, clipID, filepath.Ext(localPath))

	if err := o.putFile(ctx, key, localPath); err != nil {
		return "", err
	}

	return o.SignedURL(ctx, key, o.signedURLTTL)
}

// SignedURL returns a presigned GET URL for the given key.
func (o *ObjectStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := o.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to presign %s: %v", models.ErrPublishFailed, key, err)
	}

	return req.URL, nil
}

// Exists reports whether the given key is present in the bucket.
func (o *ObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := o.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object %s: %w", key, err)
	}
	return true, nil
}

// Delete removes the given key from the bucket.
func (o *ObjectStore) Delete(ctx context.Context, key string) error {
	_, err := o.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}

	o.log.Info("Deleted object", "key", key)
	return nil
}

func (o *ObjectStore) putFile(ctx context.Context, key, localPath string) error {
	start := time.Now()

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("%w: failed to open %s: %v", models.ErrPublishFailed, localPath, err)
	}
	defer file.Close()

	_, err = o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentTypeFor(localPath)),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to upload %s: %v", models.ErrPublishFailed, key, err)
	}

	metrics.PublishDuration.Observe(time.Since(start).Seconds())

	o.log.Info("Published file", "path", localPath, "key", key)
	return nil
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	case ".avi":
		return "video/x-msvideo"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
