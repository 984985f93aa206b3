// Package storage writes asset bytes to object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/config"
	appErrors "github.com/unclebandit/clippilot-backend/internal/errors"
)

// ObjectStore stores an object under key and returns its public URL.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, size int64, body io.Reader) (string, error)
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// Sanitize replaces every character outside [a-zA-Z0-9.-] with an underscore.
func Sanitize(filename string) string {
	return unsafeChars.ReplaceAllString(filename, "_")
}

// ObjectKey builds "{teamID}/{unixmillis}-{sanitized filename}".
func ObjectKey(teamID string, now time.Time, filename string) string {
	return fmt.Sprintf("%s/%d-%s", teamID, now.UnixMilli(), Sanitize(filename))
}

// PublicURL is the virtual-hosted style URL of an object.
func PublicURL(bucket, region, key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

// putObjectAPI is the subset of *s3.Client used by S3Store.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Store struct {
	client putObjectAPI
	bucket string
	region string
	logger *zap.Logger
}

// NewS3Store loads AWS credentials from the default chain.
func NewS3Store(ctx context.Context, conf config.StorageConfig, logger *zap.Logger) (*S3Store, error) {
	awsConf, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(conf.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3Store(s3.NewFromConfig(awsConf), conf, logger), nil
}

func newS3Store(client putObjectAPI, conf config.StorageConfig, logger *zap.Logger) *S3Store {
	return &S3Store{client: client, bucket: conf.Bucket, region: conf.Region, logger: logger}
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, size int64, body io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		s.logger.Error("s3 put failed", zap.String("key", key), zap.Error(err))
		return "", appErrors.NewUpload(key, err)
	}
	return PublicURL(s.bucket, s.region, key), nil
}

var _ ObjectStore = (*S3Store)(nil)
