package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/ruteri/driving-tests-backend/interfaces"
)

// S3KeySource reads key material from an object in Amazon S3 or a compatible service.
type S3KeySource struct {
	client      s3iface.S3API
	bucketName  string
	objectKey   string
	log         *slog.Logger
	locationURI string
}

// NewS3KeySource creates a key source for s3://bucketName/objectKey.
// If accessKey and secretKey are empty the default AWS credential chain is used.
func NewS3KeySource(bucketName, objectKey, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3KeySource, error) {
	if bucketName == "" || objectKey == "" {
		return nil, fmt.Errorf("%w: S3 key location needs bucket and object key", interfaces.ErrInvalidLocationURI)
	}

	// Format the URI for tracking
	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucketName, objectKey, region)
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return newS3KeySourceWithClient(s3.New(sess), bucketName, objectKey, uri, log), nil
}

func newS3KeySourceWithClient(client s3iface.S3API, bucketName, objectKey, uri string, log *slog.Logger) *S3KeySource {
	return &S3KeySource{
		client:      client,
		bucketName:  bucketName,
		objectKey:   strings.TrimPrefix(objectKey, "/"),
		log:         log,
		locationURI: uri,
	}
}

// Fetch retrieves the key object. Returns ErrKeyNotFound if the object doesn't exist.
func (s *S3KeySource) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()

	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.objectKey),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == s3.ErrCodeNoSuchBucket) {
			s.log.Debug("Key object not found in S3",
				slog.String("bucket", s.bucketName),
				slog.String("key", s.objectKey),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrKeyNotFound
		}

		s.log.Error("Failed to get object from S3",
			slog.String("bucket", s.bucketName),
			slog.String("key", s.objectKey),
			"err", err,
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("%w: %v", interfaces.ErrKeySourceUnavailable, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	s.log.Debug("Fetched key material from S3",
		slog.String("bucket", s.bucketName),
		slog.String("key", s.objectKey),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Available checks if the bucket is accessible.
func (s *S3KeySource) Available(ctx context.Context) bool {
	_, err := s.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucketName),
	})
	if err != nil {
		s.log.Warn("S3 key source unavailable",
			slog.String("bucket", s.bucketName),
			"err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this key source.
func (s *S3KeySource) Name() string {
	return fmt.Sprintf("s3-%s", s.bucketName)
}

// LocationURI returns the URI that identifies this key source.
func (s *S3KeySource) LocationURI() string {
	return s.locationURI
}
