package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// defaultS3PartSize is the part size for multipart transfers.
	defaultS3PartSize = 5 * 1024 * 1024
	defaultRateLimit  = 20
	defaultBurstLimit = 40
)

// S3Config holds the configuration for an S3-backed cache.
type S3Config struct {
	BucketName string
	Region     string
	// Prefix is prepended to every object key.
	Prefix string
}

// s3ClientAPI is the subset of the S3 client the storage needs.
type s3ClientAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
}

// S3Storage implements ObjectStorage on an S3 bucket.
type S3Storage struct {
	client      s3ClientAPI
	bucketName  string
	prefix      string
	rateLimiter *rate.Limiter
}

// NewS3Storage loads the default AWS configuration and returns storage for cfg.
func NewS3Storage(ctx context.Context, cfg S3Config) (*S3Storage, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot load AWS config: %w", err)
	}
	if cfg.Region != "" {
		awsCfg.Region = cfg.Region
	}

	return newS3Storage(s3.NewFromConfig(awsCfg), cfg), nil
}

func newS3Storage(client s3ClientAPI, cfg S3Config) *S3Storage {
	return &S3Storage{
		client:      client,
		bucketName:  cfg.BucketName,
		prefix:      strings.Trim(cfg.Prefix, "/"),
		rateLimiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurstLimit),
	}
}

func (s *S3Storage) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	// HEAD responses carry no body, so some 404s arrive without a typed error.
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "404")
}

func (s *S3Storage) HasObject(ctx context.Context, key string) (bool, error) {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return false, err
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3Storage) GetObject(ctx context.Context, key string, dst io.WriterAt) (int64, error) {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return 0, err
	}
	downloader := manager.NewDownloader(s.client, func(d *manager.Downloader) {
		d.PartSize = defaultS3PartSize
	})

	n, err := downloader.Download(ctx, dst, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("object not found: %w", err)
		}
		return 0, fmt.Errorf("failed to download object: %w", err)
	}
	return n, nil
}

func (s *S3Storage) UploadObject(ctx context.Context, key string, src io.Reader) error {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return err
	}
	uploader := manager.NewUploader(s.client, func(u *manager.Uploader) {
		u.PartSize = defaultS3PartSize
	})

	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(s.objectKey(key)),
		Body:   src,
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			log.WithError(err).WithFields(log.Fields{
				"key":       key,
				"errorCode": apiErr.ErrorCode(),
			}).Debug("S3 API error while uploading cache entry")
			return fmt.Errorf("S3 API error %s: %w", apiErr.ErrorCode(), err)
		}
		return fmt.Errorf("failed to upload object: %w", err)
	}
	return nil
}

var _ ObjectStorage = (*S3Storage)(nil)
