// Package s3store provides a Store implementation backed by Amazon S3
// or an S3-compatible object store (MinIO, Localstack, Cubbit DS3, ...).
//
// S3 latency makes an uncached deployment impractical for read-heavy
// workloads; this store is intended to sit beneath the cache layer,
// which turns most reads into memory hits.
//
// Key design: the store key maps directly to the object key, with an
// optional fixed prefix. Bucket contents remain human-readable and
// inspectable with standard S3 tooling.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/pincache/internal/logger"
	"github.com/marmos91/pincache/pkg/store"
)

// Config configures an S3Store.
type Config struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the bucket name. It must already exist; the store does
	// not create it.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys, e.g.
	// "pincache/" results in keys like "pincache/user:42".
	KeyPrefix string
}

// S3Store implements store.Store on top of an S3 bucket.
//
// Thread Safety:
// The AWS SDK client is safe for concurrent use; the store holds no
// mutable state of its own.
//
// Consistency follows the bucket's semantics: concurrent writes to the
// same key are last-write-wins.
type S3Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// NewS3Store creates a store over the given bucket and verifies access
// with a HeadBucket call.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("s3store: client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3store: bucket is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("s3store: bucket %q not accessible: %w", cfg.Bucket, err)
	}

	logger.Info("s3 store ready: bucket=%q key_prefix=%q", cfg.Bucket, cfg.KeyPrefix)
	return &S3Store{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

func (s *S3Store) objectKey(key string) string {
	return s.keyPrefix + key
}

// Get implements store.Store.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("s3store: get %q: %w", key, err)
	}
	defer out.Body.Close()

	value, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3store: read %q: %w", key, err)
	}
	return value, nil
}

// Set implements store.Store.
func (s *S3Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
		Body:   bytes.NewReader(value),
	})
	if err != nil {
		return fmt.Errorf("s3store: put %q: %w", key, err)
	}
	return nil
}

// Delete implements store.Store.
//
// S3 DeleteObject is idempotent and does not report missing keys, so a
// HeadObject probe provides the ErrNotFound contract.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return store.ErrNotFound
		}
		return fmt.Errorf("s3store: head %q: %w", key, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return fmt.Errorf("s3store: delete %q: %w", key, err)
	}
	return nil
}

// Close implements store.Store. The S3 client holds no local resources.
func (s *S3Store) Close() error {
	return nil
}
