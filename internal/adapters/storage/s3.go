package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"imagio/internal/core/domain"
	"imagio/internal/core/port"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

const (
	maxAttempts  = 3
	retryBackoff = 100 * time.Millisecond
)

// S3Config holds the connection settings for an S3-compatible endpoint.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

var _ port.BlobStore = (*S3)(nil)

// S3 stores blobs as objects in a single bucket of an S3-compatible service.
type S3 struct {
	client *minio.Client
	bucket string
}

func NewS3(cfg S3Config) (*S3, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Region: cfg.Region,
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object storage client: %w", err)
	}

	log.Debug().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.Bucket).Msg("object store ready")
	return &S3{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte

	err := withRetry(ctx, "get "+key, func() error {
		obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return err
		}
		defer obj.Close()

		data, err = io.ReadAll(obj)
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrBlobNotFound, key)
		}
		return nil, fmt.Errorf("fetching object %s: %w", key, err)
	}

	return data, nil
}

func (s *S3) Put(ctx context.Context, key string, data []byte) error {
	err := withRetry(ctx, "put "+key, func() error {
		_, err := s.client.PutObject(ctx, s.bucket, key,
			bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
		return err
	})
	if err != nil {
		return fmt.Errorf("storing object %s: %w", key, err)
	}

	return nil
}

func (s *S3) Delete(ctx context.Context, key string) error {
	err := withRetry(ctx, "delete "+key, func() error {
		return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("removing object %s: %w", key, err)
	}

	return nil
}

// withRetry runs fn up to maxAttempts times with doubling backoff, retrying
// only transient failures. Client errors and missing objects surface
// immediately.
func withRetry(ctx context.Context, op string, fn func() error) error {
	delay := retryBackoff

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !retryable(err) || attempt == maxAttempts {
			return err
		}

		log.Debug().Err(err).Str("op", op).Int("attempt", attempt).Msg("retrying transient storage error")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
}

// retryable classifies an object storage error. Server-side failures and
// network-level errors are worth retrying; anything the client got wrong is
// not.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	resp := minio.ToErrorResponse(err)
	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == 429:
		return true
	case resp.StatusCode >= 400:
		return false
	default:
		// No HTTP status at all: the request never got a response.
		return true
	}
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.StatusCode == 404 || resp.Code == "NoSuchKey"
}
