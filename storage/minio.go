package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"HipHopLab/config"
	"HipHopLab/logger"
)

// AudioKey is the object key of a track's audio payload.
func AudioKey(trackID string) string { return "audio/" + trackID }

// CoverKey is the object key of a track's cover image.
func CoverKey(trackID string) string { return "covers/" + trackID }

// MinioStore is a BlobStore backed by a MinIO (or any S3 compatible) bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	region string
}

// BucketStats summarizes the objects under a prefix.
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// NewMinioStore connects to MinIO and makes sure the bucket exists. The
// bucket check is retried with exponential backoff.
func NewMinioStore(ctx context.Context, cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	s := &MinioStore{client: client, bucket: cfg.MinioBucket, region: cfg.MinioRegion}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	err = backoff.RetryNotify(func() error {
		return s.ensureBucket(ctx)
	}, policy, func(err error, wait time.Duration) {
		logger.Warn("minio not ready, retrying", logger.ErrorField(err), logger.Duration("wait", wait))
	})
	if err != nil {
		return nil, err
	}

	logger.Info("minio store ready",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return s, nil
}

func (s *MinioStore) ensureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	logger.Info("created bucket", logger.String("bucket", s.bucket))
	return nil
}

func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (s *MinioStore) Delete(ctx context.Context, keys ...string) error {
	objects := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- minio.ObjectInfo{Key: k}
	}
	close(objects)

	var errs []error
	for e := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("failed to delete %s: %w", e.ObjectName, e.Err))
	}
	return errors.Join(errs...)
}

// Stats walks the objects under prefix.
func (s *MinioStore) Stats(ctx context.Context, prefix string) (*BucketStats, error) {
	stats := &BucketStats{}
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
	}
	return stats, nil
}

// Check writes, reads back and removes a probe object.
func (s *MinioStore) Check(ctx context.Context) error {
	const key = "healthcheck/probe.txt"
	content := "probe " + time.Now().Format(time.RFC3339)
	if err := s.Put(ctx, key, []byte(content), "text/plain"); err != nil {
		return err
	}
	got, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if !strings.EqualFold(string(got), content) {
		return fmt.Errorf("probe mismatch: got %q", got)
	}
	return s.Delete(ctx, key)
}
