package resumes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"

	s3infra "github.com/ivankudzin/jobswipe/internal/infra/s3"
)

var errNoClient = errors.New("s3 client is nil")

// S3Storage keeps resume files in one bucket of an S3 compatible store.
type S3Storage struct {
	client *minio.Client
	bucket string
	region string

	mu    sync.Mutex
	ready bool
}

func NewS3Storage(client *minio.Client, bucket, region string) *S3Storage {
	return &S3Storage{
		client: client,
		bucket: strings.TrimSpace(bucket),
		region: region,
	}
}

// EnsureBucket checks the bucket once per process. A failed check is retried
// on the next upload.
func (s *S3Storage) EnsureBucket(ctx context.Context) error {
	if s.client == nil {
		return errNoClient
	}
	if s.bucket == "" {
		return errors.New("s3 bucket is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := s3infra.EnsureBucket(ctx, s.client, s.bucket, s.region); err != nil {
		return err
	}
	s.ready = true
	return nil
}

func (s *S3Storage) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if s.client == nil {
		return errNoClient
	}
	if key == "" || body == nil || size <= 0 {
		return ErrValidation
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "private, no-store",
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// PresignGet signs a link that downloads as an attachment named after the
// object.
func (s *S3Storage) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.client == nil {
		return "", errNoClient
	}
	if key == "" {
		return "", ErrValidation
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(key)})
	link, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{
		"response-content-disposition": {disposition},
	})
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", key, err)
	}
	return link.String(), nil
}

// Delete is a no-op for an empty key.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if s.client == nil || key == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
