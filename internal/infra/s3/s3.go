// Package s3 opens clients for the S3 compatible store that holds resumes.
package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// NewClient only validates settings; the first request is the first network
// round trip.
func NewClient(cfg Config) (*minio.Client, error) {
	switch {
	case cfg.Endpoint == "":
		return nil, errors.New("s3 endpoint is required")
	case cfg.AccessKey == "" || cfg.SecretKey == "":
		return nil, errors.New("s3 credentials are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("open s3 client for %s: %w", cfg.Endpoint, err)
	}
	return client, nil
}

// EnsureBucket creates bucket in region unless it is already there. Losing a
// creation race to another instance counts as success.
func EnsureBucket(ctx context.Context, client *minio.Client, bucket, region string) error {
	if client == nil {
		return errors.New("s3 client is nil")
	}
	found, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("look up bucket %s: %w", bucket, err)
	}
	if found {
		return nil
	}

	err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
	if err == nil {
		return nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
		return nil
	}
	return fmt.Errorf("create bucket %s: %w", bucket, err)
}
