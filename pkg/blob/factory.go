package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// StoreType represents the type of blob storage backend.
type StoreType string

const (
	StoreTypeFS  StoreType = "fs"
	StoreTypeS3  StoreType = "s3"
	StoreTypeGCS StoreType = "gcs"
)

// NewStoreFromEnv creates a blob store based on environment variables.
//
// Environment variables:
//   - BLOB_STORAGE_TYPE: "fs" (default), "s3", or "gcs"
//   - DATA_DIR: Base directory for the filesystem store (default: "data")
//
// For S3:
//   - AWS_REGION or BLOB_S3_REGION
//   - BLOB_S3_BUCKET (required)
//   - BLOB_S3_ENDPOINT (optional, for MinIO/LocalStack)
//   - BLOB_S3_PREFIX (optional)
//
// For GCS (requires -tags gcp):
//   - BLOB_GCS_BUCKET (required)
//   - BLOB_GCS_PREFIX (optional)
func NewStoreFromEnv(ctx context.Context) (Store, error) {
	storeType := StoreType(os.Getenv("BLOB_STORAGE_TYPE"))
	if storeType == "" {
		storeType = StoreTypeFS
	}

	switch storeType {
	case StoreTypeFS:
		return newFileStoreFromEnv()
	case StoreTypeS3:
		return newS3StoreFromEnv(ctx)
	case StoreTypeGCS:
		return newGCSStoreFromEnv(ctx)
	default:
		return nil, fmt.Errorf("unsupported blob storage type: %s", storeType)
	}
}

func newFileStoreFromEnv() (Store, error) {
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	return NewFileStore(filepath.Join(dataDir, "uploads"))
}

func newS3StoreFromEnv(ctx context.Context) (Store, error) {
	bucket := os.Getenv("BLOB_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("BLOB_S3_BUCKET is required for S3 storage")
	}

	region := os.Getenv("BLOB_S3_REGION")
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}

	return NewS3Store(ctx, S3StoreConfig{
		Bucket:   bucket,
		Region:   region,
		Endpoint: os.Getenv("BLOB_S3_ENDPOINT"),
		Prefix:   os.Getenv("BLOB_S3_PREFIX"),
	})
}
