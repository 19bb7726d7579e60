package options

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/wuxler/otaserve/pkg/blob"
	"github.com/wuxler/otaserve/pkg/errdefs"
)

const (
	// StorageFlagCategory is the category of the object storage flags.
	StorageFlagCategory = "[Storage]"

	// StorageBackendFS stores blobs on the local filesystem.
	StorageBackendFS = "fs"
	// StorageBackendS3 stores blobs in an S3-compatible bucket.
	StorageBackendS3 = "s3"
	// StorageBackendMemory keeps blobs in process memory, for development.
	StorageBackendMemory = "memory"

	// DefaultStoragePath is where the fs backend puts blobs.
	DefaultStoragePath = "data"
)

// NewStorageOptions returns a new *StorageOptions with default values.
func NewStorageOptions() *StorageOptions {
	return &StorageOptions{
		Backend: StorageBackendFS,
		Path:    DefaultStoragePath,
	}
}

// StorageOptions defines the options for the object store backend.
type StorageOptions struct {
	Backend string
	Path    string

	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// Flags returns the []cli.Flag related to current options.
func (o *StorageOptions) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "storage-backend",
			Usage:       `object store backend, oneof ["fs", "s3", "memory"]`,
			Sources:     cli.EnvVars("OTA_STORAGE_BACKEND"),
			Value:       o.Backend,
			Destination: &o.Backend,
			Category:    StorageFlagCategory,
		},
		&cli.StringFlag{
			Name:        "storage-path",
			Usage:       "root directory of the fs backend",
			Sources:     cli.EnvVars("OTA_STORAGE_PATH"),
			Value:       o.Path,
			Destination: &o.Path,
			Category:    StorageFlagCategory,
		},
		&cli.StringFlag{
			Name:        "storage-s3-bucket",
			Usage:       "bucket name of the s3 backend",
			Sources:     cli.EnvVars("OTA_STORAGE_S3_BUCKET"),
			Value:       o.S3Bucket,
			Destination: &o.S3Bucket,
			Category:    StorageFlagCategory,
		},
		&cli.StringFlag{
			Name:        "storage-s3-region",
			Usage:       "region of the s3 backend",
			Sources:     cli.EnvVars("OTA_STORAGE_S3_REGION"),
			Value:       o.S3Region,
			Destination: &o.S3Region,
			Category:    StorageFlagCategory,
		},
		&cli.StringFlag{
			Name:        "storage-s3-endpoint",
			Usage:       "custom endpoint for S3-compatible stores",
			Sources:     cli.EnvVars("OTA_STORAGE_S3_ENDPOINT"),
			Value:       o.S3Endpoint,
			Destination: &o.S3Endpoint,
			Category:    StorageFlagCategory,
		},
		&cli.StringFlag{
			Name:        "storage-s3-access-key",
			Usage:       "static access key for the s3 backend",
			Sources:     cli.EnvVars("OTA_STORAGE_S3_ACCESS_KEY"),
			Value:       o.S3AccessKey,
			Destination: &o.S3AccessKey,
			Category:    StorageFlagCategory,
		},
		&cli.StringFlag{
			Name:        "storage-s3-secret-key",
			Usage:       "static secret key for the s3 backend",
			Sources:     cli.EnvVars("OTA_STORAGE_S3_SECRET_KEY"),
			Value:       o.S3SecretKey,
			Destination: &o.S3SecretKey,
			Category:    StorageFlagCategory,
		},
		&cli.BoolFlag{
			Name:        "storage-s3-path-style",
			Usage:       "use path-style addressing for S3-compatible stores",
			Sources:     cli.EnvVars("OTA_STORAGE_S3_PATH_STYLE"),
			Value:       o.S3UsePathStyle,
			Destination: &o.S3UsePathStyle,
			Category:    StorageFlagCategory,
		},
	}
}

// Build constructs the configured blob storage backend.
func (o *StorageOptions) Build(ctx context.Context) (blob.Storage, error) {
	switch o.Backend {
	case StorageBackendFS:
		return blob.NewFS(o.Path), nil
	case StorageBackendS3:
		return blob.NewS3(ctx, blob.S3Config{
			Bucket:          o.S3Bucket,
			Region:          o.S3Region,
			Endpoint:        o.S3Endpoint,
			AccessKeyID:     o.S3AccessKey,
			SecretAccessKey: o.S3SecretKey,
			UsePathStyle:    o.S3UsePathStyle,
		})
	case StorageBackendMemory:
		return blob.NewMemory(), nil
	default:
		return nil, errdefs.Newf(errdefs.ErrInvalidParameter, "unknown storage backend %q", o.Backend)
	}
}
