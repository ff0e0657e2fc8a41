// Package minio fetches compendium and conflation files from an
// S3-compatible bucket ahead of ingestion. Babel publishes its builds to
// object storage; a load against a fresh volume pulls what it needs first.
package minio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/biograph-io/nodenorm/internal/config"
	"github.com/biograph-io/nodenorm/internal/infrastructure/monitoring/logging"
	"github.com/biograph-io/nodenorm/pkg/errors"
)

// ObjectAPI is the slice of the minio client the fetcher uses.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	FGetObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.GetObjectOptions) error
}

// Fetcher downloads named objects into a local directory, skipping files that
// are already present with the expected size.
type Fetcher struct {
	api    ObjectAPI
	bucket string
	logger logging.Logger
}

// NewFetcher connects to the configured endpoint and verifies the bucket.
func NewFetcher(cfg config.ObjectStorageConfig, log logging.Logger) (*Fetcher, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfiguration, "failed to create object storage client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to reach object storage")
	}
	if !exists {
		return nil, errors.Newf(errors.ErrCodeConfiguration, "bucket %q does not exist", cfg.Bucket)
	}

	log.Info("Object storage connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
	)
	return &Fetcher{api: client, bucket: cfg.Bucket, logger: log.Named("fetcher")}, nil
}

// NewFetcherWithAPI builds a Fetcher over an existing client.
func NewFetcherWithAPI(api ObjectAPI, bucket string, log logging.Logger) *Fetcher {
	return &Fetcher{api: api, bucket: bucket, logger: log.Named("fetcher")}
}

// Fetch downloads each named object into destDir. Objects already present
// locally with the remote's size are left alone, so re-runs after a partial
// load only pull what is missing.
func (f *Fetcher) Fetch(ctx context.Context, names []string, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeCompendiumRead,
			fmt.Sprintf("failed to create %q", destDir))
	}

	for _, name := range names {
		dest := filepath.Join(destDir, name)

		info, err := f.api.StatObject(ctx, f.bucket, name, minio.StatObjectOptions{})
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeExternalService,
				fmt.Sprintf("object %q not available", name))
		}

		if local, err := os.Stat(dest); err == nil && local.Size() == info.Size {
			f.logger.Debug("Object already present",
				logging.String("object", name))
			continue
		}

		started := time.Now()
		if err := f.api.FGetObject(ctx, f.bucket, name, dest, minio.GetObjectOptions{}); err != nil {
			return errors.Wrap(err, errors.ErrCodeExternalService,
				fmt.Sprintf("failed to fetch %q", name))
		}
		f.logger.Info("Object fetched",
			logging.String("object", name),
			logging.Int("bytes", int(info.Size)),
			logging.Duration("elapsed", time.Since(started)),
		)
	}
	return nil
}
