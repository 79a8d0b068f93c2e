// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/blinklabs-io/condorcet/database/plugin"
	"github.com/blinklabs-io/condorcet/database/plugin/blob"
	"github.com/blinklabs-io/condorcet/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// BlobStoreGCS stores proposal records in a Google Cloud Storage bucket
type BlobStoreGCS struct {
	*blob.ObjectStore
	config blob.BucketConfig
	logger *plugin.PrintfLogger
	client *storage.Client
	bucket *storage.BucketHandle
}

// New creates a GCS-backed blob store from a "gcs://<bucket>[/prefix]" data dir
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*BlobStoreGCS, error) {
	bucket, prefix, err := blob.ParseBucketURL("gcs", dataDir)
	if err != nil {
		return nil, fmt.Errorf("gcs blob: %w", err)
	}
	return NewWithOptions(
		WithBucket(bucket),
		WithPrefix(prefix),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
}

// NewWithOptions creates a GCS-backed blob store. The bucket is not
// contacted until Start.
func NewWithOptions(opts ...BlobStoreGCSOptionFunc) (*BlobStoreGCS, error) {
	return newFromConfig(blob.NewBucketConfig(blob.BucketConfig{}, opts...)), nil
}

func newFromConfig(cfg blob.BucketConfig) *BlobStoreGCS {
	cfg = blob.NewBucketConfig(cfg)
	d := &BlobStoreGCS{
		config: cfg,
		logger: plugin.NewPrintfLogger(cfg.Logger),
	}
	d.ObjectStore = blob.NewObjectStore(d, cfg.ObjectStoreConfig("gcs"))
	return d
}

// ValidateCredentials checks that a credentials file exists and is readable
func ValidateCredentials(credentialsFile string) error {
	if credentialsFile == "" {
		return nil
	}
	info, err := os.Stat(credentialsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf(
				"GCS credentials file does not exist: %s",
				credentialsFile,
			)
		}
		return fmt.Errorf("failed to access GCS credentials file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf(
			"GCS credentials file is a directory: %s",
			credentialsFile,
		)
	}
	return nil
}

// Close closes the GCS client
func (d *BlobStoreGCS) Close() error {
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	d.bucket = nil
	return err
}

// Client returns the GCS client
func (d *BlobStoreGCS) Client() *storage.Client {
	return d.client
}

// Bucket returns the bucket handle
func (d *BlobStoreGCS) Bucket() *storage.BucketHandle {
	return d.bucket
}

// Start implements the plugin.Plugin interface
func (d *BlobStoreGCS) Start() error {
	if d.config.Bucket == "" {
		return errors.New("gcs blob: bucket not set")
	}
	if err := ValidateCredentials(d.config.CredentialsFile); err != nil {
		return err
	}
	timeout := d.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	clientOpts := []option.ClientOption{
		storage.WithDisabledClientMetrics(),
	}
	if d.config.CredentialsFile != "" {
		clientOpts = append(
			clientOpts,
			option.WithCredentialsFile(d.config.CredentialsFile),
		)
	}
	client, err := storage.NewGRPCClient(ctx, clientOpts...)
	if err != nil {
		return fmt.Errorf(
			"gcs blob: failed in creating storage client: %w",
			err,
		)
	}
	d.client = client
	d.bucket = client.Bucket(d.config.Bucket)
	d.logger.Infof("using GCS bucket %s", d.config.Bucket)
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *BlobStoreGCS) Stop() error {
	return d.Close()
}

// GetObject implements blob.ObjectClient
func (d *BlobStoreGCS) GetObject(ctx context.Context, key string) ([]byte, error) {
	if d.bucket == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	r, err := d.bucket.Object(d.config.Key(key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, types.ErrBlobKeyNotFound
		}
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// PutObject implements blob.ObjectClient
func (d *BlobStoreGCS) PutObject(ctx context.Context, key string, data []byte) error {
	if d.bucket == nil {
		return types.ErrBlobStoreUnavailable
	}
	w := d.bucket.Object(d.config.Key(key)).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		d.logger.Errorf("gcs put %q failed: %v", key, err)
		return err
	}
	if err := w.Close(); err != nil {
		d.logger.Errorf("gcs put %q failed: %v", key, err)
		return err
	}
	d.logger.Debugf("gcs put %q ok (%d bytes)", key, len(data))
	return nil
}

// DeleteObject implements blob.ObjectClient
func (d *BlobStoreGCS) DeleteObject(ctx context.Context, key string) error {
	if d.bucket == nil {
		return types.ErrBlobStoreUnavailable
	}
	err := d.bucket.Object(d.config.Key(key)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return types.ErrBlobKeyNotFound
	}
	return err
}

// ListObjects implements blob.ObjectClient
func (d *BlobStoreGCS) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	if d.bucket == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	it := d.bucket.Objects(ctx, &storage.Query{Prefix: d.config.Key(prefix)})
	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		keys = append(keys, d.config.TrimKey(attrs.Name))
	}
	return keys, nil
}
