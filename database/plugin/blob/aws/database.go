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

package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/blinklabs-io/condorcet/database/plugin/blob"
	"github.com/blinklabs-io/condorcet/database/types"
	"github.com/prometheus/client_golang/prometheus"
)

// BlobStoreS3 stores proposal records in an AWS S3 bucket
type BlobStoreS3 struct {
	*blob.ObjectStore
	config blob.BucketConfig
	logger *S3Logger
	client *s3.Client
}

// New creates an S3-backed blob store from a "s3://<bucket>[/prefix]" data dir
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*BlobStoreS3, error) {
	bucket, prefix, err := blob.ParseBucketURL("s3", dataDir)
	if err != nil {
		return nil, fmt.Errorf("s3 blob: %w", err)
	}
	return NewWithOptions(
		WithBucket(bucket),
		WithPrefix(prefix),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
}

// NewWithOptions creates an S3-backed blob store. The AWS config is loaded
// in Start.
func NewWithOptions(opts ...BlobStoreS3OptionFunc) (*BlobStoreS3, error) {
	return newFromConfig(blob.NewBucketConfig(blob.BucketConfig{}, opts...)), nil
}

func newFromConfig(cfg blob.BucketConfig) *BlobStoreS3 {
	cfg = blob.NewBucketConfig(cfg)
	d := &BlobStoreS3{
		config: cfg,
		logger: NewS3Logger(cfg.Logger),
	}
	d.ObjectStore = blob.NewObjectStore(d, cfg.ObjectStoreConfig("s3"))
	return d
}

// Close implements the BlobStore interface
func (d *BlobStoreS3) Close() error {
	return d.Stop()
}

// Client returns the S3 client
func (d *BlobStoreS3) Client() *s3.Client {
	return d.client
}

// Bucket returns the bucket name
func (d *BlobStoreS3) Bucket() string {
	return d.config.Bucket
}

// Prefix returns the normalized object key prefix
func (d *BlobStoreS3) Prefix() string {
	return d.config.Prefix
}

// Start implements the plugin.Plugin interface
func (d *BlobStoreS3) Start() error {
	if d.config.Bucket == "" {
		return errors.New("s3 blob: bucket not set")
	}
	timeout := d.config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithLogger(d.logger),
	)
	if err != nil {
		return fmt.Errorf("s3 blob: load default AWS config: %w", err)
	}
	if d.config.Region != "" {
		awsCfg.Region = d.config.Region
	}
	d.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if d.config.Endpoint != "" {
			o.BaseEndpoint = aws.String(d.config.Endpoint)
			// S3-compatible servers generally lack virtual host routing
			o.UsePathStyle = true
		}
	})
	d.logger.Infof("using S3 bucket %s", d.config.Bucket)
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *BlobStoreS3) Stop() error {
	// S3 client doesn't need explicit closing
	d.client = nil
	return nil
}

// GetObject implements blob.ObjectClient
func (d *BlobStoreS3) GetObject(ctx context.Context, key string) ([]byte, error) {
	if d.client == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.config.Bucket),
		Key:    aws.String(d.config.Key(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, types.ErrBlobKeyNotFound
		}
		return nil, err
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		d.logger.Errorf("s3 read %q failed: %v", key, err)
		return nil, err
	}
	d.logger.Debugf("s3 get %q ok (%d bytes)", key, len(data))
	return data, nil
}

// PutObject implements blob.ObjectClient
func (d *BlobStoreS3) PutObject(ctx context.Context, key string, data []byte) error {
	if d.client == nil {
		return types.ErrBlobStoreUnavailable
	}
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(d.config.Bucket),
		Key:    aws.String(d.config.Key(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		d.logger.Errorf("s3 put %q failed: %v", key, err)
		return err
	}
	d.logger.Debugf("s3 put %q ok (%d bytes)", key, len(data))
	return nil
}

// DeleteObject implements blob.ObjectClient
func (d *BlobStoreS3) DeleteObject(ctx context.Context, key string) error {
	if d.client == nil {
		return types.ErrBlobStoreUnavailable
	}
	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.config.Bucket),
		Key:    aws.String(d.config.Key(key)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return types.ErrBlobKeyNotFound
		}
		d.logger.Errorf("s3 delete %q failed: %v", key, err)
		return err
	}
	return nil
}

// ListObjects implements blob.ObjectClient
func (d *BlobStoreS3) ListObjects(ctx context.Context, prefix string) ([]string, error) {
	if d.client == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(d.config.Bucket),
	}
	if fullPrefix := d.config.Key(prefix); fullPrefix != "" {
		input.Prefix = aws.String(fullPrefix)
	}
	paginator := s3.NewListObjectsV2Paginator(d.client, input)
	keys := make([]string, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, d.config.TrimKey(aws.ToString(obj.Key)))
		}
	}
	return keys, nil
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	var noSuchKey *s3types.NoSuchKey
	return errors.As(err, &noSuchKey)
}
