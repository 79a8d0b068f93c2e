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


package blob

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/blinklabs-io/condorcet/database/plugin"
	"github.com/prometheus/client_golang/prometheus"
)

var ErrInvalidBucketURL = errors.New("invalid bucket URL")

// BucketConfig holds the settings of the bucket-backed blob stores. Region
// and Endpoint only apply to S3, CredentialsFile only to GCS.
type BucketConfig struct {
	Logger          *slog.Logger
	PromRegistry    prometheus.Registerer
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	CredentialsFile string
	Timeout         time.Duration
	Encrypt         bool
}

type BucketOptionFunc func(*BucketConfig)

func WithLogger(logger *slog.Logger) BucketOptionFunc {
	return func(c *BucketConfig) { c.Logger = logger }
}

func WithPromRegistry(registry prometheus.Registerer) BucketOptionFunc {
	return func(c *BucketConfig) { c.PromRegistry = registry }
}

func WithBucket(bucket string) BucketOptionFunc {
	return func(c *BucketConfig) { c.Bucket = bucket }
}

// WithPrefix places every object under prefix
func WithPrefix(prefix string) BucketOptionFunc {
	return func(c *BucketConfig) { c.Prefix = prefix }
}

func WithRegion(region string) BucketOptionFunc {
	return func(c *BucketConfig) { c.Region = region }
}

// WithEndpoint points the client at an S3-compatible server such as minio
func WithEndpoint(endpoint string) BucketOptionFunc {
	return func(c *BucketConfig) { c.Endpoint = endpoint }
}

func WithCredentialsFile(path string) BucketOptionFunc {
	return func(c *BucketConfig) { c.CredentialsFile = path }
}

// WithTimeout bounds client setup and each object operation
func WithTimeout(timeout time.Duration) BucketOptionFunc {
	return func(c *BucketConfig) { c.Timeout = timeout }
}

// WithEncrypt stores every object as a SOPS document
func WithEncrypt(encrypt bool) BucketOptionFunc {
	return func(c *BucketConfig) { c.Encrypt = encrypt }
}

// NewBucketConfig applies opts on top of base
func NewBucketConfig(base BucketConfig, opts ...BucketOptionFunc) BucketConfig {
	c := base
	for _, opt := range opts {
		opt(&c)
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	c.Prefix = strings.Trim(c.Prefix, "/")
	if c.Prefix != "" {
		c.Prefix += "/"
	}
	return c
}

// Key returns the object name of key
func (c BucketConfig) Key(key string) string {
	return c.Prefix + key
}

// TrimKey is the inverse of Key
func (c BucketConfig) TrimKey(name string) string {
	return strings.TrimPrefix(name, c.Prefix)
}

// ObjectStoreConfig returns the ObjectStore settings for the named backend
func (c BucketConfig) ObjectStoreConfig(name string) ObjectStoreConfig {
	return ObjectStoreConfig{
		Logger:       c.Logger,
		PromRegistry: c.PromRegistry,
		Name:         name,
		Timeout:      c.Timeout,
		Encrypt:      c.Encrypt,
	}
}

// ParseBucketURL splits a "<scheme>://<bucket>[/prefix]" data dir
func ParseBucketURL(scheme, dataDir string) (string, string, error) {
	path, ok := strings.CutPrefix(dataDir, scheme+"://")
	if !ok {
		return "", "", fmt.Errorf(
			"%w: expected %s://<bucket>[/prefix], got %q",
			ErrInvalidBucketURL,
			scheme,
			dataDir,
		)
	}
	bucket, prefix, _ := strings.Cut(path, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: missing bucket in %q", ErrInvalidBucketURL, dataDir)
	}
	return bucket, prefix, nil
}

// BucketPluginOptions returns the command line options common to the bucket
// plugins, writing into c
func BucketPluginOptions(c *BucketConfig, service string) []plugin.PluginOption {
	return []plugin.PluginOption{
		{
			Name:         "bucket",
			Type:         plugin.PluginOptionTypeString,
			Description:  service + " bucket name",
			DefaultValue: c.Bucket,
			Dest:         &c.Bucket,
		},
		{
			Name:         "prefix",
			Type:         plugin.PluginOptionTypeString,
			Description:  service + " object name prefix",
			DefaultValue: c.Prefix,
			Dest:         &c.Prefix,
		},
		{
			Name:         "encrypt",
			Type:         plugin.PluginOptionTypeBool,
			Description:  "Encrypt stored objects with SOPS",
			DefaultValue: c.Encrypt,
			Dest:         &c.Encrypt,
		},
	}
}
