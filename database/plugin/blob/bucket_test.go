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


package blob_test

import (
	"testing"
	"time"

	"github.com/blinklabs-io/condorcet/database/plugin/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBucketURL(t *testing.T) {
	testDefs := []struct {
		dataDir string
		bucket  string
		prefix  string
		wantErr bool
	}{
		{dataDir: "s3://proposals", bucket: "proposals"},
		{dataDir: "s3://proposals/dao/a", bucket: "proposals", prefix: "dao/a"},
		{dataDir: "gcs://proposals", wantErr: true},
		{dataDir: "s3://", wantErr: true},
		{dataDir: "s3:///dao", wantErr: true},
		{dataDir: "", wantErr: true},
	}
	for _, testDef := range testDefs {
		bucket, prefix, err := blob.ParseBucketURL("s3", testDef.dataDir)
		if testDef.wantErr {
			require.ErrorIs(t, err, blob.ErrInvalidBucketURL, testDef.dataDir)
			continue
		}
		require.NoError(t, err, testDef.dataDir)
		assert.Equal(t, testDef.bucket, bucket)
		assert.Equal(t, testDef.prefix, prefix)
	}
}

func TestNewBucketConfig(t *testing.T) {
	cfg := blob.NewBucketConfig(
		blob.BucketConfig{Region: "us-east-1"},
		blob.WithBucket("proposals"),
		blob.WithPrefix("/dao/"),
		blob.WithTimeout(5*time.Second),
		blob.WithEncrypt(true),
	)
	assert.NotNil(t, cfg.Logger)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "dao/", cfg.Prefix)
	assert.Equal(t, "dao/proposal/1", cfg.Key("proposal/1"))
	assert.Equal(t, "proposal/1", cfg.TrimKey("dao/proposal/1"))
	// Normalizing twice keeps the prefix
	assert.Equal(t, "dao/", blob.NewBucketConfig(cfg).Prefix)

	osc := cfg.ObjectStoreConfig("s3")
	assert.Equal(t, "s3", osc.Name)
	assert.Equal(t, 5*time.Second, osc.Timeout)
	assert.True(t, osc.Encrypt)

	assert.Empty(t, blob.NewBucketConfig(blob.BucketConfig{}).Prefix)
}

func TestBucketPluginOptions(t *testing.T) {
	var cfg blob.BucketConfig
	opts := blob.BucketPluginOptions(&cfg, "S3")
	names := make([]string, 0, len(opts))
	for _, opt := range opts {
		names = append(names, opt.Name)
	}
	assert.Equal(t, []string{"bucket", "prefix", "encrypt"}, names)
	dest, ok := opts[0].Dest.(*string)
	require.True(t, ok)
	*dest = "proposals"
	assert.Equal(t, "proposals", cfg.Bucket)
}
