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

package aws_test

import (
	"testing"

	"github.com/aws/smithy-go/logging"
	"github.com/blinklabs-io/condorcet/database/plugin"
	"github.com/blinklabs-io/condorcet/database/plugin/blob/aws"
	"github.com/blinklabs-io/condorcet/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	testDefs := []struct {
		dataDir string
		bucket  string
		prefix  string
		wantErr bool
	}{
		{dataDir: "s3://bucket", bucket: "bucket"},
		{dataDir: "s3://bucket/", bucket: "bucket"},
		{dataDir: "s3://bucket/a/b", bucket: "bucket", prefix: "a/b/"},
		{dataDir: "s3://bucket/a/b/", bucket: "bucket", prefix: "a/b/"},
		{dataDir: "gcs://bucket", wantErr: true},
		{dataDir: "s3://", wantErr: true},
		{dataDir: "s3:///prefix", wantErr: true},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.dataDir, func(t *testing.T) {
			store, err := aws.New(testDef.dataDir, nil, nil)
			if testDef.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testDef.bucket, store.Bucket())
			assert.Equal(t, testDef.prefix, store.Prefix())
		})
	}
}

func TestRegisteredOptions(t *testing.T) {
	var names []string
	for _, entry := range plugin.GetPlugins(plugin.PluginTypeBlob) {
		if entry.Name != "s3" {
			continue
		}
		for _, opt := range entry.Options {
			names = append(names, opt.Name)
		}
	}
	assert.ElementsMatch(
		t,
		[]string{"endpoint", "bucket", "region", "prefix", "encrypt"},
		names,
	)
	p := aws.NewFromCmdlineOptions()
	require.NotNil(t, p)
	// No bucket configured
	require.Error(t, p.Start())
}

func TestOperationsBeforeStart(t *testing.T) {
	store, err := aws.NewWithOptions(aws.WithBucket("bucket"))
	require.NoError(t, err)
	assert.Nil(t, store.Client())
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("key"), []byte("val")))
	require.ErrorIs(t, txn.Commit(), types.ErrBlobStoreUnavailable)
}

func TestLoggerImplementsSmithyLogger(t *testing.T) {
	var logger logging.Logger = aws.NewS3Logger(nil)
	logger.Logf(logging.Warn, "warning %d", 1)
	logger.Logf(logging.Debug, "debug %d", 2)
}
