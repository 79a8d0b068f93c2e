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
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/blinklabs-io/condorcet/database/plugin/blob"
	"github.com/blinklabs-io/condorcet/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memClient struct {
	objects map[string][]byte
	puts    []string
	failPut string
	mu      sync.Mutex
}

func newMemClient() *memClient {
	return &memClient{objects: make(map[string][]byte)}
}

func (c *memClient) GetObject(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.objects[key]
	if !ok {
		return nil, types.ErrBlobKeyNotFound
	}
	return slices.Clone(val), nil
}

func (c *memClient) PutObject(_ context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key == c.failPut {
		return errors.New("put failed")
	}
	c.objects[key] = slices.Clone(data)
	c.puts = append(c.puts, key)
	return nil
}

func (c *memClient) DeleteObject(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, key)
	return nil
}

func (c *memClient) ListObjects(_ context.Context, prefix string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ret []string
	for key := range c.objects {
		if strings.HasPrefix(key, prefix) {
			ret = append(ret, key)
		}
	}
	return ret, nil
}

func TestObjectStoreBuffersUntilCommit(t *testing.T) {
	client := newMemClient()
	store := blob.NewObjectStore(client, blob.ObjectStoreConfig{Name: "mem"})

	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("a"), []byte("1")))
	// Visible inside the transaction only
	val, err := store.Get(txn, []byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), val)
	assert.Empty(t, client.objects)

	require.NoError(t, txn.Commit())
	assert.Equal(t, []byte("1"), client.objects["a"])

	txn = store.NewTransaction(true)
	require.NoError(t, store.Delete(txn, []byte("a")))
	_, err = store.Get(txn, []byte("a"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	require.NoError(t, txn.Rollback())
	assert.Contains(t, client.objects, "a")
	require.ErrorIs(t, store.Set(txn, []byte("b"), nil), types.ErrTxnFinished)
}

func TestObjectStoreReadOnly(t *testing.T) {
	store := blob.NewObjectStore(newMemClient(), blob.ObjectStoreConfig{Name: "mem"})
	txn := store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	require.ErrorIs(t, store.Set(txn, []byte("a"), []byte("1")), types.ErrReadOnlyTxn)
	require.ErrorIs(t, store.Delete(txn, []byte("a")), types.ErrReadOnlyTxn)
	_, err := store.Get(nil, []byte("a"))
	require.ErrorIs(t, err, types.ErrNilTxn)
}

func TestObjectStoreCommitTimestampWrittenLast(t *testing.T) {
	client := newMemClient()
	store := blob.NewObjectStore(client, blob.ObjectStoreConfig{Name: "mem"})
	txn := store.NewTransaction(true)
	require.NoError(t, store.SetCommitTimestamp(42, txn))
	require.NoError(t, store.Set(txn, []byte("z"), []byte("1")))
	require.NoError(t, store.Set(txn, []byte("b"), []byte("2")))
	require.NoError(t, txn.Commit())
	assert.Equal(
		t,
		[]string{"b", "z", types.CommitTimestampBlobKey},
		client.puts,
	)
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(42), ts)
}

func TestObjectStoreFailedCommitSkipsTimestamp(t *testing.T) {
	client := newMemClient()
	client.failPut = "b"
	store := blob.NewObjectStore(client, blob.ObjectStoreConfig{Name: "mem"})
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("a"), []byte("1")))
	require.NoError(t, store.Set(txn, []byte("b"), []byte("2")))
	require.NoError(t, store.SetCommitTimestamp(7, txn))
	require.Error(t, txn.Commit())
	_, err := store.GetCommitTimestamp()
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestObjectStoreIterator(t *testing.T) {
	client := newMemClient()
	client.objects[string(types.ProposalBlobKey(1))] = []byte("one")
	client.objects[string(types.ProposalBlobKey(2))] = []byte("two")
	client.objects["other"] = []byte("x")
	store := blob.NewObjectStore(client, blob.ObjectStoreConfig{Name: "mem"})

	txn := store.NewTransaction(true)
	defer txn.Rollback() //nolint:errcheck
	require.NoError(t, store.Set(txn, types.ProposalBlobKey(3), []byte("three")))
	require.NoError(t, store.Delete(txn, types.ProposalBlobKey(1)))

	prefix := []byte(types.ProposalBlobKeyPrefix)
	for _, reverse := range []bool{false, true} {
		iter := store.NewIterator(
			txn,
			types.BlobIteratorOptions{Prefix: prefix, Reverse: reverse},
		)
		var vals []string
		for iter.Rewind(); iter.ValidForPrefix(prefix); iter.Next() {
			val, err := iter.Item().ValueCopy(nil)
			require.NoError(t, err)
			vals = append(vals, string(val))
		}
		require.NoError(t, iter.Err())
		iter.Close()
		if reverse {
			assert.Equal(t, []string{"three", "two"}, vals)
		} else {
			assert.Equal(t, []string{"two", "three"}, vals)
		}
	}
}

func TestObjectStoreEncryptFailsWithoutKeys(t *testing.T) {
	t.Setenv("CONDORCET_GCP_KMS_RESOURCE_ID", "")
	t.Setenv("CONDORCET_AWS_KMS_KEY_ARNS", "")
	client := newMemClient()
	store := blob.NewObjectStore(
		client,
		blob.ObjectStoreConfig{Name: "mem", Encrypt: true},
	)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("a"), []byte("1")))
	require.Error(t, txn.Commit())
	assert.Empty(t, client.objects)
}

func TestObjectStoreMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	client := newMemClient()
	store := blob.NewObjectStore(
		client,
		blob.ObjectStoreConfig{Name: "mem", PromRegistry: registry},
	)
	// A second store on the same registry shares the counters
	_ = blob.NewObjectStore(
		client,
		blob.ObjectStoreConfig{Name: "mem2", PromRegistry: registry},
	)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("a"), []byte("12345")))
	require.NoError(t, txn.Commit())
	expected := `
# HELP database_blob_bytes_total Total bytes read/written for blob operations
# TYPE database_blob_bytes_total counter
database_blob_bytes_total{op="set",store="mem"} 5
`
	require.NoError(
		t,
		testutil.GatherAndCompare(
			registry,
			strings.NewReader(expected),
			"database_blob_bytes_total",
		),
	)
}
