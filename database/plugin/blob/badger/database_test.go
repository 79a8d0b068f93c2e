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

package badger_test

import (
	"testing"

	"github.com/blinklabs-io/condorcet/database/plugin"
	"github.com/blinklabs-io/condorcet/database/plugin/blob/badger"
	"github.com/blinklabs-io/condorcet/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...badger.BlobStoreBadgerOptionFunc) *badger.BlobStoreBadger {
	t.Helper()
	store, err := badger.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGetSetDelete(t *testing.T) {
	store := newTestStore(t)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k1"), []byte("v1")))
	require.NoError(t, txn.Commit())

	txn = store.NewTransaction(false)
	val, err := store.Get(txn, []byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)
	_, err = store.Get(txn, []byte("missing"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	require.ErrorIs(t, store.Set(txn, []byte("k2"), []byte("v2")), types.ErrReadOnlyTxn)
	require.NoError(t, txn.Rollback())

	txn = store.NewTransaction(true)
	require.NoError(t, store.Delete(txn, []byte("k1")))
	require.NoError(t, txn.Commit())
	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err = store.Get(txn, []byte("k1"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	store := newTestStore(t)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k"), []byte("v")))
	require.NoError(t, txn.Rollback())
	// Finished transactions cannot be reused
	require.ErrorIs(t, store.Set(txn, []byte("k"), []byte("v")), types.ErrTxnFinished)

	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err := store.Get(txn, []byte("k"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
}

func TestTxnValidation(t *testing.T) {
	store := newTestStore(t)
	other := newTestStore(t)
	_, err := store.Get(nil, []byte("k"))
	require.ErrorIs(t, err, types.ErrNilTxn)
	txn := other.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	_, err = store.Get(txn, []byte("k"))
	require.ErrorIs(t, err, types.ErrTxnWrongType)
	iter := store.NewIterator(txn, types.BlobIteratorOptions{})
	assert.False(t, iter.Valid())
	require.ErrorIs(t, iter.Err(), types.ErrTxnWrongType)
}

func TestIterator(t *testing.T) {
	store := newTestStore(t)
	txn := store.NewTransaction(true)
	for _, id := range []uint64{3, 1, 2} {
		require.NoError(t, store.Set(txn, types.ProposalBlobKey(id), []byte{byte(id)}))
	}
	require.NoError(t, store.Set(txn, []byte("zz"), []byte("other")))
	require.NoError(t, txn.Commit())

	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	prefix := []byte(types.ProposalBlobKeyPrefix)
	iter := store.NewIterator(txn, types.BlobIteratorOptions{Prefix: prefix})
	var ids []uint64
	for iter.Rewind(); iter.ValidForPrefix(prefix); iter.Next() {
		id, err := types.ProposalIDFromBlobKey(iter.Item().Key())
		require.NoError(t, err)
		val, err := iter.Item().ValueCopy(nil)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(id)}, val)
		ids = append(ids, id)
	}
	iter.Close()
	assert.Equal(t, []uint64{1, 2, 3}, ids)
}

func TestCommitTimestamp(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetCommitTimestamp()
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	txn := store.NewTransaction(true)
	require.NoError(t, store.SetCommitTimestamp(1234567, txn))
	require.NoError(t, txn.Commit())
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1234567), ts)
}

func TestPersistentDataDir(t *testing.T) {
	dataDir := t.TempDir()
	store, err := badger.New(badger.WithDataDir(dataDir), badger.WithGc(0), badger.WithSyncWrites(false))
	require.NoError(t, err)
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k"), []byte("v")))
	require.NoError(t, txn.Commit())
	require.NoError(t, store.Close())

	store = newTestStore(t, badger.WithDataDir(dataDir))
	txn = store.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	val, err := store.Get(txn, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), val)
}

func TestMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	store := newTestStore(t, badger.WithPromRegistry(registry))
	txn := store.NewTransaction(true)
	require.NoError(t, store.Set(txn, []byte("k"), []byte("value")))
	require.NoError(t, txn.Commit())
	count, err := testutil.GatherAndCount(registry, "database_blob_ops_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCmdlineGcInterval(t *testing.T) {
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "data-dir", ""))
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "gc-interval", "often"))
	t.Cleanup(func() {
		_ = plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "gc-interval", badger.DefaultGcInterval.String())
		_ = plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "data-dir", badger.DefaultDataDir)
	})
	p := badger.NewFromCmdlineOptions()
	require.ErrorContains(t, p.Start(), "gc-interval")

	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "badger", "gc-interval", "0s"))
	p = badger.NewFromCmdlineOptions()
	require.NoError(t, p.Start())
	require.NoError(t, p.Stop())
}
