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

package sqlite_test

import (
	"testing"

	"github.com/blinklabs-io/condorcet/database/models"
	"github.com/blinklabs-io/condorcet/database/plugin"
	"github.com/blinklabs-io/condorcet/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/condorcet/tally"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoresAreIsolated(t *testing.T) {
	storeA, err := sqlite.New("", nil, nil)
	require.NoError(t, err)
	defer storeA.Close()
	storeB, err := sqlite.New("", nil, nil)
	require.NoError(t, err)
	defer storeB.Close()

	require.NoError(t, storeA.SetTotalPower(
		&models.TotalPower{Height: 1, Power: tally.NewAmount(10)},
		nil,
	))
	total, err := storeB.GetTotalPower(1, nil)
	require.NoError(t, err)
	assert.Nil(t, total)
}

func TestPersistentDataDir(t *testing.T) {
	dataDir := t.TempDir()
	store, err := sqlite.New(dataDir, nil, nil)
	require.NoError(t, err)
	txn := store.Transaction()
	require.NoError(t, store.SetCommitTimestamp(12345, txn))
	require.NoError(t, txn.Commit())
	require.NoError(t, store.Close())

	store, err = sqlite.New(dataDir, nil, nil)
	require.NoError(t, err)
	defer store.Close()
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(12345), ts)
}

func TestPluginStart(t *testing.T) {
	require.NoError(t, plugin.SetPluginOption(
		plugin.PluginTypeMetadata,
		"sqlite",
		"data-dir",
		"",
	))
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, "sqlite")
	require.NoError(t, err)
	store, ok := p.(*sqlite.MetadataStoreSqlite)
	require.True(t, ok)
	defer store.Stop() //nolint:errcheck
	maxID, err := store.GetMaxProposalID(nil)
	require.NoError(t, err)
	assert.Zero(t, maxID)
}

func TestDSN(t *testing.T) {
	store, err := sqlite.NewWithOptions(
		sqlite.WithDataDir("/var/lib/condorcet"),
		sqlite.WithBusyTimeout(250),
		sqlite.WithCacheSize(8),
	)
	require.NoError(t, err)
	assert.Equal(
		t,
		"file:/var/lib/condorcet/metadata.sqlite?_pragma=journal_mode(WAL)&_pragma=busy_timeout(250)&_pragma=cache_size(-8000)",
		store.DSN(),
	)

	store, err = sqlite.NewWithOptions(
		sqlite.WithDataDir("/var/lib/condorcet"),
		sqlite.WithCacheSize(0),
	)
	require.NoError(t, err)
	assert.Equal(
		t,
		"file:/var/lib/condorcet/metadata.sqlite?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		store.DSN(),
	)

	store, err = sqlite.NewWithOptions(sqlite.WithDataDir(""))
	require.NoError(t, err)
	assert.Contains(t, store.DSN(), "mode=memory")
}
