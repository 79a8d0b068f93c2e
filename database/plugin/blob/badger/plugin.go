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

package badger

import (
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/condorcet/database/plugin"
)

const DefaultDataDir = ".condorcet"

var (
	cmdlineOptions = struct {
		dataDir        string
		gcInterval     string
		blockCacheSize uint64
		indexCacheSize uint64
		syncWrites     bool
	}{
		dataDir:        DefaultDataDir,
		gcInterval:     DefaultGcInterval.String(),
		blockCacheSize: DefaultBlockCacheSize,
		indexCacheSize: DefaultIndexCacheSize,
		syncWrites:     true,
	}
	cmdlineOptionsMutex sync.RWMutex
)

// Register plugin
func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "badger",
			Description:        "BadgerDB local key-value store",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "data-dir",
					Type:         plugin.PluginOptionTypeString,
					Description:  "Data directory for badger storage, empty for in-memory",
					DefaultValue: cmdlineOptions.dataDir,
					Dest:         &(cmdlineOptions.dataDir),
				},
				{
					Name:         "gc-interval",
					Type:         plugin.PluginOptionTypeString,
					Description:  "Value log garbage collection interval, 0 to disable",
					DefaultValue: cmdlineOptions.gcInterval,
					Dest:         &(cmdlineOptions.gcInterval),
				},
				{
					Name:         "sync-writes",
					Type:         plugin.PluginOptionTypeBool,
					Description:  "Wait for fsync on every commit",
					DefaultValue: cmdlineOptions.syncWrites,
					Dest:         &(cmdlineOptions.syncWrites),
				},
				{
					Name:         "block-cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Badger block cache size in bytes",
					DefaultValue: cmdlineOptions.blockCacheSize,
					Dest:         &(cmdlineOptions.blockCacheSize),
				},
				{
					Name:         "index-cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "Badger index cache size in bytes",
					DefaultValue: cmdlineOptions.indexCacheSize,
					Dest:         &(cmdlineOptions.indexCacheSize),
				},
			},
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	opts := cmdlineOptions
	cmdlineOptionsMutex.RUnlock()
	gcInterval, err := time.ParseDuration(opts.gcInterval)
	if err != nil {
		return plugin.NewErrorPlugin(
			fmt.Errorf("badger: invalid gc-interval %q: %w", opts.gcInterval, err),
		)
	}
	p, err := New(
		WithDataDir(opts.dataDir),
		WithGc(gcInterval),
		WithSyncWrites(opts.syncWrites),
		WithBlockCacheSize(opts.blockCacheSize),
		WithIndexCacheSize(opts.indexCacheSize),
		WithLogger(plugin.SharedLogger()),
		WithPromRegistry(plugin.SharedPromRegistry()),
	)
	if err != nil {
		// Defer the error to Start()
		return plugin.NewErrorPlugin(err)
	}
	return p
}
