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


package sqlite

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultDataDir     = ".condorcet"
	DefaultBusyTimeout = 5000
	DefaultCacheSizeMB = 50
)

type sqliteConfig struct {
	logger         *slog.Logger
	promRegistry   prometheus.Registerer
	dataDir        string
	maxConnections uint64
	busyTimeout    uint64
	cacheSizeMB    uint64
}

var defaultConfig = sqliteConfig{
	dataDir:     DefaultDataDir,
	busyTimeout: DefaultBusyTimeout,
	cacheSizeMB: DefaultCacheSizeMB,
}

type SqliteOptionFunc func(*sqliteConfig)

func WithLogger(logger *slog.Logger) SqliteOptionFunc {
	return func(c *sqliteConfig) { c.logger = logger }
}

func WithPromRegistry(registry prometheus.Registerer) SqliteOptionFunc {
	return func(c *sqliteConfig) { c.promRegistry = registry }
}

// WithDataDir sets the directory holding metadata.sqlite. An empty value
// keeps the database in memory.
func WithDataDir(dataDir string) SqliteOptionFunc {
	return func(c *sqliteConfig) { c.dataDir = dataDir }
}

// WithMaxConnections limits the connection pool, 0 for no limit
func WithMaxConnections(maxConnections uint) SqliteOptionFunc {
	return func(c *sqliteConfig) { c.maxConnections = uint64(maxConnections) }
}

// WithBusyTimeout sets how long, in milliseconds, a connection waits on a
// locked database
func WithBusyTimeout(ms uint) SqliteOptionFunc {
	return func(c *sqliteConfig) { c.busyTimeout = uint64(ms) }
}

// WithCacheSize sets the page cache size per connection in megabytes
func WithCacheSize(mb uint) SqliteOptionFunc {
	return func(c *sqliteConfig) { c.cacheSizeMB = uint64(mb) }
}
