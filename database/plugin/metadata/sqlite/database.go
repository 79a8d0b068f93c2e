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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/condorcet/database/plugin/metadata/internal/gormstore"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Each in-memory store gets its own shared-cache database
var memoryDbCounter atomic.Uint64

// MetadataStoreSqlite keeps the proposal index, ballots and voting power
// checkpoints in SQLite
type MetadataStoreSqlite struct {
	gormstore.Store
	config      sqliteConfig
	timerVacuum *time.Timer
	timerMutex  sync.Mutex
	closed      bool
	vacuumWG    sync.WaitGroup
}

// New opens a SQLite metadata store, in memory when dataDir is empty. On a
// start error the store is still returned for recovery.
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*MetadataStoreSqlite, error) {
	db, err := NewWithOptions(
		WithDataDir(dataDir),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
	if err != nil {
		return nil, err
	}
	if err := db.Start(); err != nil {
		return db, err
	}
	return db, nil
}

// NewWithOptions creates a SQLite metadata store. The database is opened by
// Start.
func NewWithOptions(opts ...SqliteOptionFunc) (*MetadataStoreSqlite, error) {
	cfg := defaultConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return newFromConfig(cfg), nil
}

func newFromConfig(cfg sqliteConfig) *MetadataStoreSqlite {
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &MetadataStoreSqlite{config: cfg}
}

// DSN returns the connection string for the configured data dir
func (d *MetadataStoreSqlite) DSN() string {
	if d.config.dataDir == "" {
		// cache=shared lets every pooled connection see the same database
		return fmt.Sprintf(
			"file:condorcet-%d?mode=memory&cache=shared",
			memoryDbCounter.Add(1),
		)
	}
	pragmas := []string{
		"_pragma=journal_mode(WAL)",
		fmt.Sprintf("_pragma=busy_timeout(%d)", d.config.busyTimeout),
	}
	if d.config.cacheSizeMB > 0 {
		// Negative cache_size is in KiB
		pragmas = append(
			pragmas,
			fmt.Sprintf("_pragma=cache_size(-%d)", d.config.cacheSizeMB*1000),
		)
	}
	return fmt.Sprintf(
		"file:%s?%s",
		filepath.Join(d.config.dataDir, "metadata.sqlite"),
		strings.Join(pragmas, "&"),
	)
}

// Start implements the plugin.Plugin interface
func (d *MetadataStoreSqlite) Start() error {
	if d.config.dataDir != "" {
		if _, err := os.Stat(d.config.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(d.config.dataDir, fs.ModePerm); err != nil {
				return fmt.Errorf("failed to create data dir: %w", err)
			}
		}
	}
	dsn := d.DSN()
	metadataDb, err := gorm.Open(
		sqlite.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
			TranslateError:         true,
		},
	)
	if err != nil {
		return err
	}
	if d.config.maxConnections > 0 {
		sqlDB, err := metadataDb.DB()
		if err != nil {
			return err
		}
		sqlDB.SetMaxOpenConns(int(d.config.maxConnections)) //nolint:gosec
	}
	if err := d.Open(metadataDb, d.config.logger); err != nil {
		return err
	}
	d.timerMutex.Lock()
	d.closed = false
	d.timerMutex.Unlock()
	// Schedule daily database vacuum to free unused space
	d.scheduleDailyVacuum()
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStoreSqlite) Stop() error {
	return d.Close()
}

func (d *MetadataStoreSqlite) runVacuum() error {
	d.timerMutex.Lock()
	if d.config.dataDir == "" || d.closed {
		d.timerMutex.Unlock()
		return nil
	}
	// Track this vacuum operation while we know the store is open
	d.vacuumWG.Add(1)
	d.timerMutex.Unlock()
	defer d.vacuumWG.Done()
	if result := d.DB().Exec("VACUUM"); result.Error != nil {
		return result.Error
	}
	return nil
}

// scheduleDailyVacuum schedules a daily vacuum operation
func (d *MetadataStoreSqlite) scheduleDailyVacuum() {
	d.timerMutex.Lock()
	defer d.timerMutex.Unlock()
	if d.closed {
		return
	}
	if d.timerVacuum != nil {
		d.timerVacuum.Stop()
	}
	daily := time.Duration(24) * time.Hour
	f := func() {
		d.config.logger.Debug(
			"running vacuum on sqlite metadata database",
			"component", "database",
		)
		// schedule next run
		defer d.scheduleDailyVacuum()
		if err := d.runVacuum(); err != nil {
			d.config.logger.Error(
				"failed to free unused space in metadata store",
				"component", "database",
				"error", err,
			)
		}
	}
	d.timerVacuum = time.AfterFunc(daily, f)
}

// Close shuts down the database connection and stops background processes
func (d *MetadataStoreSqlite) Close() error {
	d.timerMutex.Lock()
	d.closed = true
	if d.timerVacuum != nil {
		d.timerVacuum.Stop()
		d.timerVacuum = nil
	}
	d.timerMutex.Unlock()
	// Wait for any in-flight vacuum operations to complete
	d.vacuumWG.Wait()
	return d.Store.Close()
}
