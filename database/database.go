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

package database

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/condorcet/database/plugin"
	"github.com/blinklabs-io/condorcet/database/plugin/blob"
	"github.com/blinklabs-io/condorcet/database/plugin/metadata"
	"github.com/prometheus/client_golang/prometheus"

	// Register plugins
	_ "github.com/blinklabs-io/condorcet/database/plugin/blob/aws"
	_ "github.com/blinklabs-io/condorcet/database/plugin/blob/badger"
	_ "github.com/blinklabs-io/condorcet/database/plugin/blob/gcs"
	_ "github.com/blinklabs-io/condorcet/database/plugin/metadata/mysql"
	_ "github.com/blinklabs-io/condorcet/database/plugin/metadata/postgres"
	_ "github.com/blinklabs-io/condorcet/database/plugin/metadata/sqlite"
)

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

// Config selects and configures the storage plugins
type Config struct {
	PromRegistry   prometheus.Registerer
	Logger         *slog.Logger
	BlobPlugin     string
	MetadataPlugin string
	// DataDir is handed to plugins that take a data-dir option. An empty
	// value keeps those plugins in memory.
	DataDir string
}

// Database coordinates the blob store, which holds the full proposal
// records, and the metadata store, which holds the queryable index,
// ballots and voting power checkpoints
type Database struct {
	logger   *slog.Logger
	blob     blob.BlobStore
	metadata metadata.MetadataStore
	config   *Config
}

// Blob returns the underling blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// Config returns the config object used for the database instance
func (d *Database) Config() *Config {
	return d.config
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.config.DataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return newTxn(d, readWrite, scopeBoth)
}

// BlobTxn starts a new blob-only database transaction and returns a handle to it
func (d *Database) BlobTxn(readWrite bool) *Txn {
	return newTxn(d, readWrite, scopeBlob)
}

// MetadataTxn starts a new metadata-only database transaction and returns a handle to it
func (d *Database) MetadataTxn(readWrite bool) *Txn {
	return newTxn(d, readWrite, scopeMetadata)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

func (d *Database) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	// Check commit timestamp
	if err := d.checkCommitTimestamp(); err != nil {
		return err
	}
	return nil
}

// New creates a new database instance from the selected plugins. Plugin
// options that are not covered by Config are taken from the plugin
// registry, which is populated from flags, environment and config file.
func New(config *Config) (*Database, error) {
	if config == nil {
		config = &Config{}
	}
	if config.BlobPlugin == "" {
		config.BlobPlugin = DefaultBlobPlugin
	}
	if config.MetadataPlugin == "" {
		config.MetadataPlugin = DefaultMetadataPlugin
	}
	if config.Logger != nil {
		plugin.SetLogger(config.Logger)
	}
	if config.PromRegistry != nil {
		plugin.SetPromRegistry(config.PromRegistry)
	}
	for _, tmp := range []struct {
		pluginType plugin.PluginType
		name       string
	}{
		{plugin.PluginTypeBlob, config.BlobPlugin},
		{plugin.PluginTypeMetadata, config.MetadataPlugin},
	} {
		if err := plugin.SetPluginOption(tmp.pluginType, tmp.name, "data-dir", config.DataDir); err != nil {
			return nil, err
		}
	}
	metadataDb, err := metadata.New(config.MetadataPlugin)
	if err != nil {
		return nil, err
	}
	blobDb, err := blob.New(config.BlobPlugin)
	if err != nil {
		_ = metadataDb.Close()
		return nil, err
	}
	db := &Database{
		logger:   config.Logger,
		blob:     blobDb,
		metadata: metadataDb,
		config:   config,
	}
	if err := db.init(); err != nil {
		// Database is available for recovery, so return it with error
		return db, fmt.Errorf("database init: %w", err)
	}
	return db, nil
}
