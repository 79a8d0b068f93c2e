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

package postgres

import (
	"strconv"
	"strings"

	"github.com/blinklabs-io/condorcet/database/plugin/metadata/internal/gormstore"
	"gorm.io/driver/postgres"
)

type PostgresOptionFunc = gormstore.ServerOptionFunc

var (
	WithLogger       = gormstore.WithLogger
	WithPromRegistry = gormstore.WithPromRegistry
	WithHost         = gormstore.WithHost
	WithPort         = gormstore.WithPort
	WithUser         = gormstore.WithUser
	WithPassword     = gormstore.WithPassword
	WithDatabase     = gormstore.WithDatabase
	WithSSLMode      = gormstore.WithSSLMode
	WithTimeZone     = gormstore.WithTimeZone
	WithDSN          = gormstore.WithDSN
	WithMaxOpenConns = gormstore.WithMaxOpenConns
)

var defaultConfig = gormstore.ServerConfig{
	Host:            "localhost",
	Port:            5432,
	User:            "postgres",
	Database:        "condorcet",
	SSLMode:         "disable",
	TimeZone:        "UTC",
	MaxIdleConns:    10,
	MaxOpenConns:    100,
	ConnMaxLifetime: "1h",
}

// MetadataStorePostgres stores metadata in Postgres
type MetadataStorePostgres struct {
	gormstore.Store
	config gormstore.ServerConfig
}

// NewWithOptions creates the store. The connection is made by Start.
func NewWithOptions(opts ...PostgresOptionFunc) (*MetadataStorePostgres, error) {
	var cfg gormstore.ServerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return newFromConfig(cfg), nil
}

func newFromConfig(cfg gormstore.ServerConfig) *MetadataStorePostgres {
	cfg.ApplyDefaults(defaultConfig)
	return &MetadataStorePostgres{config: cfg}
}

// DSN returns the connection string used by Start
func (d *MetadataStorePostgres) DSN() string {
	if dsn := strings.TrimSpace(d.config.DSN); dsn != "" {
		return dsn
	}
	parts := []string{
		"host=" + d.config.Host,
		"user=" + d.config.User,
		"password=" + d.config.Password,
		"dbname=" + d.config.Database,
		"port=" + strconv.FormatUint(d.config.Port, 10),
		"sslmode=" + d.config.SSLMode,
	}
	if d.config.TimeZone != "" {
		parts = append(parts, "TimeZone="+d.config.TimeZone)
	}
	return strings.Join(parts, " ")
}

// Start implements the plugin.Plugin interface
func (d *MetadataStorePostgres) Start() error {
	metadataDb, err := gormstore.OpenServer(postgres.Open(d.DSN()), d.config)
	if err != nil {
		return err
	}
	d.config.Logger.Info(
		"connected to postgres metadata store",
		"component", "database",
		"host", d.config.Host,
		"port", d.config.Port,
		"database", d.config.Database,
	)
	return d.Open(metadataDb, d.config.Logger)
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStorePostgres) Stop() error {
	return d.Close()
}
