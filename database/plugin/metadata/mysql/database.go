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

package mysql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/condorcet/database/plugin/metadata/internal/gormstore"
	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// MySQL error number for an unknown database
const errUnknownDatabase = 1049

type MysqlOptionFunc = gormstore.ServerOptionFunc

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
	Port:            3306,
	User:            "root",
	Database:        "condorcet",
	TimeZone:        "UTC",
	MaxIdleConns:    10,
	MaxOpenConns:    100,
	ConnMaxLifetime: "1h",
}

// MetadataStoreMysql stores metadata in MySQL
type MetadataStoreMysql struct {
	gormstore.Store
	config gormstore.ServerConfig
}

// NewWithOptions creates the store. The connection is made by Start, which
// also creates the database when it does not exist yet.
func NewWithOptions(opts ...MysqlOptionFunc) (*MetadataStoreMysql, error) {
	var cfg gormstore.ServerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return newFromConfig(cfg), nil
}

func newFromConfig(cfg gormstore.ServerConfig) *MetadataStoreMysql {
	cfg.ApplyDefaults(defaultConfig)
	return &MetadataStoreMysql{config: cfg}
}

// DSN returns the connection string used by Start and the database name it
// selects
func (d *MetadataStoreMysql) DSN() (string, string) {
	if dsn := strings.TrimSpace(d.config.DSN); dsn != "" {
		dbName, _ := parseMysqlDatabaseFromDSN(dsn)
		return dsn, dbName
	}
	cfg := mysql.NewConfig()
	cfg.User = d.config.User
	cfg.Passwd = d.config.Password
	cfg.Net = "tcp"
	cfg.Addr = d.config.Host + ":" + strconv.FormatUint(d.config.Port, 10)
	cfg.DBName = d.config.Database
	cfg.ParseTime = true
	cfg.AllowNativePasswords = true
	if d.config.TimeZone != "" {
		loc, err := time.LoadLocation(d.config.TimeZone)
		if err != nil {
			loc = time.UTC
		}
		cfg.Loc = loc
	}
	if d.config.SSLMode != "" {
		cfg.TLSConfig = d.config.SSLMode
	}
	return cfg.FormatDSN(), d.config.Database
}

func (d *MetadataStoreMysql) open(dsn string) (*gorm.DB, error) {
	return gormstore.OpenServer(gormmysql.Open(dsn), d.config)
}

// Start implements the plugin.Plugin interface
func (d *MetadataStoreMysql) Start() error {
	dsn, dbName := d.DSN()
	metadataDb, err := d.open(dsn)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if !errors.As(err, &mysqlErr) || mysqlErr.Number != errUnknownDatabase {
			return err
		}
		created, createErr := d.ensureDatabaseExists(dsn, dbName)
		if createErr != nil {
			return fmt.Errorf("create database %q: %w", dbName, createErr)
		}
		if !created {
			return err
		}
		if metadataDb, err = d.open(dsn); err != nil {
			return err
		}
	}
	d.config.Logger.Info(
		"connected to mysql metadata store",
		"component", "database",
		"host", d.config.Host,
		"port", d.config.Port,
		"database", dbName,
	)
	return d.Open(metadataDb, d.config.Logger)
}

func (d *MetadataStoreMysql) ensureDatabaseExists(
	dsn string,
	dbName string,
) (bool, error) {
	if dbName == "" {
		return false, nil
	}
	adminDsn, ok := stripDatabaseFromDSN(dsn)
	if !ok {
		return false, nil
	}
	adminDb, err := d.open(adminDsn)
	if err != nil {
		return false, err
	}
	sqlAdminDb, err := adminDb.DB()
	if err != nil {
		return false, err
	}
	defer sqlAdminDb.Close()
	d.config.Logger.Info(
		"creating mysql database",
		"component", "database",
		"database", dbName,
	)
	if result := adminDb.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbName)); result.Error != nil {
		return false, result.Error
	}
	return true, nil
}

func parseMysqlDatabaseFromDSN(dsn string) (string, bool) {
	base, _, _ := strings.Cut(dsn, "?")
	slash := strings.LastIndex(base, "/")
	if slash < 0 || slash == len(base)-1 {
		return "", false
	}
	return base[slash+1:], true
}

func stripDatabaseFromDSN(dsn string) (string, bool) {
	base, params, hasParams := strings.Cut(dsn, "?")
	slash := strings.LastIndex(base, "/")
	if slash < 0 {
		return "", false
	}
	base = base[:slash+1]
	if !hasParams || params == "" {
		return base, true
	}
	return base + "?" + params, true
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStoreMysql) Stop() error {
	return d.Close()
}
