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

package gormstore

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/condorcet/database/plugin"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ServerConfig holds the connection settings shared by the plugins that talk
// to a database server
type ServerConfig struct {
	Host         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	TimeZone     string
	DSN          string
	Port         uint64
	MaxIdleConns uint64
	MaxOpenConns uint64
	// ConnMaxLifetime is a Go duration string
	ConnMaxLifetime string
	Logger          *slog.Logger
	PromRegistry    prometheus.Registerer
}

// ApplyDefaults fills the unset fields from defaults
func (c *ServerConfig) ApplyDefaults(defaults ServerConfig) {
	setDefault := func(dest *string, value string) {
		if *dest == "" {
			*dest = value
		}
	}
	setDefault(&c.Host, defaults.Host)
	setDefault(&c.User, defaults.User)
	setDefault(&c.Database, defaults.Database)
	setDefault(&c.SSLMode, defaults.SSLMode)
	setDefault(&c.TimeZone, defaults.TimeZone)
	setDefault(&c.ConnMaxLifetime, defaults.ConnMaxLifetime)
	if c.Port == 0 {
		c.Port = defaults.Port
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = defaults.MaxIdleConns
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = defaults.MaxOpenConns
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
}

// PluginOptions describes the connection settings as plugin options writing
// into c. The current values of c are the option defaults.
func (c *ServerConfig) PluginOptions(engine string) []plugin.PluginOption {
	stringOpt := func(name, desc string, dest *string) plugin.PluginOption {
		return plugin.PluginOption{
			Name:         name,
			Type:         plugin.PluginOptionTypeString,
			Description:  engine + " " + desc,
			DefaultValue: *dest,
			Dest:         dest,
		}
	}
	uintOpt := func(name, desc string, dest *uint64) plugin.PluginOption {
		return plugin.PluginOption{
			Name:         name,
			Type:         plugin.PluginOptionTypeUint,
			Description:  engine + " " + desc,
			DefaultValue: *dest,
			Dest:         dest,
		}
	}
	return []plugin.PluginOption{
		stringOpt("host", "host", &c.Host),
		uintOpt("port", "port", &c.Port),
		stringOpt("user", "user", &c.User),
		stringOpt("password", "password", &c.Password),
		stringOpt("database", "database name", &c.Database),
		stringOpt("ssl-mode", "TLS mode", &c.SSLMode),
		stringOpt("timezone", "time zone", &c.TimeZone),
		stringOpt("dsn", "DSN, overrides the other connection options when set", &c.DSN),
		uintOpt("max-idle-conns", "idle connection pool size", &c.MaxIdleConns),
		uintOpt("max-open-conns", "maximum open connections", &c.MaxOpenConns),
		stringOpt("conn-max-lifetime", "maximum connection lifetime", &c.ConnMaxLifetime),
	}
}

// OpenServer opens a gorm handle and sizes its connection pool
func OpenServer(dialector gorm.Dialector, cfg ServerConfig) (*gorm.DB, error) {
	db, err := gorm.Open(
		dialector,
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
			PrepareStmt:            true,
			TranslateError:         true,
		},
	)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	lifetime := time.Hour
	if cfg.ConnMaxLifetime != "" {
		lifetime, err = time.ParseDuration(cfg.ConnMaxLifetime)
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("invalid conn-max-lifetime: %w", err)
		}
	}
	//nolint:gosec
	sqlDB.SetMaxIdleConns(int(cfg.MaxIdleConns))
	//nolint:gosec
	sqlDB.SetMaxOpenConns(int(cfg.MaxOpenConns))
	sqlDB.SetConnMaxLifetime(lifetime)
	return db, nil
}

type ServerOptionFunc func(*ServerConfig)

func WithLogger(logger *slog.Logger) ServerOptionFunc {
	return func(c *ServerConfig) {
		c.Logger = logger
	}
}

func WithPromRegistry(registry prometheus.Registerer) ServerOptionFunc {
	return func(c *ServerConfig) {
		c.PromRegistry = registry
	}
}

func WithHost(host string) ServerOptionFunc {
	return func(c *ServerConfig) {
		c.Host = host
	}
}

func WithPort(port uint) ServerOptionFunc {
	return func(c *ServerConfig) {
		c.Port = uint64(port)
	}
}

func WithUser(user string) ServerOptionFunc {
	return func(c *ServerConfig) {
		c.User = user
	}
}

func WithPassword(password string) ServerOptionFunc {
	return func(c *ServerConfig) {
		c.Password = password
	}
}

func WithDatabase(database string) ServerOptionFunc {
	return func(c *ServerConfig) {
		c.Database = database
	}
}

// WithSSLMode sets the TLS mode. Postgres takes an sslmode value, MySQL the
// name of a TLS config.
func WithSSLMode(sslMode string) ServerOptionFunc {
	return func(c *ServerConfig) {
		c.SSLMode = sslMode
	}
}

func WithTimeZone(timeZone string) ServerOptionFunc {
	return func(c *ServerConfig) {
		c.TimeZone = timeZone
	}
}

// WithDSN sets a full connection string, which takes precedence over the
// individual connection options
func WithDSN(dsn string) ServerOptionFunc {
	return func(c *ServerConfig) {
		c.DSN = dsn
	}
}

func WithMaxOpenConns(maxConns uint) ServerOptionFunc {
	return func(c *ServerConfig) {
		c.MaxOpenConns = uint64(maxConns)
	}
}
