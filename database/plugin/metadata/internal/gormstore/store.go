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

// Package gormstore implements the metadata store on top of gorm. The
// database specific plugins open a connection and embed Store.
package gormstore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/condorcet/database/models"
	"github.com/blinklabs-io/condorcet/database/types"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

// gormTxn wraps a gorm transaction and implements types.Txn
type gormTxn struct {
	db       *gorm.DB
	beginErr error
	finished bool
}

func (t *gormTxn) Commit() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	t.finished = true
	if result := t.db.Commit(); result.Error != nil {
		return result.Error
	}
	return nil
}

func (t *gormTxn) Rollback() error {
	if t.beginErr != nil {
		return t.beginErr
	}
	if t.finished {
		return nil
	}
	t.finished = true
	if result := t.db.Rollback(); result.Error != nil {
		return result.Error
	}
	return nil
}

// Store holds the gorm handle shared by the metadata plugins
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open attaches the gorm handle, installs tracing and creates the table
// schemas
func (s *Store) Open(db *gorm.DB, logger *slog.Logger) error {
	if logger == nil {
		// Create logger to throw away logs
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s.db = db
	s.logger = logger
	// Configure tracing for GORM
	if err := s.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}
	for _, model := range models.MigrateModels {
		s.logger.Debug(
			"migrating table",
			"component", "database",
			"model", fmt.Sprintf("%T", model),
		)
		if err := s.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	return nil
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	s.db = nil
	return sqlDB.Close()
}

// DB returns the underlying GORM database handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// AutoMigrate creates or updates database schema for the given models
func (s *Store) AutoMigrate(dst ...any) error {
	if s.db == nil {
		return types.ErrNoStoreAvailable
	}
	return s.db.AutoMigrate(dst...)
}

// Transaction begins a new transaction. A failure to begin is reported by
// Commit and Rollback on the returned handle.
func (s *Store) Transaction() types.Txn {
	txn, err := s.BeginTxn()
	if err != nil {
		s.logger.Error(
			"failed to begin transaction",
			"component", "database",
			"error", err,
		)
	}
	return txn
}

// BeginTxn starts a transaction and returns the handle with an error
func (s *Store) BeginTxn() (types.Txn, error) {
	if s.db == nil {
		return &gormTxn{beginErr: types.ErrNoStoreAvailable}, types.ErrNoStoreAvailable
	}
	db := s.db.Begin()
	if db.Error != nil {
		return &gormTxn{beginErr: db.Error}, db.Error
	}
	return &gormTxn{db: db}, nil
}

// ResolveDB returns the gorm handle for a transaction, or the base handle
// when txn is nil
func (s *Store) ResolveDB(txn types.Txn) (*gorm.DB, error) {
	if s.db == nil {
		return nil, types.ErrNoStoreAvailable
	}
	if txn == nil {
		return s.db, nil
	}
	gTxn, ok := txn.(*gormTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	if gTxn.beginErr != nil {
		return nil, gTxn.beginErr
	}
	if gTxn.finished {
		return nil, types.ErrTxnFinished
	}
	if gTxn.db == nil {
		return nil, errors.New("transaction has no database handle")
	}
	return gTxn.db, nil
}
