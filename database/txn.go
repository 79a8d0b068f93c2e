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
	"sync"
	"time"

	"github.com/blinklabs-io/condorcet/database/types"
)

type txnScope uint8

const (
	scopeBoth txnScope = iota
	scopeBlob
	scopeMetadata
)

// ErrPartialCommit is returned when the blob store committed but the metadata
// store did not. The mismatched commit timestamps are repaired on next start.
var ErrPartialCommit = errors.New("partial commit")

// Txn spans the blob and metadata stores. A read-write Txn that touches both
// stamps them with the same commit timestamp, so a crash between the two
// commits is detected on the next start.
type Txn struct {
	db        *Database
	blob      types.Txn
	metadata  types.Txn
	hooks     []func()
	mu        sync.Mutex
	done      bool
	readWrite bool
}

func newTxn(db *Database, readWrite bool, scope txnScope) *Txn {
	t := &Txn{db: db, readWrite: readWrite}
	if b := db.Blob(); b != nil && scope != scopeMetadata {
		t.blob = b.NewTransaction(readWrite)
	}
	if m := db.Metadata(); m != nil && scope != scopeBlob {
		t.metadata = m.Transaction()
	}
	return t
}

func (t *Txn) Metadata() types.Txn {
	return t.metadata
}

func (t *Txn) Blob() types.Txn {
	return t.blob
}

// OnCommit registers fn to run after a successful commit. Hooks are dropped
// on rollback.
func (t *Txn) OnCommit(fn func()) {
	t.mu.Lock()
	t.hooks = append(t.hooks, fn)
	t.mu.Unlock()
}

// Do runs fn and commits, or rolls back if fn returns an error
func (t *Txn) Do(fn func(*Txn) error) error {
	fnErr := fn(t)
	if fnErr == nil {
		if err := t.Commit(); err != nil {
			return fmt.Errorf("commit failed: %w", err)
		}
		return nil
	}
	if err := t.Rollback(); err != nil {
		return fmt.Errorf(
			"rollback failed: %w: original error: %w",
			err,
			fnErr,
		)
	}
	return fnErr
}

// Commit writes both stores and then runs the registered hooks in order.
// Committing a finished or read-only Txn is a no-op apart from the release.
func (t *Txn) Commit() error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return nil
	}
	var err error
	if t.readWrite {
		err = t.commitStores()
	} else {
		err = t.discard()
	}
	t.done = true
	hooks := t.hooks
	t.hooks = nil
	t.mu.Unlock()
	if err != nil {
		return err
	}
	for _, hook := range hooks {
		hook()
	}
	return nil
}

func (t *Txn) commitStores() error {
	switch {
	case t.blob == nil && t.metadata == nil:
		return types.ErrNoStoreAvailable
	case t.blob != nil && t.metadata != nil:
		if err := t.db.updateCommitTimestamp(t, time.Now().UnixMilli()); err != nil {
			_ = t.discard()
			return fmt.Errorf("failed to update commit timestamp: %w", err)
		}
	}
	// Blob first: a failure here leaves the metadata untouched
	if t.blob != nil {
		if err := t.blob.Commit(); err != nil {
			if t.metadata != nil {
				_ = t.metadata.Rollback()
			}
			return fmt.Errorf("blob commit failed: %w", err)
		}
	}
	if t.metadata == nil {
		return nil
	}
	if err := t.metadata.Commit(); err != nil {
		t.db.logger.Error(
			"metadata commit failed after blob commit",
			"component", "database",
			"error", err,
		)
		_ = t.metadata.Rollback()
		return fmt.Errorf("%w: metadata: %w", ErrPartialCommit, err)
	}
	return nil
}

// discard rolls back whichever store transactions are open
func (t *Txn) discard() error {
	var errs []error
	if t.blob != nil {
		if err := t.blob.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("blob rollback: %w", err))
		}
	}
	if t.metadata != nil {
		if err := t.metadata.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("metadata rollback: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (t *Txn) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = nil
	if t.done {
		return nil
	}
	t.done = true
	return t.discard()
}

// Release discards the transaction, logging rather than returning any error.
// It is meant for defer.
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"component", "database",
			"error", err,
		)
	}
}
