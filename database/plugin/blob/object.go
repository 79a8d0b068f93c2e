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

package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/blinklabs-io/condorcet/database/sops"
	"github.com/blinklabs-io/condorcet/database/types"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultObjectTimeout = 60 * time.Second

// ObjectClient is the minimal set of object storage calls needed to back a
// BlobStore. GetObject must return types.ErrBlobKeyNotFound for missing keys.
type ObjectClient interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key string, data []byte) error
	DeleteObject(ctx context.Context, key string) error
	// ListObjects returns every key beginning with prefix
	ListObjects(ctx context.Context, prefix string) ([]string, error)
}

// ObjectStoreConfig configures an ObjectStore
type ObjectStoreConfig struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	Name         string
	Timeout      time.Duration
	// Encrypt stores every value as a SOPS document
	Encrypt bool
}

// ObjectStore implements BlobStore on top of a bucket-style object store.
//
// Writes are buffered in the transaction and applied on commit, with the
// commit timestamp written last. A failed commit can leave some objects
// written, which the commit timestamp check in the database layer detects.
type ObjectStore struct {
	client  ObjectClient
	logger  *slog.Logger
	metrics *Metrics
	name    string
	timeout time.Duration
	encrypt bool
}

func NewObjectStore(client ObjectClient, cfg ObjectStoreConfig) *ObjectStore {
	s := &ObjectStore{
		client:  client,
		logger:  cfg.Logger,
		name:    cfg.Name,
		timeout: cfg.Timeout,
		encrypt: cfg.Encrypt,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if s.timeout == 0 {
		s.timeout = defaultObjectTimeout
	}
	if cfg.PromRegistry != nil {
		s.metrics = NewMetrics(cfg.PromRegistry, cfg.Name)
	}
	return s
}

func (s *ObjectStore) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// objectTxn buffers writes until commit. A nil value marks a delete.
type objectTxn struct {
	store     *ObjectStore
	pending   map[string][]byte
	mu        sync.Mutex
	readWrite bool
	finished  bool
}

func (t *objectTxn) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return nil
	}
	t.finished = true
	if !t.readWrite || len(t.pending) == 0 {
		return nil
	}
	keys := make([]string, 0, len(t.pending))
	for key := range t.pending {
		if key != types.CommitTimestampBlobKey {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	if _, ok := t.pending[types.CommitTimestampBlobKey]; ok {
		keys = append(keys, types.CommitTimestampBlobKey)
	}
	ctx, cancel := t.store.opContext()
	defer cancel()
	for _, key := range keys {
		val := t.pending[key]
		if val == nil {
			if err := t.store.client.DeleteObject(ctx, key); err != nil &&
				!errors.Is(err, types.ErrBlobKeyNotFound) {
				return fmt.Errorf("%s blob: delete %q: %w", t.store.name, key, err)
			}
			t.store.metrics.RecordDelete()
			continue
		}
		data := val
		if t.store.encrypt {
			var err error
			data, err = sops.Encrypt(val)
			if err != nil {
				return fmt.Errorf("%s blob: encrypt %q: %w", t.store.name, key, err)
			}
		}
		if err := t.store.client.PutObject(ctx, key, data); err != nil {
			return fmt.Errorf("%s blob: put %q: %w", t.store.name, key, err)
		}
		t.store.metrics.RecordWrite(len(data))
	}
	t.pending = nil
	return nil
}

func (t *objectTxn) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finished = true
	t.pending = nil
	return nil
}

// lookup returns a buffered value and whether the key has a buffered entry
func (t *objectTxn) lookup(key string) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	val, ok := t.pending[key]
	return val, ok
}

func (t *objectTxn) stage(key string, val []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		t.pending = make(map[string][]byte)
	}
	t.pending[key] = val
}

func (s *ObjectStore) NewTransaction(readWrite bool) types.Txn {
	return &objectTxn{store: s, readWrite: readWrite}
}

func (s *ObjectStore) validateTxn(txn types.Txn) (*objectTxn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	t, ok := txn.(*objectTxn)
	if !ok || t.store != s {
		return nil, types.ErrTxnWrongType
	}
	t.mu.Lock()
	finished := t.finished
	t.mu.Unlock()
	if finished {
		return nil, types.ErrTxnFinished
	}
	if s.client == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	return t, nil
}

func (s *ObjectStore) Get(txn types.Txn, key []byte) ([]byte, error) {
	t, err := s.validateTxn(txn)
	if err != nil {
		return nil, err
	}
	if val, ok := t.lookup(string(key)); ok {
		if val == nil {
			return nil, types.ErrBlobKeyNotFound
		}
		return slices.Clone(val), nil
	}
	return s.fetch(string(key))
}

func (s *ObjectStore) fetch(key string) ([]byte, error) {
	ctx, cancel := s.opContext()
	defer cancel()
	data, err := s.client.GetObject(ctx, key)
	if err != nil {
		if !errors.Is(err, types.ErrBlobKeyNotFound) {
			s.logger.Error(
				fmt.Sprintf("%s get %q failed: %s", s.name, key, err),
				"component", "database",
			)
		}
		return nil, err
	}
	s.metrics.RecordRead(len(data))
	if !s.encrypt {
		return data, nil
	}
	plaintext, err := sops.Decrypt(data)
	if err != nil {
		return nil, fmt.Errorf("%s blob: decrypt %q: %w", s.name, key, err)
	}
	return plaintext, nil
}

func (s *ObjectStore) Set(txn types.Txn, key, val []byte) error {
	t, err := s.validateTxn(txn)
	if err != nil {
		return err
	}
	if !t.readWrite {
		return types.ErrReadOnlyTxn
	}
	if val == nil {
		val = []byte{}
	}
	t.stage(string(key), slices.Clone(val))
	return nil
}

func (s *ObjectStore) Delete(txn types.Txn, key []byte) error {
	t, err := s.validateTxn(txn)
	if err != nil {
		return err
	}
	if !t.readWrite {
		return types.ErrReadOnlyTxn
	}
	t.stage(string(key), nil)
	return nil
}

// NewIterator lists the matching keys up front. Values are fetched when
// an item is read and reflect writes buffered in the transaction.
func (s *ObjectStore) NewIterator(
	txn types.Txn,
	opts types.BlobIteratorOptions,
) types.BlobIterator {
	t, err := s.validateTxn(txn)
	if err != nil {
		return &objectIterator{err: err}
	}
	ctx, cancel := s.opContext()
	defer cancel()
	prefix := string(opts.Prefix)
	listed, err := s.client.ListObjects(ctx, prefix)
	if err != nil {
		s.logger.Error(
			fmt.Sprintf("%s list failed: %s", s.name, err),
			"component", "database",
		)
		return &objectIterator{err: err}
	}
	keySet := make(map[string]struct{}, len(listed))
	for _, key := range listed {
		keySet[key] = struct{}{}
	}
	t.mu.Lock()
	for key, val := range t.pending {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if val == nil {
			delete(keySet, key)
		} else {
			keySet[key] = struct{}{}
		}
	}
	t.mu.Unlock()
	keys := make([]string, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	if opts.Reverse {
		slices.Reverse(keys)
	}
	return &objectIterator{
		store:   s,
		txn:     txn,
		keys:    keys,
		reverse: opts.Reverse,
	}
}

func (s *ObjectStore) GetCommitTimestamp() (int64, error) {
	txn := s.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	val, err := s.Get(txn, []byte(types.CommitTimestampBlobKey))
	if err != nil {
		return 0, err
	}
	return new(big.Int).SetBytes(val).Int64(), nil
}

func (s *ObjectStore) SetCommitTimestamp(timestamp int64, txn types.Txn) error {
	raw := new(big.Int).SetInt64(timestamp).Bytes()
	return s.Set(txn, []byte(types.CommitTimestampBlobKey), raw)
}

type objectIterator struct {
	store   *ObjectStore
	txn     types.Txn
	err     error
	keys    []string
	idx     int
	reverse bool
}

func (it *objectIterator) Rewind() {
	it.idx = 0
}

func (it *objectIterator) Seek(prefix []byte) {
	target := string(prefix)
	it.idx = len(it.keys)
	for i, key := range it.keys {
		if (!it.reverse && key >= target) || (it.reverse && key <= target) {
			it.idx = i
			return
		}
	}
}

func (it *objectIterator) Valid() bool {
	return it.err == nil && it.idx < len(it.keys)
}

func (it *objectIterator) ValidForPrefix(prefix []byte) bool {
	return it.Valid() && strings.HasPrefix(it.keys[it.idx], string(prefix))
}

func (it *objectIterator) Next() {
	if it.idx < len(it.keys) {
		it.idx++
	}
}

func (it *objectIterator) Item() types.BlobItem {
	if !it.Valid() {
		return nil
	}
	return &objectItem{store: it.store, txn: it.txn, key: it.keys[it.idx]}
}

func (it *objectIterator) Close() {}

func (it *objectIterator) Err() error {
	return it.err
}

type objectItem struct {
	store *ObjectStore
	txn   types.Txn
	key   string
}

func (i *objectItem) Key() []byte {
	return []byte(i.key)
}

func (i *objectItem) ValueCopy(dst []byte) ([]byte, error) {
	data, err := i.store.Get(i.txn, []byte(i.key))
	if err != nil {
		return nil, err
	}
	return append(dst[:0], data...), nil
}
