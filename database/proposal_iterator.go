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
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/blinklabs-io/condorcet/database/models"
	"github.com/blinklabs-io/condorcet/database/types"
	"github.com/blinklabs-io/condorcet/proposal"
)

// proposalIteratorBatchSize controls how many proposal keys are fetched per
// batch from the blob iterator
const proposalIteratorBatchSize = 256

// ProposalIterator walks the proposal records in the blob store in ID order.
// Keys are fetched in batches and each record is read on demand, so no
// blob transaction stays open between calls to Next.
type ProposalIterator struct {
	db      *Database
	startID uint64

	mu        sync.Mutex
	batch     [][]byte
	batchIdx  int
	exhausted bool
	closed    bool
	// resumeKey is the last key handed out, nil before the first batch
	resumeKey []byte
}

// ProposalsFrom returns an iterator over the proposals with an ID of at
// least startID
func (d *Database) ProposalsFrom(startID uint64) *ProposalIterator {
	return &ProposalIterator{
		db:      d,
		startID: startID,
	}
}

// Next returns the next proposal, or nil when iteration is complete
func (it *ProposalIterator) Next() (*proposal.Proposal, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.closed {
		return nil, nil
	}
	for {
		if it.batchIdx >= len(it.batch) {
			if it.exhausted {
				return nil, nil
			}
			if err := it.fetchBatch(); err != nil {
				return nil, err
			}
			if len(it.batch) == 0 {
				it.exhausted = true
				return nil, nil
			}
		}
		key := it.batch[it.batchIdx]
		it.batchIdx++
		id, err := types.ProposalIDFromBlobKey(key)
		if err != nil {
			it.db.logger.Warn(
				"proposal iterator: skipping unparseable key",
				"component", "database",
				"error", err,
			)
			continue
		}
		p, err := it.db.GetProposal(id, nil)
		if err != nil {
			if errors.Is(err, models.ErrProposalNotFound) {
				continue
			}
			return nil, err
		}
		return p, nil
	}
}

// Close releases the iterator. It is safe to call Close multiple times.
func (it *ProposalIterator) Close() {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.closed = true
	it.batch = nil
	it.resumeKey = nil
}

// fetchBatch must be called with it.mu held
func (it *ProposalIterator) fetchBatch() error {
	blob := it.db.Blob()
	if blob == nil {
		return types.ErrBlobStoreUnavailable
	}
	txn := blob.NewTransaction(false)
	defer txn.Rollback() //nolint:errcheck
	prefix := []byte(types.ProposalBlobKeyPrefix)
	blobIter := blob.NewIterator(
		txn,
		types.BlobIteratorOptions{Prefix: prefix},
	)
	if blobIter == nil {
		return errors.New("blob iterator is nil")
	}
	defer blobIter.Close()
	seekKey := it.resumeKey
	if seekKey == nil {
		seekKey = types.ProposalBlobKey(it.startID)
	}
	resuming := it.resumeKey != nil
	batch := make([][]byte, 0, proposalIteratorBatchSize)
	for blobIter.Seek(seekKey); blobIter.ValidForPrefix(prefix); blobIter.Next() {
		item := blobIter.Item()
		if item == nil {
			continue
		}
		key := item.Key()
		if resuming {
			resuming = false
			if bytes.Equal(key, it.resumeKey) {
				continue
			}
		}
		batch = append(batch, bytes.Clone(key))
		if len(batch) >= proposalIteratorBatchSize {
			break
		}
	}
	if err := blobIter.Err(); err != nil {
		return fmt.Errorf("scanning proposal keys: %w", err)
	}
	it.batch = batch
	it.batchIdx = 0
	if len(batch) > 0 {
		it.resumeKey = batch[len(batch)-1]
	}
	if len(batch) < proposalIteratorBatchSize {
		it.exhausted = true
	}
	return nil
}

// RebuildProposalIndex rewrites the metadata index row of every proposal in
// the blob store and returns the number of proposals indexed
func (d *Database) RebuildProposalIndex() (int, error) {
	it := d.ProposalsFrom(0)
	defer it.Close()
	count := 0
	for {
		p, err := it.Next()
		if err != nil {
			return count, err
		}
		if p == nil {
			break
		}
		if err := d.metadata.SetProposal(models.ProposalFromDomain(p), nil); err != nil {
			return count, fmt.Errorf("index proposal %d: %w", p.ID, err)
		}
		count++
	}
	d.logger.Info(
		"rebuilt proposal index",
		"component", "database",
		"proposals", count,
	)
	return count, nil
}
