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

	"github.com/blinklabs-io/condorcet/database/models"
	"github.com/blinklabs-io/condorcet/database/types"
	"github.com/blinklabs-io/condorcet/proposal"
	"github.com/fxamacker/cbor/v2"
)

var (
	proposalEncMode cbor.EncMode
	proposalDecMode cbor.DecMode
)

func init() {
	var err error
	proposalEncMode, err = cbor.EncOptions{
		Time: cbor.TimeRFC3339Nano,
		Sort: cbor.SortCoreDeterministic,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	proposalDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
}

func encodeProposal(p *proposal.Proposal) ([]byte, error) {
	return proposalEncMode.Marshal(p)
}

func decodeProposal(data []byte) (*proposal.Proposal, error) {
	var ret proposal.Proposal
	if err := proposalDecMode.Unmarshal(data, &ret); err != nil {
		return nil, err
	}
	if ret.Tally == nil {
		return nil, errors.New("proposal record has no tally")
	}
	return &ret, nil
}

// SetProposal writes the full proposal record to the blob store and
// updates its row in the metadata index
func (d *Database) SetProposal(p *proposal.Proposal, txn *Txn) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer func() {
			if owned {
				txn.Rollback() //nolint:errcheck
			}
		}()
	}
	data, err := encodeProposal(p)
	if err != nil {
		return fmt.Errorf("encode proposal %d: %w", p.ID, err)
	}
	if err := d.blob.Set(txn.Blob(), types.ProposalBlobKey(p.ID), data); err != nil {
		return fmt.Errorf("set proposal %d blob: %w", p.ID, err)
	}
	if err := d.metadata.SetProposal(models.ProposalFromDomain(p), txn.Metadata()); err != nil {
		return fmt.Errorf("set proposal %d index: %w", p.ID, err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		owned = false
	}
	return nil
}

// GetProposal returns the full proposal record
func (d *Database) GetProposal(id uint64, txn *Txn) (*proposal.Proposal, error) {
	if txn == nil {
		txn = d.BlobTxn(false)
		defer txn.Release()
	}
	data, err := d.blob.Get(txn.Blob(), types.ProposalBlobKey(id))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return nil, fmt.Errorf("%w: %d", models.ErrProposalNotFound, id)
		}
		return nil, fmt.Errorf("get proposal %d: %w", id, err)
	}
	p, err := decodeProposal(data)
	if err != nil {
		return nil, fmt.Errorf("decode proposal %d: %w", id, err)
	}
	return p, nil
}

// GetProposals returns the proposals matching the filter, in ID order
func (d *Database) GetProposals(
	filter models.ProposalFilter,
	txn *Txn,
) ([]*proposal.Proposal, error) {
	if txn == nil {
		txn = d.Transaction(false)
		defer txn.Release()
	}
	rows, err := d.metadata.GetProposals(filter, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("query proposal index: %w", err)
	}
	ret := make([]*proposal.Proposal, 0, len(rows))
	for _, row := range rows {
		p, err := d.GetProposal(row.ID, txn)
		if err != nil {
			return nil, err
		}
		ret = append(ret, p)
	}
	return ret, nil
}

// NextProposalID returns the ID to assign to a new proposal. IDs start at 1.
func (d *Database) NextProposalID(txn *Txn) (uint64, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	maxID, err := d.metadata.GetMaxProposalID(txn.Metadata())
	if err != nil {
		return 0, fmt.Errorf("get max proposal id: %w", err)
	}
	return maxID + 1, nil
}
