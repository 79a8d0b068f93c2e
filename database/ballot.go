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
	"fmt"

	"github.com/blinklabs-io/condorcet/database/models"
	"github.com/blinklabs-io/condorcet/database/types"
	"github.com/blinklabs-io/condorcet/tally"
)

// AddBallot records a voter's ballot. A second ballot from the same voter on
// the same proposal returns models.ErrBallotExists.
func (d *Database) AddBallot(
	proposalID uint64,
	voter string,
	ranking []uint32,
	power tally.Amount,
	height uint64,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.MetadataTxn(true)
		owned = true
		defer func() {
			if owned {
				txn.Rollback() //nolint:errcheck
			}
		}()
	}
	ballot := &models.Ballot{
		ProposalID: proposalID,
		Voter:      voter,
		Ranking:    types.Ranking(ranking),
		Power:      power,
		Height:     height,
	}
	if err := d.metadata.AddBallot(ballot, txn.Metadata()); err != nil {
		return fmt.Errorf("add ballot: %w", err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		owned = false
	}
	return nil
}

// HasVoted reports whether the voter already has a ballot on the proposal
func (d *Database) HasVoted(
	proposalID uint64,
	voter string,
	txn *Txn,
) (bool, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	ballot, err := d.metadata.GetBallot(proposalID, voter, txn.Metadata())
	if err != nil {
		return false, fmt.Errorf("get ballot: %w", err)
	}
	return ballot != nil, nil
}

// GetBallots returns the ballots cast on a proposal in the order they were
// recorded
func (d *Database) GetBallots(
	proposalID uint64,
	txn *Txn,
) ([]models.Ballot, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	ret, err := d.metadata.GetBallots(proposalID, txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("get ballots: %w", err)
	}
	return ret, nil
}
