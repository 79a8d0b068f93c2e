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
	"github.com/blinklabs-io/condorcet/tally"
)

// SetVotingPower checkpoints an address's voting power at a height and
// moves the total power checkpoint at that height by the difference.
// Checkpoints are expected to be written in height order.
func (d *Database) SetVotingPower(
	address string,
	height uint64,
	power tally.Amount,
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
	prevPower, err := d.GetVotingPower(address, height, txn)
	if err != nil {
		return err
	}
	prevTotal, err := d.GetTotalPower(height, txn)
	if err != nil {
		return err
	}
	newTotal, err := prevTotal.CheckedSub(prevPower)
	if err != nil {
		return fmt.Errorf("total power below address power: %w", err)
	}
	newTotal, err = newTotal.CheckedAdd(power)
	if err != nil {
		return fmt.Errorf("total power: %w", err)
	}
	if err := d.metadata.SetVotingPower(
		&models.VotingPower{
			Address: address,
			Height:  height,
			Power:   power,
		},
		txn.Metadata(),
	); err != nil {
		return fmt.Errorf("set voting power: %w", err)
	}
	if err := d.metadata.SetTotalPower(
		&models.TotalPower{
			Height: height,
			Power:  newTotal,
		},
		txn.Metadata(),
	); err != nil {
		return fmt.Errorf("set total power: %w", err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		owned = false
	}
	return nil
}

// GetVotingPower returns an address's voting power at a height. Addresses
// without a checkpoint at or below the height have no power.
func (d *Database) GetVotingPower(
	address string,
	height uint64,
	txn *Txn,
) (tally.Amount, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	ret, err := d.metadata.GetVotingPower(address, height, txn.Metadata())
	if err != nil {
		return tally.Amount{}, fmt.Errorf("get voting power: %w", err)
	}
	if ret == nil {
		return tally.Amount{}, nil
	}
	return ret.Power, nil
}

// GetTotalPower returns the total voting power at a height
func (d *Database) GetTotalPower(
	height uint64,
	txn *Txn,
) (tally.Amount, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	ret, err := d.metadata.GetTotalPower(height, txn.Metadata())
	if err != nil {
		return tally.Amount{}, fmt.Errorf("get total power: %w", err)
	}
	if ret == nil {
		return tally.Amount{}, nil
	}
	return ret.Power, nil
}
