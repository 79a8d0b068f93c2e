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
	"encoding/json"
	"fmt"

	"github.com/blinklabs-io/condorcet/database/models"
	"github.com/blinklabs-io/condorcet/proposal"
)

// GetGovernanceConfig returns the stored module configuration, or nil if
// none has been stored yet
func (d *Database) GetGovernanceConfig(txn *Txn) (*proposal.Config, error) {
	if txn == nil {
		txn = d.MetadataTxn(false)
		defer txn.Release()
	}
	row, err := d.metadata.GetGovernanceConfig(txn.Metadata())
	if err != nil {
		return nil, fmt.Errorf("get governance config: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	var ret proposal.Config
	if err := json.Unmarshal([]byte(row.Config), &ret); err != nil {
		return nil, fmt.Errorf("decode governance config: %w", err)
	}
	return &ret, nil
}

// SetGovernanceConfig replaces the stored module configuration
func (d *Database) SetGovernanceConfig(cfg proposal.Config, txn *Txn) error {
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
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode governance config: %w", err)
	}
	if err := d.metadata.SetGovernanceConfig(
		&models.GovernanceConfig{Config: string(data)},
		txn.Metadata(),
	); err != nil {
		return fmt.Errorf("set governance config: %w", err)
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		owned = false
	}
	return nil
}
