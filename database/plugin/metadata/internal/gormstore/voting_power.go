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
	"errors"
	"fmt"

	"github.com/blinklabs-io/condorcet/database/models"
	"github.com/blinklabs-io/condorcet/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetVotingPower inserts or replaces the checkpoint at the given height
func (s *Store) SetVotingPower(
	power *models.VotingPower,
	txn types.Txn,
) error {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return fmt.Errorf("resolveDB failed in SetVotingPower: %w", err)
	}
	onConflict := clause.OnConflict{
		Columns: []clause.Column{
			{Name: "address"},
			{Name: "height"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"power"}),
	}
	if result := db.Clauses(onConflict).Create(power); result.Error != nil {
		return fmt.Errorf("DB upserting VotingPower failed: %w", result.Error)
	}
	return nil
}

// GetVotingPower returns the latest checkpoint at or below height, or nil
func (s *Store) GetVotingPower(
	address string,
	height uint64,
	txn types.Txn,
) (*models.VotingPower, error) {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return nil, fmt.Errorf("resolveDB failed in GetVotingPower: %w", err)
	}
	var ret models.VotingPower
	result := db.Where("address = ? AND height <= ?", address, height).
		Order("height DESC").
		First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("DB querying VotingPower failed: %w", result.Error)
	}
	return &ret, nil
}

// SetTotalPower inserts or replaces the total power checkpoint at a height
func (s *Store) SetTotalPower(
	power *models.TotalPower,
	txn types.Txn,
) error {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return fmt.Errorf("resolveDB failed in SetTotalPower: %w", err)
	}
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "height"}},
		DoUpdates: clause.AssignmentColumns([]string{"power"}),
	}
	if result := db.Clauses(onConflict).Create(power); result.Error != nil {
		return fmt.Errorf("DB upserting TotalPower failed: %w", result.Error)
	}
	return nil
}

// GetTotalPower returns the latest total power checkpoint at or below
// height, or nil
func (s *Store) GetTotalPower(
	height uint64,
	txn types.Txn,
) (*models.TotalPower, error) {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return nil, fmt.Errorf("resolveDB failed in GetTotalPower: %w", err)
	}
	var ret models.TotalPower
	result := db.Where("height <= ?", height).Order("height DESC").First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("DB querying TotalPower failed: %w", result.Error)
	}
	return &ret, nil
}
