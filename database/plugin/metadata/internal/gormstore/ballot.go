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
)

// AddBallot records a ballot. A second ballot from the same voter on the
// same proposal returns models.ErrBallotExists.
func (s *Store) AddBallot(
	ballot *models.Ballot,
	txn types.Txn,
) error {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return fmt.Errorf("resolveDB failed in AddBallot: %w", err)
	}
	var count int64
	result := db.Model(&models.Ballot{}).
		Where("proposal_id = ? AND voter = ?", ballot.ProposalID, ballot.Voter).
		Count(&count)
	if result.Error != nil {
		return fmt.Errorf("DB querying Ballot failed: %w", result.Error)
	}
	if count > 0 {
		return models.ErrBallotExists
	}
	if result := db.Create(ballot); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return models.ErrBallotExists
		}
		return fmt.Errorf("DB inserting Ballot failed: %w", result.Error)
	}
	return nil
}

// GetBallot returns a voter's ballot, or nil if they have not voted
func (s *Store) GetBallot(
	proposalID uint64,
	voter string,
	txn types.Txn,
) (*models.Ballot, error) {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return nil, fmt.Errorf("resolveDB failed in GetBallot: %w", err)
	}
	var ret models.Ballot
	result := db.Where("proposal_id = ? AND voter = ?", proposalID, voter).
		First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("DB querying Ballot failed: %w", result.Error)
	}
	return &ret, nil
}

// GetBallots returns every ballot on a proposal in the order they were cast
func (s *Store) GetBallots(
	proposalID uint64,
	txn types.Txn,
) ([]models.Ballot, error) {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return nil, fmt.Errorf("resolveDB failed in GetBallots: %w", err)
	}
	var ret []models.Ballot
	result := db.Where("proposal_id = ?", proposalID).Order("id ASC").Find(&ret)
	if result.Error != nil {
		return nil, fmt.Errorf("DB querying Ballots failed: %w", result.Error)
	}
	return ret, nil
}
