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

// SetProposal inserts or updates a proposal index row
func (s *Store) SetProposal(
	proposal *models.Proposal,
	txn types.Txn,
) error {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return fmt.Errorf("resolveDB failed in SetProposal: %w", err)
	}
	onConflict := clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status",
			"winner",
			"outstanding",
			"updated_at",
		}),
	}
	if result := db.Clauses(onConflict).Create(proposal); result.Error != nil {
		return fmt.Errorf("DB upserting Proposal failed: %w", result.Error)
	}
	return nil
}

// GetProposal returns the index row for a proposal
func (s *Store) GetProposal(
	id uint64,
	txn types.Txn,
) (*models.Proposal, error) {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return nil, fmt.Errorf("resolveDB failed in GetProposal: %w", err)
	}
	var ret models.Proposal
	if result := db.Where("id = ?", id).First(&ret); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, models.ErrProposalNotFound
		}
		return nil, fmt.Errorf("DB querying Proposal failed: %w", result.Error)
	}
	return &ret, nil
}

// GetProposals returns index rows matching the filter in ID order
func (s *Store) GetProposals(
	filter models.ProposalFilter,
	txn types.Txn,
) ([]models.Proposal, error) {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return nil, fmt.Errorf("resolveDB failed in GetProposals: %w", err)
	}
	query := db.Model(&models.Proposal{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Reverse {
		if filter.StartAfter > 0 {
			query = query.Where("id < ?", filter.StartAfter)
		}
		query = query.Order("id DESC")
	} else {
		if filter.StartAfter > 0 {
			query = query.Where("id > ?", filter.StartAfter)
		}
		query = query.Order("id ASC")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var ret []models.Proposal
	if result := query.Find(&ret); result.Error != nil {
		return nil, fmt.Errorf("DB querying Proposals failed: %w", result.Error)
	}
	return ret, nil
}

// GetMaxProposalID returns the highest proposal ID, or 0 with no proposals
func (s *Store) GetMaxProposalID(txn types.Txn) (uint64, error) {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return 0, fmt.Errorf("resolveDB failed in GetMaxProposalID: %w", err)
	}
	var maxID uint64
	result := db.Model(&models.Proposal{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&maxID)
	if result.Error != nil {
		return 0, fmt.Errorf("DB querying max Proposal ID failed: %w", result.Error)
	}
	return maxID, nil
}
