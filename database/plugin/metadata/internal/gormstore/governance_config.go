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

// GetGovernanceConfig returns the stored module configuration, or nil
func (s *Store) GetGovernanceConfig(
	txn types.Txn,
) (*models.GovernanceConfig, error) {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return nil, fmt.Errorf("resolveDB failed in GetGovernanceConfig: %w", err)
	}
	var ret models.GovernanceConfig
	result := db.Where("id = ?", models.GovernanceConfigRowId).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("DB querying GovernanceConfig failed: %w", result.Error)
	}
	return &ret, nil
}

// SetGovernanceConfig replaces the stored module configuration
func (s *Store) SetGovernanceConfig(
	cfg *models.GovernanceConfig,
	txn types.Txn,
) error {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return fmt.Errorf("resolveDB failed in SetGovernanceConfig: %w", err)
	}
	cfg.ID = models.GovernanceConfigRowId
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"config", "updated_at"}),
	}
	if result := db.Clauses(onConflict).Create(cfg); result.Error != nil {
		return fmt.Errorf("DB upserting GovernanceConfig failed: %w", result.Error)
	}
	return nil
}
