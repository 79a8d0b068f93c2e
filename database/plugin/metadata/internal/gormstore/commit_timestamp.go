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

	"github.com/blinklabs-io/condorcet/database/models"
	"github.com/blinklabs-io/condorcet/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetCommitTimestamp returns 0 when nothing has been committed yet
func (s *Store) GetCommitTimestamp() (int64, error) {
	db, err := s.ResolveDB(nil)
	if err != nil {
		return 0, err
	}
	var row models.CommitTimestamp
	err = db.Where("id = ?", models.CommitTimestampRowID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Timestamp, nil
}

func (s *Store) SetCommitTimestamp(timestamp int64, txn types.Txn) error {
	db, err := s.ResolveDB(txn)
	if err != nil {
		return err
	}
	row := models.CommitTimestamp{
		ID:        models.CommitTimestampRowID,
		Timestamp: timestamp,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"timestamp"}),
	}).Create(&row).Error
}
