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

package models

import "github.com/blinklabs-io/condorcet/tally"

// VotingPower is a checkpoint of an address's voting power. The power at a
// height is the latest checkpoint at or below it.
type VotingPower struct {
	ID      uint         `gorm:"primarykey"`
	Address string       `gorm:"uniqueIndex:idx_voting_power_address_height,priority:1;size:255;not null"`
	Height  uint64       `gorm:"uniqueIndex:idx_voting_power_address_height,priority:2;not null"`
	Power   tally.Amount `gorm:"size:40;not null"`
}

// TableName returns the table name
func (VotingPower) TableName() string {
	return "voting_power"
}

// TotalPower is a checkpoint of the sum of all voting power
type TotalPower struct {
	ID     uint         `gorm:"primarykey"`
	Height uint64       `gorm:"uniqueIndex;not null"`
	Power  tally.Amount `gorm:"size:40;not null"`
}

// TableName returns the table name
func (TotalPower) TableName() string {
	return "total_power"
}
