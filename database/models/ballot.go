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

import (
	"errors"
	"time"

	"github.com/blinklabs-io/condorcet/database/types"
	"github.com/blinklabs-io/condorcet/tally"
)

var ErrBallotExists = errors.New("ballot already recorded")

// Ballot records a single voter's ranking on a proposal
type Ballot struct {
	ID         uint          `gorm:"primarykey"`
	ProposalID uint64        `gorm:"uniqueIndex:idx_ballot_proposal_voter,priority:1;not null"`
	Voter      string        `gorm:"uniqueIndex:idx_ballot_proposal_voter,priority:2;size:255;not null"`
	Ranking    types.Ranking `gorm:"type:text;not null"`
	Power      tally.Amount  `gorm:"size:40;not null"`
	Height     uint64        `gorm:"index;not null"`
	CreatedAt  time.Time
}

// TableName returns the table name
func (Ballot) TableName() string {
	return "ballot"
}
