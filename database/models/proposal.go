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

	"github.com/blinklabs-io/condorcet/chain"
	"github.com/blinklabs-io/condorcet/proposal"
	"github.com/blinklabs-io/condorcet/tally"
)

var ErrProposalNotFound = errors.New("proposal not found")

// Proposal is the queryable index row for a proposal. The full proposal,
// including its tally, is kept in the blob store.
type Proposal struct {
	ID          uint64            `gorm:"primarykey;autoIncrement:false"`
	Proposer    string            `gorm:"size:255;index;not null"`
	Title       string            `gorm:"size:255;not null"`
	Status      proposal.Status   `gorm:"index;not null"`
	Winner      uint32            `gorm:"not null"`
	Choices     uint32            `gorm:"not null"`
	TotalPower  tally.Amount      `gorm:"size:40;not null"`
	Outstanding tally.Amount      `gorm:"size:40;not null"`
	StartHeight uint64            `gorm:"index;not null"`
	Expiration  chain.Expiration  `gorm:"type:text;serializer:json;not null"`
	MinPeriod   *chain.Expiration `gorm:"type:text;serializer:json"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name
func (Proposal) TableName() string {
	return "proposal"
}

// ProposalFromDomain builds the index row for a proposal
func ProposalFromDomain(p *proposal.Proposal) *Proposal {
	ret := &Proposal{
		ID:          p.ID,
		Proposer:    p.Proposer,
		Title:       p.Title,
		Status:      p.Status,
		Winner:      p.Winner,
		Choices:     uint32(len(p.Choices)), //nolint:gosec
		TotalPower:  p.TotalPower,
		Outstanding: p.Tally.Outstanding(),
		StartHeight: p.StartHeight(),
		Expiration:  p.Expiration(),
		CreatedAt:   p.CreatedAt,
	}
	if p.MinVotingPeriod != nil {
		tmp := *p.MinVotingPeriod
		ret.MinPeriod = &tmp
	}
	return ret
}

// ProposalFilter selects proposals from the index
type ProposalFilter struct {
	Status *proposal.Status
	// StartAfter skips proposals with an ID less than or equal to this value
	StartAfter uint64
	// Limit of 0 means no limit
	Limit   int
	Reverse bool
}
