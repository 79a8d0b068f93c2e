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

package api

import (
	"context"

	"github.com/blinklabs-io/condorcet/chain"
	"github.com/blinklabs-io/condorcet/database/models"
	"github.com/blinklabs-io/condorcet/governance"
	"github.com/blinklabs-io/condorcet/proposal"
	"github.com/blinklabs-io/condorcet/tally"
	"github.com/blinklabs-io/condorcet/voting"
)

// Governance is what the API needs from the governance engine
type Governance interface {
	Block() chain.Block
	VotingModuleInfo(ctx context.Context) voting.Info
	Config(ctx context.Context) (proposal.Config, error)
	UpdateConfig(ctx context.Context, cfg proposal.Config) error
	Propose(ctx context.Context, req governance.ProposeRequest) (uint64, error)
	Vote(ctx context.Context, id uint64, voter string, ranking []uint32) (*proposal.Proposal, error)
	Execute(ctx context.Context, id uint64) ([]proposal.Message, error)
	Close(ctx context.Context, id uint64) (*proposal.Proposal, error)
	Status(ctx context.Context, id uint64) (*proposal.Proposal, error)
	Tally(ctx context.Context, id uint64) (tally.Snapshot, error)
	List(ctx context.Context, filter governance.ListFilter) ([]*proposal.Proposal, error)
	Ballots(ctx context.Context, id uint64) ([]models.Ballot, error)
	VotingPower(ctx context.Context, address string, height *uint64) (tally.Amount, error)
	SetVotingPower(ctx context.Context, address string, power tally.Amount) error
}

var _ Governance = (*governance.Engine)(nil)
