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

package metadata

import (
	"fmt"

	"github.com/blinklabs-io/condorcet/database/models"
	"github.com/blinklabs-io/condorcet/database/plugin"
	"github.com/blinklabs-io/condorcet/database/types"
	"gorm.io/gorm"
)

type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Proposals
	GetMaxProposalID(types.Txn) (uint64, error)
	GetProposal(
		uint64, // id
		types.Txn,
	) (*models.Proposal, error)
	GetProposals(
		models.ProposalFilter,
		types.Txn,
	) ([]models.Proposal, error)
	SetProposal(*models.Proposal, types.Txn) error

	// Ballots
	AddBallot(*models.Ballot, types.Txn) error
	GetBallot(
		uint64, // proposalID
		string, // voter
		types.Txn,
	) (*models.Ballot, error)
	GetBallots(
		uint64, // proposalID
		types.Txn,
	) ([]models.Ballot, error)

	// Voting power checkpoints
	GetTotalPower(
		uint64, // height
		types.Txn,
	) (*models.TotalPower, error)
	GetVotingPower(
		string, // address
		uint64, // height
		types.Txn,
	) (*models.VotingPower, error)
	SetTotalPower(*models.TotalPower, types.Txn) error
	SetVotingPower(*models.VotingPower, types.Txn) error

	// Module configuration
	GetGovernanceConfig(types.Txn) (*models.GovernanceConfig, error)
	SetGovernanceConfig(*models.GovernanceConfig, types.Txn) error
}

// New returns the started metadata plugin selected by name
func New(pluginName string) (MetadataStore, error) {
	p, err := plugin.StartPlugin(plugin.PluginTypeMetadata, pluginName)
	if err != nil {
		return nil, err
	}
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}
	return metadataStore, nil
}
