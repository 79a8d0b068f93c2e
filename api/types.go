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
	"time"

	"github.com/blinklabs-io/condorcet/chain"
	"github.com/blinklabs-io/condorcet/database/models"
	"github.com/blinklabs-io/condorcet/proposal"
	"github.com/blinklabs-io/condorcet/tally"
)

type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
}

type RootResponse struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	VotingModule string `json:"voting_module"`
}

type HealthResponse struct {
	IsHealthy bool        `json:"is_healthy"`
	Block     chain.Block `json:"block"`
}

type ProposeResponse struct {
	ID uint64 `json:"id"`
}

type VoteRequest struct {
	Voter   string   `json:"voter"`
	Ranking []uint32 `json:"ranking"`
}

type VotingPowerRequest struct {
	Power tally.Amount `json:"power"`
}

type VotingPowerResponse struct {
	Address string       `json:"address"`
	Height  uint64       `json:"height"`
	Power   tally.Amount `json:"power"`
}

type ExecuteResponse struct {
	ProposalID uint64             `json:"proposal_id"`
	Messages   []proposal.Message `json:"messages"`
}

// ProposalResponse is a proposal along with its current tally summary
type ProposalResponse struct {
	ID          uint64                       `json:"id"`
	Title       string                       `json:"title,omitempty"`
	Description string                       `json:"description,omitempty"`
	Proposer    string                       `json:"proposer"`
	Choices     []proposal.Choice            `json:"choices"`
	Status      proposal.Status              `json:"status"`
	Winner      *uint32                      `json:"winner,omitempty"`
	Quorum      proposal.PercentageThreshold `json:"quorum"`
	TotalPower  tally.Amount                 `json:"total_power"`
	Outstanding tally.Amount                 `json:"outstanding"`
	Leader      tally.Winner                 `json:"leader"`
	StartHeight uint64                       `json:"start_height"`
	Expiration  chain.Expiration             `json:"expiration"`
	CreatedAt   time.Time                    `json:"created_at"`
}

func proposalResponse(p *proposal.Proposal) ProposalResponse {
	ret := ProposalResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Proposer:    p.Proposer,
		Choices:     p.Choices,
		Status:      p.Status,
		Quorum:      p.Quorum,
		TotalPower:  p.TotalPower,
		Outstanding: p.Tally.Outstanding(),
		Leader:      p.Tally.Winner(),
		StartHeight: p.StartHeight(),
		Expiration:  p.Expiration(),
		CreatedAt:   p.CreatedAt,
	}
	if ret.Choices == nil {
		ret.Choices = []proposal.Choice{}
	}
	if p.Status.HasWinner() {
		winner := p.Winner
		ret.Winner = &winner
	}
	return ret
}

type BallotResponse struct {
	Voter     string       `json:"voter"`
	Ranking   []uint32     `json:"ranking"`
	Power     tally.Amount `json:"power"`
	Height    uint64       `json:"height"`
	CreatedAt time.Time    `json:"created_at"`
}

func ballotResponse(b models.Ballot) BallotResponse {
	return BallotResponse{
		Voter:     b.Voter,
		Ranking:   []uint32(b.Ranking),
		Power:     b.Power,
		Height:    b.Height,
		CreatedAt: b.CreatedAt,
	}
}
