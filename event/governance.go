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

package event

import (
	"github.com/blinklabs-io/condorcet/proposal"
	"github.com/blinklabs-io/condorcet/tally"
)

const (
	ProposalCreatedEventType       EventType = "governance.proposal_created"
	VoteCastEventType              EventType = "governance.vote_cast"
	ProposalStatusChangedEventType EventType = "governance.proposal_status_changed"
	ProposalExecutedEventType      EventType = "governance.proposal_executed"
	ExecutionResultEventType       EventType = "governance.execution_result"
	ConfigUpdatedEventType         EventType = "governance.config_updated"
	VotingPowerChangedEventType    EventType = "governance.voting_power_changed"
)

type ProposalCreatedEvent struct {
	ProposalID  uint64
	Proposer    string
	Title       string
	Choices     int
	TotalPower  tally.Amount
	StartHeight uint64
}

type VoteCastEvent struct {
	ProposalID uint64
	Voter      string
	Ranking    []uint32
	Power      tally.Amount
	Height     uint64
	Winner     tally.Winner
}

type ProposalStatusChangedEvent struct {
	ProposalID uint64
	OldStatus  proposal.Status
	NewStatus  proposal.Status
	Height     uint64
}

type ProposalExecutedEvent struct {
	ProposalID uint64
	Choice     uint32
	Messages   int
}

// ExecutionResultEvent reports the reply of the execution sink. Closed is
// true when the failure moved the proposal to execution_failed.
type ExecutionResultEvent struct {
	ProposalID uint64
	Err        error
	Closed     bool
}

type ConfigUpdatedEvent struct {
	Config proposal.Config
}

type VotingPowerChangedEvent struct {
	Address string
	Height  uint64
	Power   tally.Amount
}

// ProposalEvent is implemented by events that concern a single proposal
type ProposalEvent interface {
	Proposal() uint64
}

func (e ProposalCreatedEvent) Proposal() uint64       { return e.ProposalID }
func (e VoteCastEvent) Proposal() uint64              { return e.ProposalID }
func (e ProposalStatusChangedEvent) Proposal() uint64 { return e.ProposalID }
func (e ProposalExecutedEvent) Proposal() uint64      { return e.ProposalID }
func (e ExecutionResultEvent) Proposal() uint64       { return e.ProposalID }

// ProposalEventTypes lists the event types that carry a ProposalEvent
var ProposalEventTypes = []EventType{
	ProposalCreatedEventType,
	VoteCastEventType,
	ProposalStatusChangedEventType,
	ProposalExecutedEventType,
	ExecutionResultEventType,
}
