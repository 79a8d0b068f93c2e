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

package proposal

import (
	"fmt"
	"time"

	"github.com/blinklabs-io/condorcet/chain"
	"github.com/blinklabs-io/condorcet/tally"
)

// Proposal is a ranked-choice proposal. Every proposal has an implicit last
// choice, "none of the above", which carries no messages.
type Proposal struct {
	ID          uint64   `cbor:"1,keyasint"            json:"id"`
	Title       string   `cbor:"2,keyasint,omitempty"  json:"title,omitempty"`
	Description string   `cbor:"3,keyasint,omitempty"  json:"description,omitempty"`
	Proposer    string   `cbor:"4,keyasint"            json:"proposer"`
	Choices     []Choice `cbor:"5,keyasint"            json:"choices"`
	// Quorum and MinVotingPeriod are copied from the config at creation
	Quorum                  PercentageThreshold `cbor:"6,keyasint"            json:"quorum"`
	MinVotingPeriod         *chain.Expiration   `cbor:"7,keyasint,omitempty"  json:"min_voting_period,omitempty"`
	TotalPower              tally.Amount        `cbor:"8,keyasint"            json:"total_power"`
	CloseOnExecutionFailure bool                `cbor:"9,keyasint"            json:"close_on_execution_failure"`
	Tally                   *tally.Tally        `cbor:"10,keyasint"           json:"-"`
	Status                  Status              `cbor:"11,keyasint"           json:"status"`
	Winner                  uint32              `cbor:"12,keyasint"           json:"winner"`
	CreatedAt               time.Time           `cbor:"13,keyasint"           json:"created_at"`
}

// New creates an open proposal at the given block. The tally starts with
// all of totalPower outstanding.
func New(
	block chain.Block,
	cfg Config,
	id uint64,
	proposer string,
	title string,
	description string,
	choices []Choice,
	totalPower tally.Amount,
) (*Proposal, error) {
	if len(choices) == 0 {
		return nil, ErrZeroChoices
	}
	maxChoices := cfg.MaxChoices
	if maxChoices == 0 {
		maxChoices = DefaultMaxChoices
	}
	maxChoices = min(maxChoices, MaxChoicesLimit)
	if uint64(len(choices)) > uint64(maxChoices) {
		return nil, fmt.Errorf(
			"%w: %d choices, at most %d allowed",
			ErrTooManyChoices,
			len(choices),
			maxChoices,
		)
	}
	if totalPower.IsZero() {
		return nil, ErrZeroTotalPower
	}
	// The trailing candidate is "none of the above"
	candidates := uint32(len(choices)) + 1 //nolint:gosec
	t, err := tally.New(
		candidates,
		totalPower,
		block.Height,
		cfg.VotingPeriod.After(block),
	)
	if err != nil {
		return nil, err
	}
	p := &Proposal{
		ID:                      id,
		Title:                   title,
		Description:             description,
		Proposer:                proposer,
		Choices:                 choices,
		Quorum:                  cfg.Quorum,
		TotalPower:              totalPower,
		CloseOnExecutionFailure: cfg.CloseProposalsOnExecutionFailure,
		Tally:                   t,
		Status:                  StatusOpen,
		CreatedAt:               block.Time,
	}
	if cfg.MinVotingPeriod != nil {
		minExpiration := cfg.MinVotingPeriod.After(block)
		p.MinVotingPeriod = &minExpiration
	}
	p.UpdateStatus(block)
	return p, nil
}

// NoneOfTheAbove returns the index of the implicit "none of the above" choice
func (p *Proposal) NoneOfTheAbove() uint32 {
	return uint32(len(p.Choices)) //nolint:gosec
}

func (p *Proposal) Expiration() chain.Expiration {
	return p.Tally.Expiration()
}

func (p *Proposal) StartHeight() uint64 {
	return p.Tally.StartHeight()
}

// Participation returns the voting power cast so far
func (p *Proposal) Participation() tally.Amount {
	cast, err := p.TotalPower.CheckedSub(p.Tally.Outstanding())
	if err != nil {
		// Outstanding power never exceeds the total
		panic(err.Error())
	}
	return cast
}

// QuorumMet reports whether enough power has been cast so far
func (p *Proposal) QuorumMet() bool {
	return p.Quorum.IsMet(p.Participation(), p.TotalPower)
}

// CurrentStatus derives the status at the given block without modifying the
// proposal. Only open proposals are re-derived; every other status only
// changes through an explicit transition.
func (p *Proposal) CurrentStatus(block chain.Block) (Status, uint32) {
	if p.Status != StatusOpen {
		return p.Status, p.Winner
	}
	if p.MinVotingPeriod != nil && !p.MinVotingPeriod.IsExpired(block) {
		return StatusOpen, 0
	}
	expired := p.Expiration().IsExpired(block)
	if expired && !p.QuorumMet() {
		return StatusRejected, 0
	}
	winner := p.Tally.Winner()
	switch winner.Kind {
	case tally.WinnerNever:
		return StatusRejected, 0
	case tally.WinnerNone:
		if expired {
			return StatusRejected, 0
		}
	case tally.WinnerSome:
		if expired {
			return p.decided(winner.Candidate)
		}
	case tally.WinnerUndisputed:
		if p.QuorumMet() {
			return p.decided(winner.Candidate)
		}
	}
	return StatusOpen, 0
}

// decided maps a winning candidate to the final status. A win for "none of
// the above" rejects the proposal.
func (p *Proposal) decided(candidate uint32) (Status, uint32) {
	if candidate == p.NoneOfTheAbove() {
		return StatusRejected, 0
	}
	return StatusPassed, candidate
}

// UpdateStatus stores the status derived at the given block and returns it
func (p *Proposal) UpdateStatus(block chain.Block) Status {
	p.Status, p.Winner = p.CurrentStatus(block)
	return p.Status
}

// Vote counts a ranking with the voter's power. The caller is responsible for
// making sure each voter only votes once.
func (p *Proposal) Vote(
	block chain.Block,
	ranking []uint32,
	power tally.Amount,
) error {
	if p.UpdateStatus(block) != StatusOpen {
		return fmt.Errorf("%w: status is %s", ErrNotOpen, p.Status)
	}
	if power.IsZero() {
		return ErrZeroVotingPower
	}
	vote, err := tally.NewVote(ranking, p.Tally.Candidates())
	if err != nil {
		return err
	}
	p.Tally.AddVote(vote, power)
	p.UpdateStatus(block)
	return nil
}

// SetExecuted marks a passed proposal as executed and returns the messages of
// the winning choice. The messages are removed from the proposal so they can
// only be handed out once.
func (p *Proposal) SetExecuted(block chain.Block) (uint32, []Message, error) {
	if p.UpdateStatus(block) != StatusPassed {
		return 0, nil, fmt.Errorf("%w: status is %s", ErrNotPassed, p.Status)
	}
	var msgs []Message
	if p.Winner < uint32(len(p.Choices)) { //nolint:gosec
		msgs = p.Choices[p.Winner].Messages
		p.Choices[p.Winner].Messages = nil
	}
	p.Status = StatusExecuted
	return p.Winner, msgs, nil
}

// SetExecutionFailed records that the messages of an executed proposal failed.
// Proposals that did not opt into closing on failure stay executed.
func (p *Proposal) SetExecutionFailed() (bool, error) {
	if p.Status != StatusExecuted {
		return false, fmt.Errorf("%w: status is %s", ErrNotExecuted, p.Status)
	}
	if !p.CloseOnExecutionFailure {
		return false, nil
	}
	p.Status = StatusExecutionFailed
	return true, nil
}

// SetClosed closes a rejected proposal
func (p *Proposal) SetClosed(block chain.Block) error {
	if p.UpdateStatus(block) != StatusRejected {
		return fmt.Errorf("%w: status is %s", ErrNotRejected, p.Status)
	}
	p.Status = StatusClosed
	return nil
}
