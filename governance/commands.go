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

package governance

import (
	"context"
	"errors"
	"fmt"

	"github.com/blinklabs-io/condorcet/database/models"
	"github.com/blinklabs-io/condorcet/event"
	"github.com/blinklabs-io/condorcet/proposal"
	"github.com/blinklabs-io/condorcet/tally"
	"github.com/blinklabs-io/condorcet/voting"
)

type ProposeRequest struct {
	Proposer    string            `json:"proposer"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Choices     []proposal.Choice `json:"choices"`
}

// ListFilter selects proposals for List
type ListFilter = models.ProposalFilter

func (e *Engine) getProposal(s *commandState, id uint64) (*proposal.Proposal, error) {
	return e.config.Database.GetProposal(id, s.txn)
}

func (e *Engine) setProposal(s *commandState, p *proposal.Proposal) error {
	return e.config.Database.SetProposal(p, s.txn)
}

// statusChanged queues a status change event when the status moved
func (s *commandState) statusChanged(p *proposal.Proposal, oldStatus proposal.Status) {
	if p.Status == oldStatus {
		return
	}
	s.publish(
		event.ProposalStatusChangedEventType,
		event.ProposalStatusChangedEvent{
			ProposalID: p.ID,
			OldStatus:  oldStatus,
			NewStatus:  p.Status,
			Height:     s.block.Height,
		},
	)
}

// Propose creates a proposal at the current block and returns its ID
func (e *Engine) Propose(ctx context.Context, req ProposeRequest) (uint64, error) {
	ret, err := e.submit(ctx, "propose", true, func(s *commandState) (any, error) {
		power, err := e.config.VotingModule.VotingPowerAtHeight(
			s.ctx,
			s.txn,
			req.Proposer,
			s.block.Height,
		)
		if err != nil {
			return nil, err
		}
		if power.IsZero() {
			return nil, fmt.Errorf("%w: %s", ErrProposerWithoutPower, req.Proposer)
		}
		totalPower, err := e.config.VotingModule.TotalPowerAtHeight(
			s.ctx,
			s.txn,
			s.block.Height,
		)
		if err != nil {
			return nil, err
		}
		id, err := e.config.Database.NextProposalID(s.txn)
		if err != nil {
			return nil, err
		}
		p, err := proposal.New(
			s.block,
			e.govConfig,
			id,
			req.Proposer,
			req.Title,
			req.Description,
			req.Choices,
			totalPower,
		)
		if err != nil {
			return nil, err
		}
		if err := e.setProposal(s, p); err != nil {
			return nil, err
		}
		s.publish(
			event.ProposalCreatedEventType,
			event.ProposalCreatedEvent{
				ProposalID:  p.ID,
				Proposer:    p.Proposer,
				Title:       p.Title,
				Choices:     len(p.Choices),
				TotalPower:  p.TotalPower,
				StartHeight: p.StartHeight(),
			},
		)
		s.afterCommit(func() {
			if e.metrics != nil {
				e.metrics.proposalsCreated.Inc()
			}
			e.logger.Info(
				"proposal created",
				"proposal_id", p.ID,
				"proposer", p.Proposer,
				"choices", len(p.Choices),
				"total_power", p.TotalPower.String(),
				"expiration", p.Expiration().String(),
			)
		})
		return p.ID, nil
	})
	if err != nil {
		return 0, err
	}
	return ret.(uint64), nil
}

// Vote counts a voter's ranking. The voter's power is taken at the
// proposal's start height.
func (e *Engine) Vote(
	ctx context.Context,
	id uint64,
	voter string,
	ranking []uint32,
) (*proposal.Proposal, error) {
	ret, err := e.submit(ctx, "vote", true, func(s *commandState) (any, error) {
		p, err := e.getProposal(s, id)
		if err != nil {
			return nil, err
		}
		oldStatus := p.Status
		if status := p.UpdateStatus(s.block); status != proposal.StatusOpen {
			return nil, fmt.Errorf("%w: status is %s", proposal.ErrNotOpen, status)
		}
		voted, err := e.config.BallotBox.HasVoted(id, voter, s.txn)
		if err != nil {
			return nil, err
		}
		if voted {
			return nil, ErrAlreadyVoted
		}
		power, err := e.config.VotingModule.VotingPowerAtHeight(
			s.ctx,
			s.txn,
			voter,
			p.StartHeight(),
		)
		if err != nil {
			return nil, err
		}
		if power.Cmp(p.Tally.Outstanding()) > 0 {
			return nil, fmt.Errorf(
				"%w: power %s of %s exceeds outstanding power %s",
				ErrInvariantViolation,
				power,
				voter,
				p.Tally.Outstanding(),
			)
		}
		if err := p.Vote(s.block, ranking, power); err != nil {
			return nil, err
		}
		if err := e.config.Database.AddBallot(
			id,
			voter,
			ranking,
			power,
			s.block.Height,
			s.txn,
		); err != nil {
			if errors.Is(err, models.ErrBallotExists) {
				return nil, ErrAlreadyVoted
			}
			return nil, err
		}
		if err := e.setProposal(s, p); err != nil {
			return nil, err
		}
		s.publish(
			event.VoteCastEventType,
			event.VoteCastEvent{
				ProposalID: id,
				Voter:      voter,
				Ranking:    ranking,
				Power:      power,
				Height:     s.block.Height,
				Winner:     p.Tally.Winner(),
			},
		)
		s.statusChanged(p, oldStatus)
		s.afterCommit(func() {
			if e.metrics != nil {
				e.metrics.votesCast.Inc()
			}
			e.logger.Info(
				"vote counted",
				"proposal_id", id,
				"voter", voter,
				"power", power.String(),
				"winner", p.Tally.Winner().String(),
				"status", p.Status.String(),
			)
		})
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return ret.(*proposal.Proposal), nil
}

// Close closes a rejected proposal
func (e *Engine) Close(ctx context.Context, id uint64) (*proposal.Proposal, error) {
	ret, err := e.submit(ctx, "close", true, func(s *commandState) (any, error) {
		p, err := e.getProposal(s, id)
		if err != nil {
			return nil, err
		}
		oldStatus := p.Status
		if err := p.SetClosed(s.block); err != nil {
			return nil, err
		}
		if err := e.setProposal(s, p); err != nil {
			return nil, err
		}
		s.statusChanged(p, oldStatus)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return ret.(*proposal.Proposal), nil
}

// Status re-derives a proposal's status at the current block, stores it if
// it changed and returns the proposal
func (e *Engine) Status(ctx context.Context, id uint64) (*proposal.Proposal, error) {
	ret, err := e.submit(ctx, "status", true, func(s *commandState) (any, error) {
		p, err := e.getProposal(s, id)
		if err != nil {
			return nil, err
		}
		oldStatus := p.Status
		if p.UpdateStatus(s.block) != oldStatus {
			if err := e.setProposal(s, p); err != nil {
				return nil, err
			}
			s.statusChanged(p, oldStatus)
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return ret.(*proposal.Proposal), nil
}

// Sweep re-derives the status of every open proposal and returns the
// number of proposals that changed
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	ret, err := e.submit(ctx, "sweep", true, func(s *commandState) (any, error) {
		open := proposal.StatusOpen
		proposals, err := e.config.Database.GetProposals(
			models.ProposalFilter{Status: &open},
			s.txn,
		)
		if err != nil {
			return nil, err
		}
		changed := 0
		for _, p := range proposals {
			if p.UpdateStatus(s.block) == proposal.StatusOpen {
				continue
			}
			if err := e.setProposal(s, p); err != nil {
				return nil, err
			}
			s.statusChanged(p, proposal.StatusOpen)
			changed++
		}
		stillOpen := len(proposals) - changed
		s.afterCommit(func() {
			if e.metrics != nil {
				e.metrics.openProposals.Set(float64(stillOpen))
			}
		})
		return changed, nil
	})
	if err != nil {
		return 0, err
	}
	return ret.(int), nil
}

// Proposal returns a proposal as stored, without re-deriving its status
func (e *Engine) Proposal(ctx context.Context, id uint64) (*proposal.Proposal, error) {
	ret, err := e.submit(ctx, "proposal", false, func(s *commandState) (any, error) {
		return e.getProposal(s, id)
	})
	if err != nil {
		return nil, err
	}
	return ret.(*proposal.Proposal), nil
}

// Tally returns the pairwise margins of a proposal
func (e *Engine) Tally(ctx context.Context, id uint64) (tally.Snapshot, error) {
	ret, err := e.submit(ctx, "tally", false, func(s *commandState) (any, error) {
		p, err := e.getProposal(s, id)
		if err != nil {
			return nil, err
		}
		return p.Tally.Snapshot(), nil
	})
	if err != nil {
		return tally.Snapshot{}, err
	}
	return ret.(tally.Snapshot), nil
}

// List returns proposals from the index
func (e *Engine) List(ctx context.Context, filter ListFilter) ([]*proposal.Proposal, error) {
	ret, err := e.submit(ctx, "list", false, func(s *commandState) (any, error) {
		return e.config.Database.GetProposals(filter, s.txn)
	})
	if err != nil {
		return nil, err
	}
	return ret.([]*proposal.Proposal), nil
}

// Ballots returns the ballots cast on a proposal
func (e *Engine) Ballots(ctx context.Context, id uint64) ([]models.Ballot, error) {
	ret, err := e.submit(ctx, "ballots", false, func(s *commandState) (any, error) {
		if _, err := e.getProposal(s, id); err != nil {
			return nil, err
		}
		return e.config.Database.GetBallots(id, s.txn)
	})
	if err != nil {
		return nil, err
	}
	return ret.([]models.Ballot), nil
}

// Config returns the rules applied to new proposals
func (e *Engine) Config(ctx context.Context) (proposal.Config, error) {
	ret, err := e.submit(ctx, "config", false, func(*commandState) (any, error) {
		return e.govConfig, nil
	})
	if err != nil {
		return proposal.Config{}, err
	}
	return ret.(proposal.Config), nil
}

// UpdateConfig replaces the rules applied to new proposals. Existing
// proposals keep the rules they were created with.
func (e *Engine) UpdateConfig(ctx context.Context, cfg proposal.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	_, err := e.submit(ctx, "update_config", true, func(s *commandState) (any, error) {
		if err := e.config.Database.SetGovernanceConfig(cfg, s.txn); err != nil {
			return nil, err
		}
		s.publish(event.ConfigUpdatedEventType, event.ConfigUpdatedEvent{Config: cfg})
		s.afterCommit(func() {
			e.govConfig = cfg
			e.logger.Info(
				"governance config updated",
				"quorum", cfg.Quorum.String(),
				"voting_period", cfg.VotingPeriod.String(),
			)
		})
		return nil, nil
	})
	return err
}

// VotingPower returns the voting power an address had at the start of a
// block. A nil height returns the latest power, including updates made in
// the current block.
func (e *Engine) VotingPower(
	ctx context.Context,
	address string,
	height *uint64,
) (tally.Amount, error) {
	ret, err := e.submit(ctx, "voting_power", false, func(s *commandState) (any, error) {
		h := s.block.Height + 1
		if height != nil {
			h = *height
		}
		return e.config.VotingModule.VotingPowerAtHeight(s.ctx, s.txn, address, h)
	})
	if err != nil {
		return tally.Amount{}, err
	}
	return ret.(tally.Amount), nil
}

// SetVotingPower checkpoints an address's voting power at the current block
func (e *Engine) SetVotingPower(
	ctx context.Context,
	address string,
	power tally.Amount,
) error {
	writer, ok := e.config.VotingModule.(voting.Writer)
	if !ok {
		return voting.ErrReadOnly
	}
	_, err := e.submit(ctx, "set_voting_power", true, func(s *commandState) (any, error) {
		if err := writer.SetVotingPower(s.ctx, s.txn, address, s.block.Height, power); err != nil {
			return nil, err
		}
		s.publish(
			event.VotingPowerChangedEventType,
			event.VotingPowerChangedEvent{
				Address: address,
				Height:  s.block.Height,
				Power:   power,
			},
		)
		return nil, nil
	})
	return err
}
