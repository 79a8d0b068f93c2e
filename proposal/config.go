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
	"errors"
	"fmt"
	"time"

	"github.com/blinklabs-io/condorcet/chain"
)

const (
	DefaultMaxChoices   = 20
	DefaultVotingPeriod = 7 * 24 * time.Hour
	// MaxChoicesLimit bounds MaxChoices. A tally holds one margin per pair
	// of candidates.
	MaxChoicesLimit = 256
)

// Config holds the rules applied to new proposals
type Config struct {
	Quorum       PercentageThreshold `yaml:"quorum"       json:"quorum"`
	VotingPeriod chain.Duration      `yaml:"votingPeriod" json:"voting_period"`
	// MinVotingPeriod keeps proposals open for at least this long, even once
	// the outcome is decided
	MinVotingPeriod                  *chain.Duration `yaml:"minVotingPeriod,omitempty"         json:"min_voting_period,omitempty"`
	CloseProposalsOnExecutionFailure bool            `yaml:"closeProposalsOnExecutionFailure" json:"close_proposals_on_execution_failure"`
	MaxChoices                       uint32          `yaml:"maxChoices"                       json:"max_choices"`
}

func DefaultConfig() Config {
	return Config{
		Quorum:                           Majority(),
		VotingPeriod:                     chain.Period(DefaultVotingPeriod),
		CloseProposalsOnExecutionFailure: true,
		MaxChoices:                       DefaultMaxChoices,
	}
}

func (c Config) Validate() error {
	var err error
	if qErr := c.Quorum.Validate(); qErr != nil {
		err = errors.Join(err, fmt.Errorf("quorum: %w", qErr))
	}
	if vErr := c.VotingPeriod.Validate(); vErr != nil {
		err = errors.Join(
			err,
			fmt.Errorf("%w: voting period: %w", ErrInvalidVotingPeriod, vErr),
		)
	} else if c.MinVotingPeriod != nil {
		if mErr := c.MinVotingPeriod.Validate(); mErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("%w: min voting period: %w", ErrInvalidVotingPeriod, mErr),
			)
		} else {
			cmp, cErr := c.MinVotingPeriod.Compare(c.VotingPeriod)
			switch {
			case cErr != nil:
				err = errors.Join(
					err,
					fmt.Errorf(
						"%w: min voting period and voting period must use the same unit",
						ErrInvalidVotingPeriod,
					),
				)
			case cmp > 0:
				err = errors.Join(
					err,
					fmt.Errorf(
						"%w: min voting period %s is longer than voting period %s",
						ErrInvalidVotingPeriod,
						c.MinVotingPeriod,
						c.VotingPeriod,
					),
				)
			}
		}
	}
	switch {
	case c.MaxChoices == 0:
		err = errors.Join(err, fmt.Errorf("%w: max choices must be positive", ErrTooManyChoices))
	case c.MaxChoices > MaxChoicesLimit:
		err = errors.Join(
			err,
			fmt.Errorf(
				"%w: max choices %d exceeds the limit of %d",
				ErrTooManyChoices,
				c.MaxChoices,
				MaxChoicesLimit,
			),
		)
	}
	return err
}
