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

package voting

import (
	"context"
	"fmt"
	"maps"

	"github.com/blinklabs-io/condorcet/database"
	"github.com/blinklabs-io/condorcet/tally"
)

// Static assigns a fixed voting power to each address at every height
type Static struct {
	powers map[string]tally.Amount
	total  tally.Amount
}

var _ Module = (*Static)(nil)

// NewStatic returns a module with the given fixed powers. The sum of all
// powers must fit in an Amount.
func NewStatic(powers map[string]tally.Amount) (*Static, error) {
	s := &Static{powers: maps.Clone(powers)}
	for addr, power := range s.powers {
		total, err := s.total.CheckedAdd(power)
		if err != nil {
			return nil, fmt.Errorf("power of %s: %w", addr, err)
		}
		s.total = total
	}
	return s, nil
}

func (s *Static) VotingPowerAtHeight(
	_ context.Context,
	_ *database.Txn,
	address string,
	_ uint64,
) (tally.Amount, error) {
	return s.powers[address], nil
}

func (s *Static) TotalPowerAtHeight(
	context.Context,
	*database.Txn,
	uint64,
) (tally.Amount, error) {
	return s.total, nil
}

func (s *Static) Info(context.Context) Info {
	return Info{
		Kind:        "static",
		Description: fmt.Sprintf("%d fixed voters", len(s.powers)),
	}
}
