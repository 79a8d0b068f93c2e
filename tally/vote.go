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

package tally

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrInvalidVote         = errors.New("invalid vote")
	ErrCandidateOutOfRange = errors.New("candidate out of range")
	ErrDuplicateCandidate  = errors.New("duplicate candidate")
)

// Vote is a validated ranking, most preferred candidate first. Candidates
// missing from the ranking are not compared against each other or against
// ranked candidates.
type Vote struct {
	ranking []uint32
}

// NewVote validates a ranking against the number of candidates
func NewVote(ranking []uint32, candidates uint32) (Vote, error) {
	if len(ranking) == 0 {
		return Vote{}, fmt.Errorf("%w: empty ranking", ErrInvalidVote)
	}
	if uint64(len(ranking)) > uint64(candidates) {
		return Vote{}, fmt.Errorf(
			"%w: ranking has %d entries for %d candidates",
			ErrInvalidVote,
			len(ranking),
			candidates,
		)
	}
	seen := make([]bool, candidates)
	for _, c := range ranking {
		if c >= candidates {
			return Vote{}, fmt.Errorf(
				"%w: %d (candidates: %d)",
				ErrCandidateOutOfRange,
				c,
				candidates,
			)
		}
		if seen[c] {
			return Vote{}, fmt.Errorf("%w: %d", ErrDuplicateCandidate, c)
		}
		seen[c] = true
	}
	return Vote{ranking: slices.Clone(ranking)}, nil
}

// Ranking returns a copy of the ranking
func (v Vote) Ranking() []uint32 {
	return slices.Clone(v.ranking)
}

func (v Vote) Len() int {
	return len(v.ranking)
}
