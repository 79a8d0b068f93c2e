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

package tally_test

import (
	"testing"

	"github.com/blinklabs-io/condorcet/tally"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVote(t *testing.T) {
	testDefs := []struct {
		name     string
		ranking  []uint32
		expected error
	}{
		{name: "full ranking", ranking: []uint32{2, 0, 1}},
		{name: "partial ranking", ranking: []uint32{1}},
		{name: "empty", ranking: nil, expected: tally.ErrInvalidVote},
		{name: "too long", ranking: []uint32{0, 1, 2, 0}, expected: tally.ErrInvalidVote},
		{name: "out of range", ranking: []uint32{0, 3}, expected: tally.ErrCandidateOutOfRange},
		{name: "duplicate", ranking: []uint32{1, 0, 1}, expected: tally.ErrDuplicateCandidate},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			vote, err := tally.NewVote(testDef.ranking, 3)
			if testDef.expected != nil {
				require.ErrorIs(t, err, testDef.expected)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testDef.ranking, vote.Ranking())
		})
	}
}

func TestVoteCopiesRanking(t *testing.T) {
	ranking := []uint32{0, 1}
	vote, err := tally.NewVote(ranking, 2)
	require.NoError(t, err)
	ranking[0] = 1
	assert.Equal(t, []uint32{0, 1}, vote.Ranking())
}
