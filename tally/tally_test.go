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
	"math/big"
	"math/rand/v2"
	"testing"

	"github.com/blinklabs-io/condorcet/chain"
	"github.com/blinklabs-io/condorcet/tally"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testVote struct {
	ranking []uint32
	power   uint64
}

func newTestTally(t *testing.T, candidates uint32, total uint64) *tally.Tally {
	t.Helper()
	tl, err := tally.New(
		candidates,
		tally.NewAmount(total),
		1,
		chain.AtHeight(100),
	)
	require.NoError(t, err)
	return tl
}

func castVotes(t *testing.T, tl *tally.Tally, votes []testVote) {
	t.Helper()
	for _, v := range votes {
		vote, err := tally.NewVote(v.ranking, tl.Candidates())
		require.NoError(t, err)
		tl.AddVote(vote, tally.NewAmount(v.power))
		requireAntisymmetric(t, tl)
	}
}

func requireAntisymmetric(t *testing.T, tl *tally.Tally) {
	t.Helper()
	n := tl.Candidates()
	for x := range n {
		for y := range n {
			if x == y {
				continue
			}
			require.Equal(
				t,
				0,
				tl.Margin(x, y).Cmp(tl.Margin(y, x).Neg()),
				"margin(%d,%d) is not the negation of margin(%d,%d)",
				x, y, y, x,
			)
		}
	}
}

func TestPairElection(t *testing.T) {
	tl := newTestTally(t, 2, 3)
	castVotes(t, tl, []testVote{
		{ranking: []uint32{0, 1}, power: 1},
		{ranking: []uint32{1, 0}, power: 1},
		{ranking: []uint32{1, 0}, power: 1},
	})
	assert.Equal(
		t,
		tally.Winner{Kind: tally.WinnerUndisputed, Candidate: 1},
		tl.Winner(),
	)
	assert.True(t, tl.Outstanding().IsZero())
}

func TestCondorcetParadox(t *testing.T) {
	tl := newTestTally(t, 3, 6)
	castVotes(t, tl, []testVote{
		{ranking: []uint32{0, 2, 1}, power: 1},
		{ranking: []uint32{1, 0, 2}, power: 1},
		{ranking: []uint32{2, 1, 0}, power: 1},
		{ranking: []uint32{1, 0, 2}, power: 1},
		{ranking: []uint32{0, 2, 1}, power: 1},
		{ranking: []uint32{2, 0, 1}, power: 1},
	})
	assert.Equal(t, tally.WinnerNever, tl.Winner().Kind)
	assert.True(t, tl.Margin(0, 1).IsZero())
	assert.Equal(t, "2", tl.Margin(0, 2).String())
	assert.Equal(t, "2", tl.Margin(2, 1).String())
	assert.Equal(t, "-2", tl.Margin(1, 2).String())
}

func TestNoWinnerYet(t *testing.T) {
	tl := newTestTally(t, 2, 10)
	castVotes(t, tl, []testVote{
		{ranking: []uint32{0, 1}, power: 1},
		{ranking: []uint32{1, 0}, power: 1},
	})
	assert.Equal(t, tally.WinnerNone, tl.Winner().Kind)
}

func TestSomeWinner(t *testing.T) {
	tl := newTestTally(t, 2, 10)
	castVotes(t, tl, []testVote{
		{ranking: []uint32{0, 1}, power: 3},
	})
	assert.Equal(
		t,
		tally.Winner{Kind: tally.WinnerSome, Candidate: 0},
		tl.Winner(),
	)
	// 3 more power on top makes the lead larger than what is left
	castVotes(t, tl, []testVote{
		{ranking: []uint32{0, 1}, power: 3},
	})
	assert.Equal(
		t,
		tally.Winner{Kind: tally.WinnerUndisputed, Candidate: 0},
		tl.Winner(),
	)
}

func TestNewTallyComputesWinner(t *testing.T) {
	tl := newTestTally(t, 3, 10)
	assert.Equal(t, tally.WinnerNone, tl.Winner().Kind)
	// Nothing can ever be won without voting power
	empty := newTestTally(t, 3, 0)
	assert.Equal(t, tally.WinnerNever, empty.Winner().Kind)
}

func TestTooFewCandidates(t *testing.T) {
	_, err := tally.New(1, tally.NewAmount(1), 0, chain.Never())
	require.ErrorIs(t, err, tally.ErrTooFewCandidates)
}

func TestPartialRanking(t *testing.T) {
	tl := newTestTally(t, 4, 10)
	castVotes(t, tl, []testVote{
		{ranking: []uint32{2, 0}, power: 4},
	})
	assert.Equal(t, "4", tl.Margin(2, 0).String())
	// Unranked candidates are not compared
	assert.True(t, tl.Margin(2, 1).IsZero())
	assert.True(t, tl.Margin(1, 3).IsZero())
	assert.True(t, tl.Margin(0, 3).IsZero())
	assert.Equal(t, "6", tl.Outstanding().String())
}

func TestOverflowSafety(t *testing.T) {
	half, err := tally.AmountFromBig(
		new(big.Int).Rsh(tally.MaxAmount().Big(), 1),
	)
	require.NoError(t, err)
	halfMinusOne, err := half.CheckedSub(tally.NewAmount(1))
	require.NoError(t, err)
	total, err := half.CheckedAdd(halfMinusOne)
	require.NoError(t, err)
	tl, err := tally.New(6, total, 1, chain.Never())
	require.NoError(t, err)
	v1, err := tally.NewVote([]uint32{1, 2, 3, 4, 5, 0}, 6)
	require.NoError(t, err)
	v2, err := tally.NewVote([]uint32{0, 1, 2, 3, 4, 5}, 6)
	require.NoError(t, err)
	require.NotPanics(t, func() {
		tl.AddVote(v1, half)
		tl.AddVote(v2, halfMinusOne)
	})
	assert.Equal(
		t,
		tally.Winner{Kind: tally.WinnerUndisputed, Candidate: 1},
		tl.Winner(),
	)
	assert.True(t, tl.Outstanding().IsZero())
	requireAntisymmetric(t, tl)
}

func TestAddVoteExceedingOutstandingPanics(t *testing.T) {
	tl := newTestTally(t, 2, 1)
	vote, err := tally.NewVote([]uint32{0, 1}, 2)
	require.NoError(t, err)
	require.Panics(t, func() {
		tl.AddVote(vote, tally.NewAmount(2))
	})
}

func TestConservationAndUndisputedMonotonicity(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 1024))
	for round := range 200 {
		candidates := uint32(2 + rng.IntN(5))
		voters := 1 + rng.IntN(12)
		powers := make([]uint64, voters)
		var total uint64
		for i := range powers {
			powers[i] = 1 + rng.Uint64N(50)
			total += powers[i]
		}
		tl := newTestTally(t, candidates, total)
		var cast uint64
		var locked *tally.Winner
		for _, power := range powers {
			perm := rng.Perm(int(candidates))
			ranking := make([]uint32, 1+rng.IntN(int(candidates)))
			for i := range ranking {
				ranking[i] = uint32(perm[i]) //nolint:gosec
			}
			vote, err := tally.NewVote(ranking, candidates)
			require.NoError(t, err)
			tl.AddVote(vote, tally.NewAmount(power))
			cast += power
			requireAntisymmetric(t, tl)
			require.Equal(
				t,
				tally.NewAmount(total-cast),
				tl.Outstanding(),
				"round %d: outstanding power mismatch",
				round,
			)
			if locked != nil {
				require.Equal(
					t,
					*locked,
					tl.Winner(),
					"round %d: undisputed winner changed",
					round,
				)
				continue
			}
			if tl.Winner().Kind == tally.WinnerUndisputed {
				w := tl.Winner()
				locked = &w
			}
		}
	}
}

func TestTallyCborRoundTrip(t *testing.T) {
	tl := newTestTally(t, 3, 6)
	castVotes(t, tl, []testVote{
		{ranking: []uint32{0, 2, 1}, power: 2},
		{ranking: []uint32{1, 0}, power: 1},
	})
	data, err := cbor.Marshal(tl)
	require.NoError(t, err)
	var decoded tally.Tally
	require.NoError(t, cbor.Unmarshal(data, &decoded))
	assert.Equal(t, tl.Snapshot(), decoded.Snapshot())
}
