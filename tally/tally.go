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

	"github.com/blinklabs-io/condorcet/chain"
	"github.com/fxamacker/cbor/v2"
)

// Tally tracks the pairwise margins of a ranked-choice election along with
// the voting power that has not been cast yet. The winner is recomputed
// after every vote.
type Tally struct {
	matrix      *Matrix
	outstanding Amount
	winner      Winner
	startHeight uint64
	expiration  chain.Expiration
}

// New creates a tally for the given number of candidates. The winner is
// computed the same way it is after a vote, so creating a tally costs the
// same as counting one.
func New(
	candidates uint32,
	totalPower Amount,
	startHeight uint64,
	expiration chain.Expiration,
) (*Tally, error) {
	m, err := NewMatrix(candidates)
	if err != nil {
		return nil, err
	}
	t := &Tally{
		matrix:      m,
		outstanding: totalPower,
		startHeight: startHeight,
		expiration:  expiration,
	}
	t.winner = t.computeWinner()
	return t, nil
}

func (t *Tally) computeWinner() Winner {
	return winnerFromStats(t.matrix.Stats(t.outstanding), t.outstanding)
}

// AddVote counts a ranking with the given power. Every candidate ranked
// earlier beats every candidate ranked later.
//
// The caller must have checked that power does not exceed the outstanding
// power. AddVote panics otherwise, as it means power was counted twice.
func (t *Tally) AddVote(vote Vote, power Amount) {
	if power.Cmp(t.outstanding) > 0 {
		panic(
			fmt.Sprintf(
				"vote power %s exceeds outstanding power %s",
				power,
				t.outstanding,
			),
		)
	}
	ranking := vote.ranking
	for i, preferred := range ranking {
		if preferred >= t.matrix.N {
			panic(
				fmt.Sprintf(
					"vote ranks candidate %d of %d",
					preferred,
					t.matrix.N,
				),
			)
		}
		for _, lessPreferred := range ranking[i+1:] {
			t.matrix.Decrement(lessPreferred, preferred, power)
		}
	}
	remaining, err := t.outstanding.CheckedSub(power)
	if err != nil {
		panic(err.Error())
	}
	t.outstanding = remaining
	t.winner = t.computeWinner()
}

func (t *Tally) Candidates() uint32 {
	return t.matrix.N
}

// Outstanding returns the voting power not cast yet
func (t *Tally) Outstanding() Amount {
	return t.outstanding
}

func (t *Tally) Winner() Winner {
	return t.winner
}

func (t *Tally) StartHeight() uint64 {
	return t.startHeight
}

func (t *Tally) Expiration() chain.Expiration {
	return t.expiration
}

// Margin returns how far candidate x leads candidate y
func (t *Tally) Margin(x, y uint32) Margin {
	return t.matrix.Margin(x, y)
}

// Snapshot is a read-only view of a tally
type Snapshot struct {
	Candidates  uint32           `json:"candidates"`
	Outstanding Amount           `json:"outstanding"`
	Winner      Winner           `json:"winner"`
	StartHeight uint64           `json:"start_height"`
	Expiration  chain.Expiration `json:"expiration"`
	// Margins[x][y] is how far x leads y, with zero on the diagonal
	Margins [][]Margin `json:"margins"`
}

func (t *Tally) Snapshot() Snapshot {
	n := t.matrix.N
	margins := make([][]Margin, n)
	for x := range n {
		margins[x] = make([]Margin, n)
		for y := range n {
			if x == y {
				continue
			}
			margins[x][y] = t.matrix.Margin(x, y)
		}
	}
	return Snapshot{
		Candidates:  n,
		Outstanding: t.outstanding,
		Winner:      t.winner,
		StartHeight: t.startHeight,
		Expiration:  t.expiration,
		Margins:     margins,
	}
}

// Clone returns a deep copy of the tally
func (t *Tally) Clone() *Tally {
	tmp := *t
	tmp.matrix = t.matrix.Clone()
	return &tmp
}

type tallyCbor struct {
	_           struct{} `cbor:",toarray"`
	Matrix      *Matrix
	Outstanding Amount
	Winner      Winner
	StartHeight uint64
	Expiration  chain.Expiration
}

func (t *Tally) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(
		tallyCbor{
			Matrix:      t.matrix,
			Outstanding: t.outstanding,
			Winner:      t.winner,
			StartHeight: t.startHeight,
			Expiration:  t.expiration,
		},
	)
}

func (t *Tally) UnmarshalCBOR(data []byte) error {
	var tmp tallyCbor
	if err := cbor.Unmarshal(data, &tmp); err != nil {
		return err
	}
	if tmp.Matrix == nil || tmp.Matrix.N < 2 {
		return errors.New("decoded tally has no matrix")
	}
	want := uint64(tmp.Matrix.N) * uint64(tmp.Matrix.N-1) / 2
	if uint64(len(tmp.Matrix.Cells)) != want {
		return fmt.Errorf(
			"decoded tally has %d cells, expected %d",
			len(tmp.Matrix.Cells),
			want,
		)
	}
	*t = Tally{
		matrix:      tmp.Matrix,
		outstanding: tmp.Outstanding,
		winner:      tmp.Winner,
		startHeight: tmp.StartHeight,
		expiration:  tmp.Expiration,
	}
	return nil
}
