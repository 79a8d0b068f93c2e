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
)

var ErrTooFewCandidates = errors.New("at least two candidates are required")

// Matrix holds the pairwise margins between n candidates. Only one cell per
// unordered pair is stored: cell {x,y} with x<y holds margin(x,y), and
// margin(y,x) is read back as its negation.
type Matrix struct {
	_     struct{} `cbor:",toarray"`
	N     uint32
	Cells []Margin
}

// NewMatrix returns a zeroed matrix for n candidates
func NewMatrix(n uint32) (*Matrix, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewCandidates, n)
	}
	return &Matrix{
		N:     n,
		Cells: make([]Margin, uint64(n)*uint64(n-1)/2),
	}, nil
}

// index returns the cell index of the unordered pair {x,y}, with x<y
func (m *Matrix) index(x, y uint32) int {
	// Rows above x contribute (n-1) + (n-2) + ... + (n-x) cells
	n := uint64(m.N)
	lo := uint64(x)
	return int(lo*(2*n-lo-1)/2 + uint64(y) - lo - 1) //nolint:gosec
}

func (m *Matrix) checkPair(x, y uint32) {
	if x == y || x >= m.N || y >= m.N {
		panic(
			fmt.Sprintf(
				"invalid candidate pair (%d, %d) for %d candidates",
				x, y, m.N,
			),
		)
	}
}

// Margin returns how far x leads y
func (m *Matrix) Margin(x, y uint32) Margin {
	m.checkPair(x, y)
	if x < y {
		return m.Cells[m.index(x, y)]
	}
	return m.Cells[m.index(y, x)].Neg()
}

// Decrement subtracts power from margin(x,y), which is the same as adding it
// to margin(y,x)
func (m *Matrix) Decrement(x, y uint32, power Amount) {
	m.checkPair(x, y)
	if x < y {
		idx := m.index(x, y)
		m.Cells[idx] = m.Cells[idx].Sub(power)
		return
	}
	idx := m.index(y, x)
	m.Cells[idx] = m.Cells[idx].Add(power)
}

// StatsKind distinguishes the two Stats outcomes
type StatsKind uint8

const (
	NoPositiveColumn StatsKind = iota
	PositiveColumn
)

// Stats summarizes the matrix columns. For PositiveColumn, Column and
// MinMargin describe the column. For NoPositiveColumn, NoWinnableColumns
// reports whether no column could ever become all positive.
type Stats struct {
	Kind              StatsKind
	Column            uint32
	MinMargin         Margin
	NoWinnableColumns bool
}

// minMargin returns the smallest margin of candidate c against every other candidate
func (m *Matrix) minMargin(c uint32) Margin {
	var res Margin
	first := true
	for r := range m.N {
		if r == c {
			continue
		}
		v := m.Margin(c, r)
		if first || v.Cmp(res) < 0 {
			res = v
			first = false
		}
	}
	return res
}

// Stats scans all columns. The column with the largest positive minimum
// margin wins, lowest index first on ties.
func (m *Matrix) Stats(outstanding Amount) Stats {
	var (
		best       Stats
		found      bool
		noWinnable = true
	)
	for c := range m.N {
		mm := m.minMargin(c)
		if mm.Winnable(outstanding) {
			noWinnable = false
		}
		if !mm.IsPositive() {
			continue
		}
		if !found || mm.Cmp(best.MinMargin) > 0 {
			best = Stats{
				Kind:      PositiveColumn,
				Column:    c,
				MinMargin: mm,
			}
			found = true
		}
	}
	if found {
		return best
	}
	return Stats{
		Kind:              NoPositiveColumn,
		NoWinnableColumns: noWinnable,
	}
}

// Clone returns a deep copy
func (m *Matrix) Clone() *Matrix {
	cells := make([]Margin, len(m.Cells))
	copy(cells, m.Cells)
	return &Matrix{N: m.N, Cells: cells}
}
