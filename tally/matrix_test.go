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

func TestMatrixCells(t *testing.T) {
	m, err := tally.NewMatrix(5)
	require.NoError(t, err)
	assert.Len(t, m.Cells, 10)
	// Give every pair a distinct margin and read it back from both sides
	var power uint64 = 1
	for x := range uint32(5) {
		for y := x + 1; y < 5; y++ {
			m.Decrement(y, x, tally.NewAmount(power))
			power++
		}
	}
	power = 1
	for x := range uint32(5) {
		for y := x + 1; y < 5; y++ {
			assert.Equal(t, tally.PositiveMargin(tally.NewAmount(power)), m.Margin(x, y))
			assert.Equal(t, tally.NegativeMargin(tally.NewAmount(power)), m.Margin(y, x))
			power++
		}
	}
}

func TestMatrixInvalidPairPanics(t *testing.T) {
	m, err := tally.NewMatrix(3)
	require.NoError(t, err)
	require.Panics(t, func() { m.Margin(1, 1) })
	require.Panics(t, func() { m.Decrement(0, 3, tally.NewAmount(1)) })
}

func TestMatrixStats(t *testing.T) {
	testDefs := []struct {
		name        string
		outstanding uint64
		setup       func(*tally.Matrix)
		expected    tally.Stats
	}{
		{
			name:        "empty with power left",
			outstanding: 1,
			setup:       func(*tally.Matrix) {},
			expected:    tally.Stats{Kind: tally.NoPositiveColumn},
		},
		{
			name:        "empty without power left",
			outstanding: 0,
			setup:       func(*tally.Matrix) {},
			expected: tally.Stats{
				Kind:              tally.NoPositiveColumn,
				NoWinnableColumns: true,
			},
		},
		{
			name:        "condorcet winner",
			outstanding: 0,
			setup: func(m *tally.Matrix) {
				// 2 beats 0 by 3 and 1 by 1
				m.Decrement(0, 2, tally.NewAmount(3))
				m.Decrement(1, 2, tally.NewAmount(1))
			},
			expected: tally.Stats{
				Kind:      tally.PositiveColumn,
				Column:    2,
				MinMargin: tally.PositiveMargin(tally.NewAmount(1)),
			},
		},
		{
			name:        "deficit recoverable",
			outstanding: 3,
			setup: func(m *tally.Matrix) {
				// cycle of margin 2
				m.Decrement(1, 0, tally.NewAmount(2))
				m.Decrement(2, 1, tally.NewAmount(2))
				m.Decrement(0, 2, tally.NewAmount(2))
			},
			expected: tally.Stats{Kind: tally.NoPositiveColumn},
		},
		{
			name:        "deficit not recoverable",
			outstanding: 2,
			setup: func(m *tally.Matrix) {
				m.Decrement(1, 0, tally.NewAmount(2))
				m.Decrement(2, 1, tally.NewAmount(2))
				m.Decrement(0, 2, tally.NewAmount(2))
			},
			expected: tally.Stats{
				Kind:              tally.NoPositiveColumn,
				NoWinnableColumns: true,
			},
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			m, err := tally.NewMatrix(3)
			require.NoError(t, err)
			testDef.setup(m)
			assert.Equal(
				t,
				testDef.expected,
				m.Stats(tally.NewAmount(testDef.outstanding)),
			)
		})
	}
}
