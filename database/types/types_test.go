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

package types_test

import (
	"testing"

	"github.com/blinklabs-io/condorcet/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankingScanValue(t *testing.T) {
	testDefs := []struct {
		ranking       types.Ranking
		expectedValue string
	}{
		{ranking: types.Ranking{2, 0, 1}, expectedValue: "[2,0,1]"},
		{ranking: types.Ranking{7}, expectedValue: "[7]"},
		{ranking: nil, expectedValue: "[]"},
	}
	for _, testDef := range testDefs {
		value, err := testDef.ranking.Value()
		require.NoError(t, err)
		assert.Equal(t, testDef.expectedValue, value)
		var scanned types.Ranking
		require.NoError(t, scanned.Scan(value))
		assert.Equal(t, len(testDef.ranking), len(scanned))
		require.NoError(t, scanned.Scan([]byte(testDef.expectedValue)))
		assert.Equal(t, len(testDef.ranking), len(scanned))
	}
	var r types.Ranking
	require.Error(t, r.Scan(42))
	require.Error(t, r.Scan("not json"))
}

func TestProposalBlobKey(t *testing.T) {
	key := types.ProposalBlobKey(258)
	assert.Equal(t, []byte{'p', 0, 0, 0, 0, 0, 0, 1, 2}, key)
	id, err := types.ProposalIDFromBlobKey(key)
	require.NoError(t, err)
	assert.Equal(t, uint64(258), id)
	_, err = types.ProposalIDFromBlobKey([]byte("p123"))
	require.ErrorIs(t, err, types.ErrInvalidBlobKey)
	_, err = types.ProposalIDFromBlobKey(append([]byte("x"), key[1:]...))
	require.ErrorIs(t, err, types.ErrInvalidBlobKey)
}
