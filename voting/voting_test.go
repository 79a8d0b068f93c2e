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

package voting_test

import (
	"context"
	"testing"

	"github.com/blinklabs-io/condorcet/database"
	"github.com/blinklabs-io/condorcet/tally"
	"github.com/blinklabs-io/condorcet/voting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	ctx := context.Background()
	m, err := voting.NewStatic(map[string]tally.Amount{
		"alice": tally.NewAmount(3),
		"bob":   tally.NewAmount(4),
	})
	require.NoError(t, err)
	power, err := m.VotingPowerAtHeight(ctx, nil, "bob", 99)
	require.NoError(t, err)
	assert.Equal(t, "4", power.String())
	power, err = m.VotingPowerAtHeight(ctx, nil, "carol", 99)
	require.NoError(t, err)
	assert.True(t, power.IsZero())
	total, err := m.TotalPowerAtHeight(ctx, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, "7", total.String())
	assert.Equal(t, "static", m.Info(ctx).Kind)
	_, isWriter := any(m).(voting.Writer)
	assert.False(t, isWriter)
}

func TestStaticOverflow(t *testing.T) {
	_, err := voting.NewStatic(map[string]tally.Amount{
		"alice": tally.MaxAmount(),
		"bob":   tally.NewAmount(1),
	})
	require.ErrorIs(t, err, tally.ErrOverflow)
}

func TestCheckpointed(t *testing.T) {
	ctx := context.Background()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	defer db.Close()
	m := voting.NewCheckpointed(db)

	txn := db.Transaction(true)
	require.NoError(t, txn.Do(func(txn *database.Txn) error {
		if err := m.SetVotingPower(ctx, txn, "alice", 5, tally.NewAmount(10)); err != nil {
			return err
		}
		return m.SetVotingPower(ctx, txn, "bob", 5, tally.NewAmount(20))
	}))

	power, err := m.VotingPowerAtHeight(ctx, nil, "alice", 4)
	require.NoError(t, err)
	assert.True(t, power.IsZero())
	// Checkpoints take effect from the next block
	power, err = m.VotingPowerAtHeight(ctx, nil, "alice", 5)
	require.NoError(t, err)
	assert.True(t, power.IsZero())
	total, err := m.TotalPowerAtHeight(ctx, nil, 5)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
	power, err = m.VotingPowerAtHeight(ctx, nil, "alice", 6)
	require.NoError(t, err)
	assert.Equal(t, "10", power.String())
	power, err = m.VotingPowerAtHeight(ctx, nil, "alice", 0)
	require.NoError(t, err)
	assert.True(t, power.IsZero())
	total, err = m.TotalPowerAtHeight(ctx, nil, 6)
	require.NoError(t, err)
	assert.Equal(t, "30", total.String())

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.TotalPowerAtHeight(canceled, nil, 6)
	require.ErrorIs(t, err, context.Canceled)
}
