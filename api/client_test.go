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

package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/blinklabs-io/condorcet/governance"
	"github.com/blinklabs-io/condorcet/proposal"
	"github.com/blinklabs-io/condorcet/tally"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	srv, clock := newTestServer(t)
	client := NewClient(srv.URL+"/", WithHTTPClient(srv.Client()))
	ctx := context.Background()

	health, err := client.Health(ctx)
	require.NoError(t, err)
	assert.True(t, health.IsHealthy)

	_, err = client.SetVotingPower(ctx, "alice", tally.NewAmount(70))
	require.NoError(t, err)
	_, err = client.SetVotingPower(ctx, "bob", tally.NewAmount(30))
	require.NoError(t, err)
	power, err := client.VotingPower(ctx, "alice", nil)
	require.NoError(t, err)
	assert.Equal(t, "70", power.Power.String())
	clock.Advance(1, 0)

	id, err := client.Propose(ctx, governance.ProposeRequest{
		Proposer: "bob",
		Title:    "Rename the project",
		Choices: []proposal.Choice{
			{Messages: []proposal.Message{{Type: "rename", Data: []byte("tally")}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	voted, err := client.Vote(ctx, id, "alice", []uint32{0, 1})
	require.NoError(t, err)
	assert.Equal(t, proposal.StatusPassed, voted.Status)

	_, err = client.Vote(ctx, id, "alice", []uint32{1, 0})
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusConflict))

	got, err := client.Proposal(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.Winner)
	assert.Equal(t, uint32(0), *got.Winner)

	snapshot, err := client.Tally(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, string(snapshot), "margins")

	ballots, err := client.Ballots(ctx, id)
	require.NoError(t, err)
	require.Len(t, ballots, 1)
	assert.Equal(t, "alice", ballots[0].Voter)

	executed, err := client.Execute(ctx, id)
	require.NoError(t, err)
	require.Len(t, executed.Messages, 1)
	assert.Equal(t, "rename", executed.Messages[0].Type)

	status := proposal.StatusExecuted
	list, err := client.List(ctx, governance.ListFilter{Status: &status, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = client.Close(ctx, id)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusConflict))

	_, err = client.Proposal(ctx, 42)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.NotEmpty(t, apiErr.Message)

	cfg, err := client.Config(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), cfg.VotingPeriod.Height)
}
