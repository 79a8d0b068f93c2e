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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blinklabs-io/condorcet/chain"
	"github.com/blinklabs-io/condorcet/database"
	"github.com/blinklabs-io/condorcet/governance"
	"github.com/blinklabs-io/condorcet/proposal"
	"github.com/blinklabs-io/condorcet/tally"
	"github.com/blinklabs-io/condorcet/voting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *chain.ManualClock) {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	clock := chain.NewManualClock(chain.Block{
		Height: 1,
		Time:   time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	govCfg := proposal.DefaultConfig()
	govCfg.VotingPeriod = chain.Heights(10)
	engine, err := governance.NewEngine(governance.EngineConfig{
		Database:         db,
		Clock:            clock,
		GovernanceConfig: &govCfg,
	})
	require.NoError(t, err)
	require.NoError(t, engine.Start())
	t.Cleanup(func() { _ = engine.Stop() })
	srv := httptest.NewServer(New(Config{}, engine, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, clock
}

func doRequest(
	t *testing.T,
	srv *httptest.Server,
	method string,
	path string,
	body any,
	dest any,
) int {
	t.Helper()
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(
		context.Background(),
		method,
		srv.URL+path,
		reqBody,
	)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if dest != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
	}
	return resp.StatusCode
}

func setPower(t *testing.T, srv *httptest.Server, address string, power uint64) {
	t.Helper()
	status := doRequest(
		t,
		srv,
		http.MethodPut,
		"/api/v1/voting-power/"+address,
		VotingPowerRequest{Power: tally.NewAmount(power)},
		nil,
	)
	require.Equal(t, http.StatusOK, status)
}

func TestRootAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	var root RootResponse
	require.Equal(t, http.StatusOK, doRequest(t, srv, http.MethodGet, "/", nil, &root))
	assert.Equal(t, "condorcet", root.Name)
	assert.Equal(t, "checkpointed", root.VotingModule)
	var health HealthResponse
	require.Equal(t, http.StatusOK, doRequest(t, srv, http.MethodGet, "/health", nil, &health))
	assert.True(t, health.IsHealthy)
	assert.Equal(t, uint64(1), health.Block.Height)
	assert.Equal(t, http.StatusNotFound, doRequestRaw(t, srv, http.MethodGet, "/nope"))
}

// doRequestRaw returns the status code without decoding the body
func doRequestRaw(t *testing.T, srv *httptest.Server, method, path string) int {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, srv.URL+path, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestProposalLifecycle(t *testing.T) {
	srv, clock := newTestServer(t)
	setPower(t, srv, "alice", 60)
	setPower(t, srv, "bob", 40)
	clock.Advance(1, 0)

	var power VotingPowerResponse
	require.Equal(
		t,
		http.StatusOK,
		doRequest(t, srv, http.MethodGet, "/api/v1/voting-power/bob?height=2", nil, &power),
	)
	assert.Equal(t, "40", power.Power.String())

	var created ProposeResponse
	status := doRequest(t, srv, http.MethodPost, "/api/v1/proposals", governance.ProposeRequest{
		Proposer: "alice",
		Title:    "Raise the fee",
		Choices: []proposal.Choice{
			{Messages: []proposal.Message{{Type: "params/set", Data: []byte("fee=2")}}},
			{Messages: []proposal.Message{{Type: "params/set", Data: []byte("fee=3")}}},
		},
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, uint64(1), created.ID)

	var voted ProposalResponse
	status = doRequest(t, srv, http.MethodPost, "/api/v1/proposals/1/votes", VoteRequest{
		Voter:   "bob",
		Ranking: []uint32{1, 0},
	}, &voted)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, proposal.StatusOpen, voted.Status)
	assert.Equal(t, "60", voted.Outstanding.String())
	assert.Nil(t, voted.Winner)

	var errResp ErrorResponse
	status = doRequest(t, srv, http.MethodPost, "/api/v1/proposals/1/votes", VoteRequest{
		Voter:   "bob",
		Ranking: []uint32{0},
	}, &errResp)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, http.StatusConflict, errResp.StatusCode)

	status = doRequest(t, srv, http.MethodPost, "/api/v1/proposals/1/votes", VoteRequest{
		Voter:   "alice",
		Ranking: []uint32{0, 7},
	}, &errResp)
	assert.Equal(t, http.StatusBadRequest, status)

	status = doRequest(t, srv, http.MethodPost, "/api/v1/proposals/1/votes", VoteRequest{
		Voter:   "alice",
		Ranking: []uint32{0, 1, 2},
	}, &voted)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, proposal.StatusPassed, voted.Status)
	require.NotNil(t, voted.Winner)
	assert.Equal(t, uint32(0), *voted.Winner)

	var snapshot tally.Snapshot
	require.Equal(
		t,
		http.StatusOK,
		doRequest(t, srv, http.MethodGet, "/api/v1/proposals/1/tally", nil, &snapshot),
	)
	assert.Equal(t, uint32(3), snapshot.Candidates)
	// alice 0>1 (+60), bob 1>0 (+40)
	assert.Equal(t, "20", snapshot.Margins[0][1].String())

	var ballots []BallotResponse
	require.Equal(
		t,
		http.StatusOK,
		doRequest(t, srv, http.MethodGet, "/api/v1/proposals/1/votes", nil, &ballots),
	)
	require.Len(t, ballots, 2)

	var executed ExecuteResponse
	require.Equal(
		t,
		http.StatusAccepted,
		doRequest(t, srv, http.MethodPost, "/api/v1/proposals/1/execute", nil, &executed),
	)
	require.Len(t, executed.Messages, 1)
	assert.Equal(t, []byte("fee=2"), executed.Messages[0].Data)
	assert.Equal(
		t,
		http.StatusConflict,
		doRequest(t, srv, http.MethodPost, "/api/v1/proposals/1/execute", nil, &errResp),
	)

	// A second proposal expires without votes and can be closed
	require.Equal(
		t,
		http.StatusCreated,
		doRequest(t, srv, http.MethodPost, "/api/v1/proposals", governance.ProposeRequest{
			Proposer: "bob",
			Choices:  []proposal.Choice{{}},
		}, &created),
	)
	clock.Advance(10, time.Hour)
	var got ProposalResponse
	require.Equal(
		t,
		http.StatusOK,
		doRequest(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/proposals/%d", created.ID), nil, &got),
	)
	assert.Equal(t, proposal.StatusRejected, got.Status)
	require.Equal(
		t,
		http.StatusOK,
		doRequest(t, srv, http.MethodPost, "/api/v1/proposals/2/close", nil, &got),
	)
	assert.Equal(t, proposal.StatusClosed, got.Status)

	var list []ProposalResponse
	require.Equal(
		t,
		http.StatusOK,
		doRequest(t, srv, http.MethodGet, "/api/v1/proposals?status=closed", nil, &list),
	)
	require.Len(t, list, 1)
	assert.Equal(t, uint64(2), list[0].ID)
	require.Equal(
		t,
		http.StatusOK,
		doRequest(t, srv, http.MethodGet, "/api/v1/proposals?order=desc&limit=1", nil, &list),
	)
	require.Len(t, list, 1)
	assert.Equal(t, uint64(2), list[0].ID)
}

func TestRequestValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	var errResp ErrorResponse
	testDefs := []struct {
		method         string
		path           string
		body           any
		expectedStatus int
	}{
		{http.MethodGet, "/api/v1/proposals/abc", nil, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/proposals/42", nil, http.StatusNotFound},
		{http.MethodGet, "/api/v1/proposals/42/tally", nil, http.StatusNotFound},
		{http.MethodGet, "/api/v1/proposals?status=bogus", nil, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/proposals?order=sideways", nil, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/voting-power/alice?height=x", nil, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/proposals", map[string]any{"proposer": "alice", "extra": 1}, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/proposals", governance.ProposeRequest{Choices: []proposal.Choice{{}}}, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/proposals", governance.ProposeRequest{Proposer: "nobody", Choices: []proposal.Choice{{}}}, http.StatusBadRequest},
		{http.MethodPost, "/api/v1/proposals/42/close", nil, http.StatusNotFound},
		{http.MethodPut, "/api/v1/voting-power/alice", map[string]any{"power": "-5"}, http.StatusBadRequest},
		{http.MethodPut, "/api/v1/config", map[string]any{"quorum": "2", "voting_period": map[string]any{"height": 5}, "max_choices": 3}, http.StatusBadRequest},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.method+" "+testDef.path, func(t *testing.T) {
			status := doRequest(t, srv, testDef.method, testDef.path, testDef.body, &errResp)
			assert.Equal(t, testDef.expectedStatus, status)
			assert.Equal(t, testDef.expectedStatus, errResp.StatusCode)
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestConfigEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	var cfg proposal.Config
	require.Equal(t, http.StatusOK, doRequest(t, srv, http.MethodGet, "/api/v1/config", nil, &cfg))
	assert.Equal(t, chain.Heights(10), cfg.VotingPeriod)
	cfg.VotingPeriod = chain.Period(time.Hour)
	cfg.MaxChoices = 4
	var updated proposal.Config
	require.Equal(t, http.StatusOK, doRequest(t, srv, http.MethodPut, "/api/v1/config", cfg, &updated))
	require.Equal(t, http.StatusOK, doRequest(t, srv, http.MethodGet, "/api/v1/config", nil, &updated))
	assert.Equal(t, chain.Period(time.Hour), updated.VotingPeriod)
	assert.Equal(t, uint32(4), updated.MaxChoices)
}

func TestStatusFromError(t *testing.T) {
	testDefs := []struct {
		err            error
		expectedStatus int
	}{
		{fmt.Errorf("wrapped: %w", tally.ErrDuplicateCandidate), http.StatusBadRequest},
		{proposal.ErrZeroVotingPower, http.StatusBadRequest},
		{governance.ErrInvalidConfig, http.StatusBadRequest},
		{governance.ErrProposalNotFound, http.StatusNotFound},
		{proposal.ErrNotOpen, http.StatusConflict},
		{governance.ErrAlreadyVoted, http.StatusConflict},
		{voting.ErrReadOnly, http.StatusConflict},
		{governance.ErrStopped, http.StatusServiceUnavailable},
		{governance.ErrInvariantViolation, http.StatusInternalServerError},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, testDef := range testDefs {
		assert.Equal(t, testDef.expectedStatus, statusFromError(testDef.err), testDef.err.Error())
	}
}

func TestStartStop(t *testing.T) {
	s := New(Config{ListenAddress: "127.0.0.1:0"}, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	require.Error(t, s.Start(ctx))
	assert.NotEmpty(t, s.Addr())
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	require.NoError(t, s.Stop(stopCtx))
	require.NoError(t, s.Stop(stopCtx))
}
