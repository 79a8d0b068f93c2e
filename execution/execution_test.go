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

package execution_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/blinklabs-io/condorcet/execution"
	"github.com/blinklabs-io/condorcet/proposal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var testRequest = execution.Request{
	ProposalID: 7,
	Choice:     1,
	Messages: []proposal.Message{
		{Type: "bank/send", Data: []byte(`{"to":"bob"}`)},
	},
}

func TestSinkFunc(t *testing.T) {
	var got execution.Request
	sink := execution.SinkFunc(func(_ context.Context, req execution.Request) error {
		got = req
		return errors.New("boom")
	})
	require.EqualError(t, sink.Execute(context.Background(), testRequest), "boom")
	assert.Equal(t, testRequest, got)
}

func TestLogSink(t *testing.T) {
	sink := execution.NewLogSink(nil)
	require.NoError(t, sink.Execute(context.Background(), testRequest))
	require.NoError(t, sink.Execute(context.Background(), execution.Request{ProposalID: 1}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sink.Execute(ctx, testRequest), context.Canceled)
}

func TestWebhookSink(t *testing.T) {
	defer goleak.VerifyNone(t)
	var received execution.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Token"))
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if received.Choice != 1 {
			http.Error(w, "unexpected choice", http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()
	client := server.Client()
	defer client.CloseIdleConnections()

	sink := execution.NewWebhookSink(
		server.URL,
		execution.WithWebhookClient(client),
		execution.WithWebhookHeader("X-Token", "secret"),
	)
	require.NoError(t, sink.Execute(context.Background(), testRequest))
	assert.Equal(t, testRequest, received)

	req := testRequest
	req.Choice = 0
	err := sink.Execute(context.Background(), req)
	require.ErrorIs(t, err, execution.ErrExecutionFailed)
	assert.Contains(t, err.Error(), "unexpected choice")
}

func TestWebhookSinkUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	sink := execution.NewWebhookSink(url)
	err := sink.Execute(context.Background(), testRequest)
	require.ErrorIs(t, err, execution.ErrExecutionFailed)
}
