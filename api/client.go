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
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/condorcet/governance"
	"github.com/blinklabs-io/condorcet/proposal"
	"github.com/blinklabs-io/condorcet/tally"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxResponseSize = 16 << 20

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

type ClientOptionFunc func(*Client)

// WithHTTPClient specifies the HTTP client used for requests
func WithHTTPClient(httpClient *http.Client) ClientOptionFunc {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client talks to a running governance API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, opts ...ClientOptionFunc) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body any,
	out any,
) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func proposalPath(id uint64, suffix string) string {
	return "/api/v1/proposals/" + strconv.FormatUint(id, 10) + suffix
}

func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var ret HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &ret)
	return ret, err
}

func (c *Client) Propose(
	ctx context.Context,
	req governance.ProposeRequest,
) (uint64, error) {
	var ret ProposeResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/proposals", req, &ret); err != nil {
		return 0, err
	}
	return ret.ID, nil
}

func (c *Client) Vote(
	ctx context.Context,
	id uint64,
	voter string,
	ranking []uint32,
) (ProposalResponse, error) {
	var ret ProposalResponse
	err := c.do(
		ctx,
		http.MethodPost,
		proposalPath(id, "/votes"),
		VoteRequest{Voter: voter, Ranking: ranking},
		&ret,
	)
	return ret, err
}

func (c *Client) Proposal(ctx context.Context, id uint64) (ProposalResponse, error) {
	var ret ProposalResponse
	err := c.do(ctx, http.MethodGet, proposalPath(id, ""), nil, &ret)
	return ret, err
}

func (c *Client) Tally(ctx context.Context, id uint64) (json.RawMessage, error) {
	var ret json.RawMessage
	err := c.do(ctx, http.MethodGet, proposalPath(id, "/tally"), nil, &ret)
	return ret, err
}

func (c *Client) Ballots(ctx context.Context, id uint64) ([]BallotResponse, error) {
	var ret []BallotResponse
	err := c.do(ctx, http.MethodGet, proposalPath(id, "/votes"), nil, &ret)
	return ret, err
}

func (c *Client) Execute(ctx context.Context, id uint64) (ExecuteResponse, error) {
	var ret ExecuteResponse
	err := c.do(ctx, http.MethodPost, proposalPath(id, "/execute"), nil, &ret)
	return ret, err
}

func (c *Client) Close(ctx context.Context, id uint64) (ProposalResponse, error) {
	var ret ProposalResponse
	err := c.do(ctx, http.MethodPost, proposalPath(id, "/close"), nil, &ret)
	return ret, err
}

func (c *Client) List(
	ctx context.Context,
	filter governance.ListFilter,
) ([]ProposalResponse, error) {
	query := url.Values{}
	if filter.Status != nil {
		query.Set("status", filter.Status.String())
	}
	if filter.StartAfter > 0 {
		query.Set("start_after", strconv.FormatUint(filter.StartAfter, 10))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Reverse {
		query.Set("order", "desc")
	}
	path := "/api/v1/proposals"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var ret []ProposalResponse
	err := c.do(ctx, http.MethodGet, path, nil, &ret)
	return ret, err
}

func (c *Client) Config(ctx context.Context) (proposal.Config, error) {
	var ret proposal.Config
	err := c.do(ctx, http.MethodGet, "/api/v1/config", nil, &ret)
	return ret, err
}

func (c *Client) VotingPower(
	ctx context.Context,
	address string,
	height *uint64,
) (VotingPowerResponse, error) {
	path := "/api/v1/voting-power/" + url.PathEscape(address)
	if height != nil {
		path += "?height=" + strconv.FormatUint(*height, 10)
	}
	var ret VotingPowerResponse
	err := c.do(ctx, http.MethodGet, path, nil, &ret)
	return ret, err
}

func (c *Client) SetVotingPower(
	ctx context.Context,
	address string,
	power tally.Amount,
) (VotingPowerResponse, error) {
	var ret VotingPowerResponse
	err := c.do(
		ctx,
		http.MethodPut,
		"/api/v1/voting-power/"+url.PathEscape(address),
		VotingPowerRequest{Power: power},
		&ret,
	)
	return ret, err
}

// IsStatus reports whether err is an APIError with the given status code
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
