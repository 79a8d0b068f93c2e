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
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/blinklabs-io/condorcet/governance"
	"github.com/blinklabs-io/condorcet/internal/version"
	"github.com/blinklabs-io/condorcet/proposal"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000

	maxRequestBodySize = 1 << 20
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errStr string) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      errStr,
	})
}

// fail writes the error response for err. Server side failures are logged
// and their details withheld from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(
			"request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeError(w, status, http.StatusText(status))
		return
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", ErrBadRequest, err)
	}
	return nil
}

func pathID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid proposal ID %q", ErrBadRequest, r.PathValue("id"))
	}
	return id, nil
}

func parseListFilter(r *http.Request) (governance.ListFilter, error) {
	filter := governance.ListFilter{Limit: DefaultListLimit}
	query := r.URL.Query()
	if statusParam := query.Get("status"); statusParam != "" {
		status, err := proposal.ParseStatus(statusParam)
		if err != nil {
			return filter, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		filter.Status = &status
	}
	if startParam := query.Get("start_after"); startParam != "" {
		start, err := strconv.ParseUint(startParam, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("%w: invalid start_after", ErrBadRequest)
		}
		filter.StartAfter = start
	}
	if limitParam := query.Get("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil {
			return filter, fmt.Errorf("%w: invalid limit", ErrBadRequest)
		}
		filter.Limit = min(max(limit, 1), MaxListLimit)
	}
	if orderParam := query.Get("order"); orderParam != "" {
		switch strings.ToLower(orderParam) {
		case "asc":
		case "desc":
			filter.Reverse = true
		default:
			return filter, fmt.Errorf("%w: order must be asc or desc", ErrBadRequest)
		}
	}
	return filter, nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Name:         "condorcet",
		Version:      version.GetVersionString(),
		VotingModule: s.gov.VotingModuleInfo(r.Context()).Kind,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy: true,
		Block:     s.gov.Block(),
	})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.gov.Config(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg proposal.Config
	if err := decodeBody(w, r, &cfg); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.gov.UpdateConfig(r.Context(), cfg); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	proposals, err := s.gov.List(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ret := make([]ProposalResponse, 0, len(proposals))
	for _, p := range proposals {
		ret = append(ret, proposalResponse(p))
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) handlePropose(w http.ResponseWriter, r *http.Request) {
	var req governance.ProposeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Proposer == "" {
		s.fail(w, r, fmt.Errorf("%w: proposer is required", ErrBadRequest))
		return
	}
	id, err := s.gov.Propose(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/proposals/%d", id))
	writeJSON(w, http.StatusCreated, ProposeResponse{ID: id})
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.gov.Status(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposalResponse(p))
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	snapshot, err := s.gov.Tally(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleBallots(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ballots, err := s.gov.Ballots(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ret := make([]BallotResponse, 0, len(ballots))
	for _, b := range ballots {
		ret = append(ret, ballotResponse(b))
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req VoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Voter == "" {
		s.fail(w, r, fmt.Errorf("%w: voter is required", ErrBadRequest))
		return
	}
	p, err := s.gov.Vote(r.Context(), id, req.Voter, req.Ranking)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposalResponse(p))
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	msgs, err := s.gov.Execute(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []proposal.Message{}
	}
	writeJSON(w, http.StatusAccepted, ExecuteResponse{
		ProposalID: id,
		Messages:   msgs,
	})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.gov.Close(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proposalResponse(p))
}

func (s *Server) handleGetVotingPower(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	var height *uint64
	if heightParam := r.URL.Query().Get("height"); heightParam != "" {
		h, err := strconv.ParseUint(heightParam, 10, 64)
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: invalid height", ErrBadRequest))
			return
		}
		height = &h
	}
	power, err := s.gov.VotingPower(r.Context(), address, height)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := VotingPowerResponse{Address: address, Power: power}
	if height != nil {
		resp.Height = *height
	} else {
		resp.Height = s.gov.Block().Height
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetVotingPower(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	var req VotingPowerRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.gov.SetVotingPower(r.Context(), address, req.Power); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VotingPowerResponse{
		Address: address,
		Height:  s.gov.Block().Height,
		Power:   req.Power,
	})
}
