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
	"errors"
	"net/http"

	"github.com/blinklabs-io/condorcet/chain"
	"github.com/blinklabs-io/condorcet/governance"
	"github.com/blinklabs-io/condorcet/proposal"
	"github.com/blinklabs-io/condorcet/tally"
	"github.com/blinklabs-io/condorcet/voting"
)

// ErrBadRequest marks malformed requests
var ErrBadRequest = errors.New("bad request")

var (
	badRequestErrors = []error{
		ErrBadRequest,
		tally.ErrInvalidVote,
		tally.ErrCandidateOutOfRange,
		tally.ErrDuplicateCandidate,
		tally.ErrTooFewCandidates,
		tally.ErrInvalidAmount,
		proposal.ErrZeroChoices,
		proposal.ErrTooManyChoices,
		proposal.ErrZeroTotalPower,
		proposal.ErrZeroVotingPower,
		proposal.ErrInvalidVotingPeriod,
		proposal.ErrInvalidThreshold,
		chain.ErrInvalidDuration,
		governance.ErrProposerWithoutPower,
		governance.ErrInvalidConfig,
	}
	conflictErrors = []error{
		proposal.ErrNotOpen,
		proposal.ErrNotPassed,
		proposal.ErrNotRejected,
		proposal.ErrNotExecuted,
		governance.ErrAlreadyVoted,
		voting.ErrReadOnly,
	}
)

// statusFromError maps a governance error onto an HTTP status code
func statusFromError(err error) int {
	for _, e := range badRequestErrors {
		if errors.Is(err, e) {
			return http.StatusBadRequest
		}
	}
	if errors.Is(err, governance.ErrProposalNotFound) {
		return http.StatusNotFound
	}
	for _, e := range conflictErrors {
		if errors.Is(err, e) {
			return http.StatusConflict
		}
	}
	switch {
	case errors.Is(err, governance.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
