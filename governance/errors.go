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

package governance

import (
	"errors"

	"github.com/blinklabs-io/condorcet/database/models"
)

var (
	ErrStopped              = errors.New("governance engine is stopped")
	ErrInvariantViolation   = errors.New("invariant violation")
	ErrAlreadyVoted         = errors.New("voter has already voted on this proposal")
	ErrProposerWithoutPower = errors.New("proposer has no voting power")
	ErrInvalidConfig        = errors.New("invalid governance config")
	ErrProposalNotFound     = models.ErrProposalNotFound
)
