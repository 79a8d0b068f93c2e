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

// Package voting provides the voting power sources consulted by the
// governance engine
package voting

import (
	"context"
	"errors"

	"github.com/blinklabs-io/condorcet/database"
	"github.com/blinklabs-io/condorcet/tally"
)

var ErrReadOnly = errors.New("voting module does not accept voting power updates")

// Info describes a voting module
type Info struct {
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
}

// Module reports the voting power in effect at the start of a block, so
// updates made during a proposal's start block never reach its snapshot.
// Lookups run inside the caller's transaction, which may be nil.
type Module interface {
	VotingPowerAtHeight(
		ctx context.Context,
		txn *database.Txn,
		address string,
		height uint64,
	) (tally.Amount, error)
	TotalPowerAtHeight(
		ctx context.Context,
		txn *database.Txn,
		height uint64,
	) (tally.Amount, error)
	Info(ctx context.Context) Info
}

// Writer is implemented by modules that accept voting power updates
type Writer interface {
	SetVotingPower(
		ctx context.Context,
		txn *database.Txn,
		address string,
		height uint64,
		power tally.Amount,
	) error
}

// BallotBox records which voters have already voted on a proposal. It is
// implemented by database.Database.
type BallotBox interface {
	HasVoted(proposalID uint64, voter string, txn *database.Txn) (bool, error)
}

var _ BallotBox = (*database.Database)(nil)
