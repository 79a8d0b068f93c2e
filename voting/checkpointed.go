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

package voting

import (
	"context"

	"github.com/blinklabs-io/condorcet/database"
	"github.com/blinklabs-io/condorcet/tally"
)

// Checkpointed reads voting power from the checkpoints kept in the
// database. Power at a height is the power in effect when that block
// began: a checkpoint written at height H is visible from H+1.
type Checkpointed struct {
	db *database.Database
}

var (
	_ Module = (*Checkpointed)(nil)
	_ Writer = (*Checkpointed)(nil)
)

func NewCheckpointed(db *database.Database) *Checkpointed {
	return &Checkpointed{db: db}
}

func (c *Checkpointed) VotingPowerAtHeight(
	ctx context.Context,
	txn *database.Txn,
	address string,
	height uint64,
) (tally.Amount, error) {
	if err := ctx.Err(); err != nil {
		return tally.Amount{}, err
	}
	if height == 0 {
		return tally.Amount{}, nil
	}
	return c.db.GetVotingPower(address, height-1, txn)
}

func (c *Checkpointed) TotalPowerAtHeight(
	ctx context.Context,
	txn *database.Txn,
	height uint64,
) (tally.Amount, error) {
	if err := ctx.Err(); err != nil {
		return tally.Amount{}, err
	}
	if height == 0 {
		return tally.Amount{}, nil
	}
	return c.db.GetTotalPower(height-1, txn)
}

// SetVotingPower writes a checkpoint and keeps the total power series in
// step within the same transaction
func (c *Checkpointed) SetVotingPower(
	ctx context.Context,
	txn *database.Txn,
	address string,
	height uint64,
	power tally.Amount,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.db.SetVotingPower(address, height, power, txn)
}

func (c *Checkpointed) Info(context.Context) Info {
	return Info{
		Kind:        "checkpointed",
		Description: "voting power checkpoints stored in the metadata database",
	}
}
