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

package node

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/blinklabs-io/condorcet/database"
	"github.com/blinklabs-io/condorcet/internal/config"
)

// Reindex rebuilds the metadata proposal index from the blob store. The node
// must not be running against the same database.
func Reindex(cfg *config.Config, logger *slog.Logger) (int, error) {
	db, err := database.New(
		&database.Config{
			BlobPlugin:     cfg.BlobPlugin,
			MetadataPlugin: cfg.MetadataPlugin,
			DataDir:        cfg.DatabasePath,
			Logger:         logger,
		},
	)
	if db == nil {
		return 0, err
	}
	defer db.Close()
	if err != nil {
		if !database.IsCommitTimestampError(err) {
			return 0, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Warn(
			"database initialization error, recovering",
			"component", "node",
			"error", err,
		)
		if err := db.RecoverCommitTimestampConflict(); err != nil {
			return 0, err
		}
	}
	start := time.Now()
	count, err := db.RebuildProposalIndex()
	if err != nil {
		return count, fmt.Errorf("failed to rebuild proposal index: %w", err)
	}
	logger.Info(
		fmt.Sprintf(
			"reindexed %d proposals in %s",
			count,
			time.Since(start).Round(time.Millisecond),
		),
		"component", "node",
	)
	return count, nil
}
