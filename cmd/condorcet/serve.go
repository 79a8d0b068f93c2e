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

package main

import (
	"fmt"

	"github.com/blinklabs-io/condorcet/internal/config"
	"github.com/blinklabs-io/condorcet/internal/node"
	"github.com/spf13/cobra"
)

// nodeCommand builds a command that needs the loaded config but no API client
func nodeCommand(
	use, short, long string,
	run func(*cobra.Command, *config.Config) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errNoConfig
			}
			return run(cmd, cfg)
		},
	}
}

func serveCommand() *cobra.Command {
	return nodeCommand(
		"serve",
		"Run the governance node",
		"",
		func(_ *cobra.Command, cfg *config.Config) error {
			return node.Run(cfg, commonRun())
		},
	)
}

func reindexCommand() *cobra.Command {
	return nodeCommand(
		"reindex",
		"Rebuild the proposal index from the blob store",
		`Rebuild the metadata proposal index from the proposals held in the
blob store. The node must be stopped while this runs.`,
		func(cmd *cobra.Command, cfg *config.Config) error {
			count, err := node.Reindex(cfg, commonRun())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reindexed %d proposals\n", count)
			return nil
		},
	)
}
