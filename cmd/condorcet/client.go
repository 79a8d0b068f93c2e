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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/blinklabs-io/condorcet/api"
	"github.com/blinklabs-io/condorcet/governance"
	"github.com/blinklabs-io/condorcet/proposal"
	"github.com/blinklabs-io/condorcet/tally"
	"github.com/spf13/cobra"
)

const (
	clientAnnotation = "condorcet/client"
	serverEnvVar     = "CONDORCET_SERVER"
	defaultServer    = "http://localhost:8080"
)

var (
	errNoConfig = errors.New("no config found in context")

	serverURL string
)

func isClientCommand(cmd *cobra.Command) bool {
	_, ok := cmd.Annotations[clientAnnotation]
	return ok
}

func newClient() *api.Client {
	return api.NewClient(serverURL)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid proposal ID %q", arg)
	}
	return id, nil
}

// parseChoice parses TYPE=DATA into a single message choice. An empty value
// is a choice with no messages.
func parseChoice(value string) (proposal.Choice, error) {
	if value == "" {
		return proposal.Choice{}, nil
	}
	msgType, data, ok := strings.Cut(value, "=")
	if !ok || msgType == "" {
		return proposal.Choice{}, fmt.Errorf("invalid choice %q, expected TYPE=DATA", value)
	}
	return proposal.Choice{
		Messages: []proposal.Message{{Type: msgType, Data: []byte(data)}},
	}, nil
}

func readChoicesFile(path string, stdin io.Reader) ([]proposal.Choice, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	var ret []proposal.Choice
	if err := json.Unmarshal(data, &ret); err != nil {
		return nil, fmt.Errorf("parse choices file: %w", err)
	}
	return ret, nil
}

// clientCommand marks cmd as talking to a running node over the API
func clientCommand(cmd *cobra.Command) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[clientAnnotation] = ""
	cmd.Flags().StringVar(
		&serverURL,
		"server",
		envOrDefault(serverEnvVar, defaultServer),
		"governance API base URL",
	)
	return cmd
}

func envOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func clientCommands() []*cobra.Command {
	return []*cobra.Command{
		proposeCommand(),
		voteCommand(),
		proposalIDCommand("status <id>", "Show a proposal and its current status", statusRun),
		proposalIDCommand("tally <id>", "Show the pairwise margins of a proposal", tallyRun),
		proposalIDCommand("ballots <id>", "List the ballots cast on a proposal", ballotsRun),
		proposalIDCommand("execute <id>", "Execute a passed proposal", executeRun),
		proposalIDCommand("close <id>", "Close a rejected proposal", closeRun),
		listProposalsCommand(),
		powerCommand(),
		setPowerCommand(),
	}
}

func proposeCommand() *cobra.Command {
	var proposer, title, description, choicesFile string
	var choices []string
	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Create a proposal",
		Long: `Create a proposal. Each --choice takes TYPE=DATA and becomes a choice
with a single message. Use --choices-file for choices with several messages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := governance.ProposeRequest{
				Proposer:    proposer,
				Title:       title,
				Description: description,
			}
			if choicesFile != "" {
				fileChoices, err := readChoicesFile(choicesFile, cmd.InOrStdin())
				if err != nil {
					return err
				}
				req.Choices = append(req.Choices, fileChoices...)
			}
			for _, value := range choices {
				choice, err := parseChoice(value)
				if err != nil {
					return err
				}
				req.Choices = append(req.Choices, choice)
			}
			id, err := newClient().Propose(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), api.ProposeResponse{ID: id})
		},
	}
	cmd.Flags().StringVar(&proposer, "proposer", "", "address of the proposer")
	cmd.Flags().StringVar(&title, "title", "", "proposal title")
	cmd.Flags().StringVar(&description, "description", "", "proposal description")
	cmd.Flags().StringArrayVar(&choices, "choice", nil, "choice as TYPE=DATA (repeatable)")
	cmd.Flags().StringVar(&choicesFile, "choices-file", "", "JSON file of choices, '-' for stdin")
	_ = cmd.MarkFlagRequired("proposer")
	return clientCommand(cmd)
}

func voteCommand() *cobra.Command {
	var voter string
	var ranking []uint
	cmd := &cobra.Command{
		Use:   "vote <id>",
		Short: "Cast a ranked ballot",
		Long: `Cast a ranked ballot. The ranking lists candidate indexes from most to
least preferred. The index after the last choice is the "none of the above"
option.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			order := make([]uint32, 0, len(ranking))
			for _, idx := range ranking {
				if idx > uint(^uint32(0)) {
					return fmt.Errorf("candidate index %d out of range", idx)
				}
				order = append(order, uint32(idx))
			}
			p, err := newClient().Vote(cmd.Context(), id, voter, order)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().StringVar(&voter, "voter", "", "address of the voter")
	cmd.Flags().UintSliceVar(&ranking, "ranking", nil, "candidate indexes in order of preference")
	_ = cmd.MarkFlagRequired("voter")
	_ = cmd.MarkFlagRequired("ranking")
	return clientCommand(cmd)
}

func proposalIDCommand(
	use string,
	short string,
	run func(*cobra.Command, *api.Client, uint64) (any, error),
) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ret, err := run(cmd, newClient(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ret)
		},
	}
	return clientCommand(cmd)
}

func statusRun(cmd *cobra.Command, c *api.Client, id uint64) (any, error) {
	return c.Proposal(cmd.Context(), id)
}

func tallyRun(cmd *cobra.Command, c *api.Client, id uint64) (any, error) {
	return c.Tally(cmd.Context(), id)
}

func ballotsRun(cmd *cobra.Command, c *api.Client, id uint64) (any, error) {
	return c.Ballots(cmd.Context(), id)
}

func executeRun(cmd *cobra.Command, c *api.Client, id uint64) (any, error) {
	return c.Execute(cmd.Context(), id)
}

func closeRun(cmd *cobra.Command, c *api.Client, id uint64) (any, error) {
	return c.Close(cmd.Context(), id)
}

func listProposalsCommand() *cobra.Command {
	var status string
	var filter governance.ListFilter
	cmd := &cobra.Command{
		Use:   "proposals",
		Short: "List proposals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" {
				s, err := proposal.ParseStatus(status)
				if err != nil {
					return err
				}
				filter.Status = &s
			}
			ret, err := newClient().List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ret)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only list proposals with this status")
	cmd.Flags().Uint64Var(&filter.StartAfter, "start-after", 0, "only list proposals after this ID")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum number of proposals")
	cmd.Flags().BoolVar(&filter.Reverse, "desc", false, "list newest proposals first")
	return clientCommand(cmd)
}

func powerCommand() *cobra.Command {
	var height uint64
	cmd := &cobra.Command{
		Use:   "power <address>",
		Short: "Show the voting power of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var heightPtr *uint64
			if cmd.Flags().Changed("height") {
				heightPtr = &height
			}
			ret, err := newClient().VotingPower(cmd.Context(), args[0], heightPtr)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ret)
		},
	}
	cmd.Flags().Uint64Var(&height, "height", 0, "block height to query, defaults to the current block")
	return clientCommand(cmd)
}

func setPowerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-power <address> <amount>",
		Short: "Record the voting power of an address at the current block",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			power, err := tally.ParseAmount(args[1])
			if err != nil {
				return err
			}
			ret, err := newClient().SetVotingPower(cmd.Context(), args[0], power)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ret)
		},
	}
	return clientCommand(cmd)
}
