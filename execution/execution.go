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

// Package execution hands the messages of passed proposals to the system
// that carries them out
package execution

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/condorcet/proposal"
)

var ErrExecutionFailed = errors.New("execution failed")

// Request carries the messages of a proposal's winning choice
type Request struct {
	ProposalID uint64             `json:"proposal_id"`
	Choice     uint32             `json:"choice"`
	Messages   []proposal.Message `json:"messages"`
}

// Reply reports the outcome of a Request back to the governance engine
type Reply struct {
	ProposalID uint64
	Err        error
}

// Sink executes the messages of a passed proposal. Execute blocks until the
// messages have been carried out or have failed.
type Sink interface {
	Execute(ctx context.Context, req Request) error
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(ctx context.Context, req Request) error

func (f SinkFunc) Execute(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// LogSink records each message in the structured log and never fails
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Execute(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(req.Messages) == 0 {
		s.logger.Info(
			"executed proposal without messages",
			"component", "execution",
			"proposal_id", req.ProposalID,
			"choice", req.Choice,
		)
		return nil
	}
	for idx, msg := range req.Messages {
		s.logger.Info(
			fmt.Sprintf("executing message %d of %d", idx+1, len(req.Messages)),
			"component", "execution",
			"proposal_id", req.ProposalID,
			"choice", req.Choice,
			"type", msg.Type,
			"size", len(msg.Data),
		)
	}
	return nil
}
