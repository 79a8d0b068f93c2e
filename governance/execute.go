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
	"context"
	"fmt"

	"github.com/blinklabs-io/condorcet/event"
	"github.com/blinklabs-io/condorcet/execution"
	"github.com/blinklabs-io/condorcet/proposal"
)

// Execute marks a passed proposal as executed and hands the messages of the
// winning choice to the execution sink. The status change is committed
// before the sink runs. The sink's reply is processed as a separate command,
// and a failure only changes the status of proposals that opted into
// closing on execution failure.
func (e *Engine) Execute(ctx context.Context, id uint64) ([]proposal.Message, error) {
	ret, err := e.submit(ctx, "execute", true, func(s *commandState) (any, error) {
		p, err := e.getProposal(s, id)
		if err != nil {
			return nil, err
		}
		oldStatus := p.Status
		choice, msgs, err := p.SetExecuted(s.block)
		if err != nil {
			return nil, err
		}
		if err := e.setProposal(s, p); err != nil {
			return nil, err
		}
		s.statusChanged(p, oldStatus)
		s.publish(
			event.ProposalExecutedEventType,
			event.ProposalExecutedEvent{
				ProposalID: id,
				Choice:     choice,
				Messages:   len(msgs),
			},
		)
		req := execution.Request{
			ProposalID: id,
			Choice:     choice,
			Messages:   msgs,
		}
		s.afterCommit(func() {
			if e.metrics != nil {
				e.metrics.executions.Inc()
			}
			e.logger.Info(
				"proposal executed",
				"proposal_id", id,
				"choice", choice,
				"messages", len(msgs),
			)
			e.dispatch(req)
		})
		return msgs, nil
	})
	if err != nil {
		return nil, err
	}
	return ret.([]proposal.Message), nil
}

// dispatch runs the sink outside the command loop and feeds the reply back
// as a command
func (e *Engine) dispatch(req execution.Request) {
	e.execWg.Add(1)
	go func() {
		defer e.execWg.Done()
		ctx, cancel := context.WithTimeout(e.execCtx, e.config.ExecutionTimeout)
		reply := execution.Reply{
			ProposalID: req.ProposalID,
			Err:        e.callSink(ctx, req),
		}
		cancel()
		if err := e.handleReply(reply); err != nil {
			e.logger.Warn(
				"dropped execution reply",
				"proposal_id", reply.ProposalID,
				"reply_error", reply.Err,
				"error", err,
			)
		}
	}()
}

func (e *Engine) callSink(ctx context.Context, req execution.Request) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: sink panic: %v", execution.ErrExecutionFailed, r)
		}
	}()
	return e.config.ExecutionSink.Execute(ctx, req)
}

func (e *Engine) handleReply(reply execution.Reply) error {
	_, err := e.submit(e.execCtx, "execution_reply", true, func(s *commandState) (any, error) {
		if reply.Err == nil {
			s.publish(
				event.ExecutionResultEventType,
				event.ExecutionResultEvent{ProposalID: reply.ProposalID},
			)
			return nil, nil
		}
		p, err := e.getProposal(s, reply.ProposalID)
		if err != nil {
			return nil, err
		}
		oldStatus := p.Status
		closed, err := p.SetExecutionFailed()
		if err != nil {
			return nil, err
		}
		if closed {
			if err := e.setProposal(s, p); err != nil {
				return nil, err
			}
			s.statusChanged(p, oldStatus)
		}
		s.publish(
			event.ExecutionResultEventType,
			event.ExecutionResultEvent{
				ProposalID: reply.ProposalID,
				Err:        reply.Err,
				Closed:     closed,
			},
		)
		s.afterCommit(func() {
			if e.metrics != nil {
				e.metrics.executionErrors.Inc()
			}
			e.logger.Error(
				"proposal execution failed",
				"proposal_id", reply.ProposalID,
				"error", reply.Err,
				"closed", closed,
			)
		})
		return nil, nil
	})
	return err
}
