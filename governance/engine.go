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

// Package governance runs the proposal state machine. Commands are
// processed one at a time by a single goroutine, each inside one database
// transaction that either fully commits or rolls back.
package governance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/condorcet/chain"
	"github.com/blinklabs-io/condorcet/database"
	"github.com/blinklabs-io/condorcet/event"
	"github.com/blinklabs-io/condorcet/execution"
	"github.com/blinklabs-io/condorcet/proposal"
	"github.com/blinklabs-io/condorcet/voting"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultCommandQueueSize = 64
	DefaultExecutionTimeout = 5 * time.Minute

	tracerName = "github.com/blinklabs-io/condorcet/governance"
)

type EngineConfig struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	Database     *database.Database
	// VotingModule defaults to checkpoints stored in Database
	VotingModule voting.Module
	// BallotBox defaults to Database
	BallotBox voting.BallotBox
	// ExecutionSink defaults to a sink that logs the messages
	ExecutionSink execution.Sink
	// Clock defaults to one block per second since the Unix epoch
	Clock    chain.Clock
	EventBus *event.EventBus
	// GovernanceConfig is stored on start when the database holds no config
	GovernanceConfig *proposal.Config
	// SweepInterval enables periodic re-derivation of open proposals
	SweepInterval    time.Duration
	ExecutionTimeout time.Duration
	CommandQueueSize int
}

// Engine is the governance command processor
type Engine struct {
	config  EngineConfig
	logger  *slog.Logger
	metrics *engineMetrics
	tracer  trace.Tracer
	// govConfig is only accessed by the command loop
	govConfig proposal.Config

	cmdCh      chan *command
	stopCh     chan struct{}
	doneCh     chan struct{}
	running    atomic.Bool
	lifecycle  sync.Mutex
	stopped    bool
	bgWg       sync.WaitGroup
	execWg     sync.WaitGroup
	execCtx    context.Context
	execCancel context.CancelFunc
}

type commandResult struct {
	value any
	err   error
}

type command struct {
	ctx       context.Context
	fn        func(*commandState) (any, error)
	respCh    chan commandResult
	name      string
	readWrite bool
}

// commandState is what a command sees while it runs
type commandState struct {
	ctx   context.Context
	txn   *database.Txn
	block chain.Block
	bus   *event.EventBus
}

// publish queues an event for delivery once the command has committed
func (s *commandState) publish(eventType event.EventType, data any) {
	if s.bus == nil {
		return
	}
	evt := event.NewEvent(eventType, data)
	s.txn.OnCommit(func() {
		s.bus.Publish(eventType, evt)
	})
}

// afterCommit queues a function to run once the command has committed
func (s *commandState) afterCommit(fn func()) {
	s.txn.OnCommit(fn)
}

func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Database == nil {
		return nil, errors.New("governance engine requires a database")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.VotingModule == nil {
		cfg.VotingModule = voting.NewCheckpointed(cfg.Database)
	}
	if cfg.BallotBox == nil {
		cfg.BallotBox = cfg.Database
	}
	if cfg.ExecutionSink == nil {
		cfg.ExecutionSink = execution.NewLogSink(cfg.Logger)
	}
	if cfg.Clock == nil {
		cfg.Clock = chain.NewTimeClock(time.Unix(0, 0), time.Second)
	}
	if cfg.ExecutionTimeout <= 0 {
		cfg.ExecutionTimeout = DefaultExecutionTimeout
	}
	if cfg.CommandQueueSize <= 0 {
		cfg.CommandQueueSize = DefaultCommandQueueSize
	}
	if cfg.GovernanceConfig != nil {
		if err := cfg.GovernanceConfig.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	e := &Engine{
		config: cfg,
		logger: cfg.Logger.With("component", "governance"),
		tracer: otel.Tracer(tracerName),
		cmdCh:  make(chan *command, cfg.CommandQueueSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	e.execCtx, e.execCancel = context.WithCancel(context.Background())
	if cfg.PromRegistry != nil {
		e.initMetrics()
	}
	return e, nil
}

// Start loads the governance config and starts processing commands
func (e *Engine) Start() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	if e.stopped {
		return ErrStopped
	}
	if e.running.Load() {
		return nil
	}
	if err := e.loadConfig(); err != nil {
		return err
	}
	e.bgWg.Add(1)
	go e.loop()
	if e.config.SweepInterval > 0 {
		e.bgWg.Add(1)
		go e.sweeper()
	}
	e.running.Store(true)
	e.logger.Info(
		"governance engine started",
		"block", e.config.Clock.Current().String(),
		"voting_module", e.config.VotingModule.Info(context.Background()).Kind,
	)
	return nil
}

func (e *Engine) loadConfig() error {
	db := e.config.Database
	stored, err := db.GetGovernanceConfig(nil)
	if err != nil {
		return err
	}
	if stored != nil {
		if err := stored.Validate(); err != nil {
			return fmt.Errorf("stored governance config: %w: %w", ErrInvalidConfig, err)
		}
		e.govConfig = *stored
		return nil
	}
	cfg := proposal.DefaultConfig()
	if e.config.GovernanceConfig != nil {
		cfg = *e.config.GovernanceConfig
	}
	if err := db.SetGovernanceConfig(cfg, nil); err != nil {
		return err
	}
	e.govConfig = cfg
	return nil
}

// Stop stops the command loop and waits for in-flight executions to give
// up. Execution replies that arrive after Stop are logged and dropped.
func (e *Engine) Stop() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	if e.stopped {
		return nil
	}
	e.stopped = true
	wasRunning := e.running.Swap(false)
	close(e.stopCh)
	e.execCancel()
	if wasRunning {
		e.bgWg.Wait()
	} else {
		close(e.doneCh)
	}
	e.execWg.Wait()
	e.logger.Info("governance engine stopped")
	return nil
}

func (e *Engine) loop() {
	defer e.bgWg.Done()
	defer close(e.doneCh)
	for {
		select {
		case <-e.stopCh:
			return
		case cmd := <-e.cmdCh:
			e.handle(cmd)
		}
	}
}

func (e *Engine) sweeper() {
	defer e.bgWg.Done()
	ticker := time.NewTicker(e.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			if _, err := e.Sweep(e.execCtx); err != nil && !errors.Is(err, ErrStopped) &&
				!errors.Is(err, context.Canceled) {
				e.logger.Warn("proposal sweep failed", "error", err)
			}
		}
	}
}

func (e *Engine) handle(cmd *command) {
	start := time.Now()
	ctx, span := e.tracer.Start(
		cmd.ctx,
		"governance."+cmd.name,
		trace.WithAttributes(attribute.Bool("read_write", cmd.readWrite)),
	)
	value, err := e.run(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if e.metrics != nil {
			e.metrics.commandErrors.WithLabelValues(cmd.name).Inc()
		}
		e.logger.Debug(
			"governance command failed",
			"command", cmd.name,
			"error", err,
		)
	}
	span.End()
	if e.metrics != nil {
		e.metrics.commandDuration.WithLabelValues(cmd.name).
			Observe(time.Since(start).Seconds())
	}
	cmd.respCh <- commandResult{value: value, err: err}
}

// run executes a command in its own transaction. A panic rolls the
// transaction back and is reported to the caller as an invariant violation.
func (e *Engine) run(ctx context.Context, cmd *command) (value any, err error) {
	state := &commandState{
		ctx:   ctx,
		block: e.config.Clock.Current(),
		bus:   e.config.EventBus,
	}
	state.txn = e.config.Database.Transaction(cmd.readWrite)
	defer func() {
		if r := recover(); r != nil {
			_ = state.txn.Rollback()
			e.logger.Error(
				"recovered from panic in governance command",
				"command", cmd.name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			value = nil
			err = fmt.Errorf("%w: %v", ErrInvariantViolation, r)
		}
	}()
	err = state.txn.Do(func(*database.Txn) error {
		var fnErr error
		value, fnErr = cmd.fn(state)
		return fnErr
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// submit hands a command to the loop and waits for its result. A command
// that was already queued when ctx is cancelled may still run.
func (e *Engine) submit(
	ctx context.Context,
	name string,
	readWrite bool,
	fn func(*commandState) (any, error),
) (any, error) {
	if !e.running.Load() {
		return nil, ErrStopped
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cmd := &command{
		ctx:       ctx,
		name:      name,
		readWrite: readWrite,
		fn:        fn,
		respCh:    make(chan commandResult, 1),
	}
	select {
	case e.cmdCh <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.stopCh:
		return nil, ErrStopped
	}
	select {
	case res := <-cmd.respCh:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.doneCh:
		// The loop may have answered right before exiting
		select {
		case res := <-cmd.respCh:
			return res.value, res.err
		default:
			return nil, ErrStopped
		}
	}
}

// Block returns the current block as seen by the engine
func (e *Engine) Block() chain.Block {
	return e.config.Clock.Current()
}

// VotingModuleInfo describes the configured voting module
func (e *Engine) VotingModuleInfo(ctx context.Context) voting.Info {
	return e.config.VotingModule.Info(ctx)
}
