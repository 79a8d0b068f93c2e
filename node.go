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

package condorcet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/condorcet/api"
	"github.com/blinklabs-io/condorcet/database"
	"github.com/blinklabs-io/condorcet/event"
	"github.com/blinklabs-io/condorcet/governance"
)

type Node struct {
	db            *database.Database
	eventBus      *event.EventBus
	engine        *governance.Engine
	api           *api.Server
	apiCancel     context.CancelFunc
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	startOnce     sync.Once
	startErr      error
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	eventBus := event.NewEventBus(cfg.promRegistry, cfg.logger)
	n := &Node{
		config:   cfg,
		eventBus: eventBus,
		done:     make(chan struct{}),
	}
	if err := n.configValidate(); err != nil {
		eventBus.Stop()
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return n, nil
}

// Start opens the database and starts the governance engine and API. It
// returns once everything is running.
func (n *Node) Start() error {
	n.startOnce.Do(func() {
		n.startErr = n.start()
	})
	return n.startErr
}

func (n *Node) start() error {
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	dbConfig := &database.Config{
		BlobPlugin:     n.config.blobPlugin,
		MetadataPlugin: n.config.metadataPlugin,
		DataDir:        n.config.dataDir,
		Logger:         n.config.logger,
		PromRegistry:   n.config.promRegistry,
	}
	db, err := database.New(dbConfig)
	if db == nil {
		n.config.logger.Error(
			"failed to create database",
			"error",
			err,
		)
		if err == nil {
			err = errors.New("empty database returned")
		}
		return err
	}
	n.db = db
	if err != nil {
		if !database.IsCommitTimestampError(err) {
			return fmt.Errorf("failed to open database: %w", err)
		}
		n.config.logger.Warn(
			"database initialization error, needs recovery",
			"error",
			err,
		)
		if err := n.db.RecoverCommitTimestampConflict(); err != nil {
			return fmt.Errorf("failed to recover database: %w", err)
		}
	}
	n.eventBus.SubscribeFunc(
		event.ProposalStatusChangedEventType,
		n.logStatusChange,
	)
	// Start governance engine
	engine, err := governance.NewEngine(
		governance.EngineConfig{
			Logger:           n.config.logger,
			PromRegistry:     n.config.promRegistry,
			Database:         n.db,
			VotingModule:     n.config.votingModule,
			ExecutionSink:    n.config.executionSink,
			Clock:            n.config.clock,
			EventBus:         n.eventBus,
			GovernanceConfig: n.config.governanceConfig,
			SweepInterval:    n.config.sweepInterval,
			ExecutionTimeout: n.config.executionTimeout,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to create governance engine: %w", err)
	}
	if err := engine.Start(); err != nil {
		return fmt.Errorf("failed to start governance engine: %w", err)
	}
	n.engine = engine
	// Configure API
	if n.config.apiListenAddress != "" {
		n.api = api.New(
			api.Config{
				ListenAddress:   n.config.apiListenAddress,
				ShutdownTimeout: n.config.shutdownTimeout,
			},
			n.engine,
			n.config.logger,
		)
		apiCtx, apiCancel := context.WithCancel(context.Background())
		n.apiCancel = apiCancel
		if err := n.api.Start(apiCtx); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) logStatusChange(evt event.Event) {
	change, ok := evt.Data.(event.ProposalStatusChangedEvent)
	if !ok {
		return
	}
	n.config.logger.Info(
		"proposal status changed",
		"component", "node",
		"proposal_id", change.ProposalID,
		"old_status", change.OldStatus.String(),
		"new_status", change.NewStatus.String(),
		"height", change.Height,
	)
}

// Run starts the node and blocks until Stop is called
func (n *Node) Run() error {
	if err := n.Start(); err != nil {
		return err
	}
	// Wait for shutdown signal
	<-n.done
	return nil
}

// Engine returns the governance engine. It is nil until Start succeeds
func (n *Node) Engine() *governance.Engine {
	return n.engine
}

// EventBus returns the node's event bus
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// ApiAddress returns the address the API listens on, or an empty string
// when the API is disabled
func (n *Node) ApiAddress() string {
	if n.api == nil {
		return ""
	}
	return n.api.Addr()
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work")

	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("api shutdown: %w", stopErr))
		}
	}
	if n.apiCancel != nil {
		n.apiCancel()
	}

	// Phase 2: Drain in-flight commands and executions
	n.config.logger.Debug("shutdown phase 2: stopping governance engine")

	if n.engine != nil {
		if stopErr := n.engine.Stop(); stopErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("governance engine shutdown: %w", stopErr),
			)
		}
	}

	// Phase 3: Close database
	n.config.logger.Debug("shutdown phase 3: closing database")

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}

	// Phase 4: Cleanup resources
	n.config.logger.Debug("shutdown phase 4: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	n.config.logger.Debug("graceful shutdown complete")
	close(n.done)
	return err
}
