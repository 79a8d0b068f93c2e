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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/condorcet/chain"
	"github.com/blinklabs-io/condorcet/execution"
	"github.com/blinklabs-io/condorcet/proposal"
	"github.com/blinklabs-io/condorcet/voting"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	promRegistry     prometheus.Registerer
	logger           *slog.Logger
	governanceConfig *proposal.Config
	clock            chain.Clock
	votingModule     voting.Module
	executionSink    execution.Sink
	dataDir          string
	blobPlugin       string
	metadataPlugin   string
	// API listen address (empty = disabled)
	apiListenAddress string
	tracing          bool
	tracingStdout    bool
	shutdownTimeout  time.Duration
	sweepInterval    time.Duration
	executionTimeout time.Duration
}

func (n *Node) configValidate() error {
	if n.config.governanceConfig != nil {
		if err := n.config.governanceConfig.Validate(); err != nil {
			return fmt.Errorf("governance config: %w", err)
		}
	}
	if n.config.sweepInterval < 0 {
		return fmt.Errorf("invalid sweep interval: %s", n.config.sweepInterval)
	}
	if n.config.executionTimeout < 0 {
		return fmt.Errorf("invalid execution timeout: %s", n.config.executionTimeout)
	}
	if n.config.tracingStdout && !n.config.tracing {
		return errors.New("stdout tracing requires tracing to be enabled")
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new node config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithBlobPlugin specifies the blob storage plugin to use.
func WithBlobPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.blobPlugin = plugin
	}
}

// WithMetadataPlugin specifies the metadata storage plugin to use.
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithGovernanceConfig specifies the rules stored for new proposals when the
// database holds none yet
func WithGovernanceConfig(cfg proposal.Config) ConfigOptionFunc {
	return func(c *Config) {
		c.governanceConfig = &cfg
	}
}

// WithClock specifies the source of block height and time
func WithClock(clock chain.Clock) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clock
	}
}

// WithVotingModule specifies where voting power comes from. The default
// uses checkpoints stored in the database
func WithVotingModule(module voting.Module) ConfigOptionFunc {
	return func(c *Config) {
		c.votingModule = module
	}
}

// WithExecutionSink specifies where the messages of executed proposals go
func WithExecutionSink(sink execution.Sink) ConfigOptionFunc {
	return func(c *Config) {
		c.executionSink = sink
	}
}

// WithApiListenAddress specifies the listen address for the HTTP API. The API
// is disabled when this is empty
func WithApiListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = addr
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) OTLP collector
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}

// WithSweepInterval enables periodic status re-derivation of open proposals
func WithSweepInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.sweepInterval = interval
	}
}

// WithExecutionTimeout bounds how long the execution sink may take
func WithExecutionTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.executionTimeout = timeout
	}
}
