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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/condorcet"
	"github.com/blinklabs-io/condorcet/execution"
	"github.com/blinklabs-io/condorcet/internal/config"
	"github.com/blinklabs-io/condorcet/voting"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NodeOptions converts the loaded config into node options
func NodeOptions(
	cfg *config.Config,
	logger *slog.Logger,
	registry prometheus.Registerer,
) ([]condorcet.ConfigOptionFunc, error) {
	govCfg, err := cfg.ProposalConfig()
	if err != nil {
		return nil, err
	}
	clock, err := cfg.Clock()
	if err != nil {
		return nil, err
	}
	opts := []condorcet.ConfigOptionFunc{
		condorcet.WithLogger(logger),
		condorcet.WithDatabasePath(cfg.DatabasePath),
		condorcet.WithBlobPlugin(cfg.BlobPlugin),
		condorcet.WithMetadataPlugin(cfg.MetadataPlugin),
		condorcet.WithGovernanceConfig(govCfg),
		condorcet.WithClock(clock),
		condorcet.WithShutdownTimeout(cfg.ShutdownTimeoutDuration()),
		condorcet.WithSweepInterval(cfg.SweepIntervalDuration()),
		condorcet.WithExecutionTimeout(cfg.ExecutionTimeoutDuration()),
		condorcet.WithTracing(cfg.Tracing),
		condorcet.WithTracingStdout(cfg.TracingStdout),
		condorcet.WithPrometheusRegistry(registry),
	}
	if cfg.ApiPort > 0 {
		opts = append(
			opts,
			condorcet.WithApiListenAddress(
				fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.ApiPort),
			),
		)
	}
	if cfg.VotingModule == config.VotingModuleStatic {
		powers, err := cfg.StaticPowers()
		if err != nil {
			return nil, err
		}
		module, err := voting.NewStatic(powers)
		if err != nil {
			return nil, err
		}
		opts = append(opts, condorcet.WithVotingModule(module))
	}
	if cfg.ExecutionWebhook != "" {
		webhookOpts := []execution.WebhookOptionFunc{
			execution.WithWebhookLogger(logger),
		}
		for name, value := range cfg.ExecutionWebhookHeaders {
			webhookOpts = append(webhookOpts, execution.WithWebhookHeader(name, value))
		}
		opts = append(
			opts,
			condorcet.WithExecutionSink(
				execution.NewWebhookSink(cfg.ExecutionWebhook, webhookOpts...),
			),
		)
	}
	return opts, nil
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	shutdownTimeout := cfg.ShutdownTimeoutDuration()
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	opts, err := NodeOptions(cfg, logger, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	n, err := condorcet.New(condorcet.NewConfig(opts...))
	if err != nil {
		return err
	}
	// Metrics and debug listener
	var metricsServer *http.Server
	if cfg.MetricsPort > 0 {
		http.Handle("/metrics", promhttp.Handler())
		metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
		logger.Info(
			"serving prometheus metrics on "+metricsAddr,
			"component", "node",
		)
		metricsServer = &http.Server{
			Addr:              metricsAddr,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				logger.Error(
					fmt.Sprintf("failed to start metrics listener: %s", err),
					"component", "node",
				)
				os.Exit(1)
			}
		}()
	}
	shutdownMetrics := func() {
		if metricsServer == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run node in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- n.Run()
	}()

	// Wait for signal or error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown")
		shutdownMetrics()
		if err := n.Stop(); err != nil {
			logger.Error("shutdown errors occurred", "error", err)
			return err
		}
		logger.Info("shutdown complete")
		return nil
	case err := <-errChan:
		if err == nil {
			logger.Info("node stopped")
		} else {
			logger.Error("node error", "error", err)
		}
		signalCtxStop()
		shutdownMetrics()
		if stopErr := n.Stop(); stopErr != nil {
			logger.Error(
				"shutdown errors occurred during cleanup",
				"error",
				stopErr,
			)
			if err == nil {
				err = stopErr
			}
		}
		return err
	}
}
