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

package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/condorcet/chain"
	"github.com/blinklabs-io/condorcet/database/plugin"
	"github.com/blinklabs-io/condorcet/proposal"
	"github.com/blinklabs-io/condorcet/tally"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "condorcet.config"

const (
	DefaultShutdownTimeout  = "30s"
	DefaultSweepInterval    = "1m"
	DefaultExecutionTimeout = "5m"
	DefaultBlockInterval    = "1s"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

const (
	VotingModuleCheckpointed = "checkpointed"
	VotingModuleStatic       = "static"
)

var ErrInvalidConfig = errors.New("invalid config")

type tempConfig struct {
	Config   *Config                   `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

// GovernanceConfig holds the rules applied to new proposals
type GovernanceConfig struct {
	Quorum          string `yaml:"quorum"`
	VotingPeriod    string `yaml:"votingPeriod"                     split_words:"true"`
	MinVotingPeriod string `yaml:"minVotingPeriod"                  split_words:"true"`
	// Closing on failure is the default
	CloseProposalsOnExecutionFailure bool   `yaml:"closeProposalsOnExecutionFailure" split_words:"true"`
	MaxChoices                       uint32 `yaml:"maxChoices"                       split_words:"true"`
}

type Config struct {
	MetadataPlugin   string `yaml:"metadataPlugin"   envconfig:"CONDORCET_DATABASE_METADATA_PLUGIN"`
	BlobPlugin       string `yaml:"blobPlugin"       envconfig:"CONDORCET_DATABASE_BLOB_PLUGIN"`
	DatabasePath     string `yaml:"databasePath"                                                 split_words:"true"`
	BindAddr         string `yaml:"bindAddr"                                                     split_words:"true"`
	ShutdownTimeout  string `yaml:"shutdownTimeout"                                              split_words:"true"`
	SweepInterval    string `yaml:"sweepInterval"                                                split_words:"true"`
	ExecutionTimeout string `yaml:"executionTimeout"                                             split_words:"true"`
	// GenesisTime is the RFC3339 time of block 0. Block heights are derived
	// from it and BlockInterval.
	GenesisTime      string `yaml:"genesisTime"                                                  split_words:"true"`
	BlockInterval    string `yaml:"blockInterval"                                                split_words:"true"`
	VotingModule     string `yaml:"votingModule"                                                 split_words:"true"`
	ExecutionWebhook string `yaml:"executionWebhook"                                             split_words:"true"`
	// Static voting power by address, used by the static voting module
	StaticVotingPower map[string]string `yaml:"staticVotingPower" split_words:"true"`
	// Extra headers sent with every execution webhook request
	ExecutionWebhookHeaders map[string]string `yaml:"executionWebhookHeaders" split_words:"true"`
	Governance              GovernanceConfig  `yaml:"governance"`
	ApiPort                 uint              `yaml:"apiPort"                                      split_words:"true"`
	MetricsPort             uint              `yaml:"metricsPort"                                  split_words:"true"`
	Tracing                 bool              `yaml:"tracing"`
	TracingStdout           bool              `yaml:"tracingStdout"                                split_words:"true"`
}

func defaultConfig() *Config {
	return &Config{
		DatabasePath:     ".condorcet",
		BindAddr:         "0.0.0.0",
		ApiPort:          8080,
		MetricsPort:      12799,
		BlobPlugin:       DefaultBlobPlugin,
		MetadataPlugin:   DefaultMetadataPlugin,
		ShutdownTimeout:  DefaultShutdownTimeout,
		SweepInterval:    DefaultSweepInterval,
		ExecutionTimeout: DefaultExecutionTimeout,
		BlockInterval:    DefaultBlockInterval,
		VotingModule:     VotingModuleCheckpointed,
		Governance: GovernanceConfig{
			Quorum:                           "majority",
			VotingPeriod:                     proposal.DefaultVotingPeriod.String(),
			CloseProposalsOnExecutionFailure: true,
			MaxChoices:                       proposal.DefaultMaxChoices,
		},
	}
}

var globalConfig = defaultConfig()

// toStringAnyMap converts a YAML plugin section into plugin config maps,
// skipping entries that are not maps
func toStringAnyMap(section string, src map[string]any) map[string]map[string]any {
	ret := make(map[string]map[string]any)
	for k, v := range src {
		switch val := v.(type) {
		case map[string]any:
			ret[k] = val
		case map[any]any:
			stringAnyMap := make(map[string]any)
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					stringAnyMap[keyStr] = vv
				}
			}
			ret[k] = stringAnyMap
		default:
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping %s config entry %q: expected map, got %T\n",
				section,
				k,
				v,
			)
		}
	}
	return ret
}

// extractPluginName removes the "plugin" key from a database section and
// returns its value
func extractPluginName(section map[string]any) string {
	pluginVal, exists := section["plugin"]
	if !exists {
		return ""
	}
	pluginName, ok := pluginVal.(string)
	if !ok {
		return ""
	}
	delete(section, "plugin")
	return pluginName
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.condorcet/condorcet.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".condorcet", "condorcet.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/condorcet/condorcet.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/condorcet/condorcet.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		// First unmarshal into temp config to handle plugin sections
		var tempCfg tempConfig
		if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}

		// If config section exists, use it for main config
		if tempCfg.Config != nil {
			// Overlay config values onto existing defaults
			configBytes, err := yaml.Marshal(tempCfg.Config)
			if err != nil {
				return nil, fmt.Errorf("error re-marshalling config: %w", err)
			}
			if err := yaml.Unmarshal(configBytes, globalConfig); err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else {
			// Otherwise unmarshal the whole file as main config
			if err := yaml.Unmarshal(buf, globalConfig); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}

		// Process plugin configurations
		pluginConfig := make(map[string]map[string]map[string]any)
		if tempCfg.Blob != nil {
			pluginConfig["blob"] = tempCfg.Blob
		}
		if tempCfg.Metadata != nil {
			pluginConfig["metadata"] = tempCfg.Metadata
		}
		// Handle database section if present
		if tempCfg.Database != nil {
			if tempCfg.Database.Blob != nil {
				if name := extractPluginName(tempCfg.Database.Blob); name != "" {
					globalConfig.BlobPlugin = name
				}
				blobConfig := toStringAnyMap("blob", tempCfg.Database.Blob)
				// Merge with existing blob config instead of overwriting
				if pluginConfig["blob"] == nil {
					pluginConfig["blob"] = blobConfig
				} else {
					maps.Copy(pluginConfig["blob"], blobConfig)
				}
			}
			if tempCfg.Database.Metadata != nil {
				if name := extractPluginName(tempCfg.Database.Metadata); name != "" {
					globalConfig.MetadataPlugin = name
				}
				metadataConfig := toStringAnyMap("metadata", tempCfg.Database.Metadata)
				if pluginConfig["metadata"] == nil {
					pluginConfig["metadata"] = metadataConfig
				} else {
					maps.Copy(pluginConfig["metadata"], metadataConfig)
				}
			}
		}
		if len(pluginConfig) > 0 {
			if err := plugin.ProcessConfig(pluginConfig); err != nil {
				return nil, fmt.Errorf(
					"error processing plugin config: %w",
					err,
				)
			}
		}
	}
	// Process environment variables
	if err := envconfig.Process("condorcet", globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	// Process plugin environment variables
	if err := plugin.ProcessEnvVars(); err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}

	if err := globalConfig.Validate(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

// Validate checks the values that are parsed lazily by the accessors below
func (c *Config) Validate() error {
	var err error
	for name, value := range map[string]string{
		"shutdownTimeout":  c.ShutdownTimeout,
		"sweepInterval":    c.SweepInterval,
		"executionTimeout": c.ExecutionTimeout,
		"blockInterval":    c.BlockInterval,
	} {
		if value == "" {
			continue
		}
		if _, parseErr := time.ParseDuration(value); parseErr != nil {
			err = errors.Join(err, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, parseErr))
		}
	}
	switch c.VotingModule {
	case VotingModuleCheckpointed:
	case VotingModuleStatic:
		if _, powerErr := c.StaticPowers(); powerErr != nil {
			err = errors.Join(err, powerErr)
		}
	default:
		err = errors.Join(
			err,
			fmt.Errorf(
				"%w: votingModule must be %q or %q, got %q",
				ErrInvalidConfig,
				VotingModuleCheckpointed,
				VotingModuleStatic,
				c.VotingModule,
			),
		)
	}
	if _, clockErr := c.Clock(); clockErr != nil {
		err = errors.Join(err, clockErr)
	}
	if _, govErr := c.ProposalConfig(); govErr != nil {
		err = errors.Join(err, govErr)
	}
	return err
}

func parseDurationOrZero(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}

func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return parseDurationOrZero(c.ShutdownTimeout)
}

func (c *Config) SweepIntervalDuration() time.Duration {
	return parseDurationOrZero(c.SweepInterval)
}

func (c *Config) ExecutionTimeoutDuration() time.Duration {
	return parseDurationOrZero(c.ExecutionTimeout)
}

// Clock returns the clock deriving block heights from GenesisTime
func (c *Config) Clock() (*chain.TimeClock, error) {
	genesis := time.Unix(0, 0).UTC()
	if c.GenesisTime != "" {
		t, err := time.Parse(time.RFC3339, c.GenesisTime)
		if err != nil {
			return nil, fmt.Errorf("%w: genesisTime: %w", ErrInvalidConfig, err)
		}
		genesis = t
	}
	interval := time.Second
	if c.BlockInterval != "" {
		d, err := time.ParseDuration(c.BlockInterval)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf(
				"%w: blockInterval must be a positive duration: %q",
				ErrInvalidConfig,
				c.BlockInterval,
			)
		}
		interval = d
	}
	return chain.NewTimeClock(genesis, interval), nil
}

// StaticPowers parses StaticVotingPower
func (c *Config) StaticPowers() (map[string]tally.Amount, error) {
	ret := make(map[string]tally.Amount, len(c.StaticVotingPower))
	for addr, value := range c.StaticVotingPower {
		power, err := tally.ParseAmount(value)
		if err != nil {
			return nil, fmt.Errorf(
				"%w: staticVotingPower for %s: %w",
				ErrInvalidConfig,
				addr,
				err,
			)
		}
		ret[addr] = power
	}
	if len(ret) == 0 {
		return nil, fmt.Errorf(
			"%w: the static voting module requires staticVotingPower",
			ErrInvalidConfig,
		)
	}
	return ret, nil
}

// ProposalConfig converts the governance section into proposal rules
func (c *Config) ProposalConfig() (proposal.Config, error) {
	ret := proposal.DefaultConfig()
	gov := c.Governance
	if gov.Quorum != "" {
		quorum, err := proposal.ParseThreshold(gov.Quorum)
		if err != nil {
			return ret, fmt.Errorf("%w: governance quorum: %w", ErrInvalidConfig, err)
		}
		ret.Quorum = quorum
	}
	if gov.VotingPeriod != "" {
		period, err := chain.ParseDuration(gov.VotingPeriod)
		if err != nil {
			return ret, fmt.Errorf("%w: governance votingPeriod: %w", ErrInvalidConfig, err)
		}
		ret.VotingPeriod = period
	}
	if gov.MinVotingPeriod != "" {
		minPeriod, err := chain.ParseDuration(gov.MinVotingPeriod)
		if err != nil {
			return ret, fmt.Errorf("%w: governance minVotingPeriod: %w", ErrInvalidConfig, err)
		}
		ret.MinVotingPeriod = &minPeriod
	}
	ret.CloseProposalsOnExecutionFailure = gov.CloseProposalsOnExecutionFailure
	if gov.MaxChoices > 0 {
		ret.MaxChoices = gov.MaxChoices
	}
	if err := ret.Validate(); err != nil {
		return ret, fmt.Errorf("%w: governance: %w", ErrInvalidConfig, err)
	}
	return ret, nil
}
