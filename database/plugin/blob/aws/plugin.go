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


package aws

import (
	"sync"

	"github.com/blinklabs-io/condorcet/database/plugin"
	"github.com/blinklabs-io/condorcet/database/plugin/blob"
)

var (
	cmdlineOptions      blob.BucketConfig
	cmdlineOptionsMutex sync.RWMutex
)

func init() {
	opts := []plugin.PluginOption{
		{
			Name:         "endpoint",
			Type:         plugin.PluginOptionTypeString,
			Description:  "S3-compatible endpoint URL",
			DefaultValue: "",
			Dest:         &cmdlineOptions.Endpoint,
		},
		{
			Name:         "region",
			Type:         plugin.PluginOptionTypeString,
			Description:  "AWS region",
			DefaultValue: "",
			Dest:         &cmdlineOptions.Region,
		},
	}
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "s3",
			Description:        "AWS S3 blob store",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: append(
				opts,
				blob.BucketPluginOptions(&cmdlineOptions, "S3")...,
			),
		},
	)
}

func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	cfg := cmdlineOptions
	cmdlineOptionsMutex.RUnlock()
	cfg.Logger = plugin.SharedLogger()
	cfg.PromRegistry = plugin.SharedPromRegistry()
	return newFromConfig(cfg)
}
