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


package gcs

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
	opts := blob.BucketPluginOptions(&cmdlineOptions, "GCS")
	opts = append(opts, plugin.PluginOption{
		Name:         "credentials-file",
		Type:         plugin.PluginOptionTypeString,
		Description:  "Path to service account credentials",
		DefaultValue: "",
		Dest:         &cmdlineOptions.CredentialsFile,
	})
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "gcs",
			Description:        "Google Cloud Storage blob store",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options:            opts,
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
