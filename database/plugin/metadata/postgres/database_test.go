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

package postgres_test

import (
	"testing"

	"github.com/blinklabs-io/condorcet/database/plugin"
	"github.com/blinklabs-io/condorcet/database/plugin/metadata/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	testDefs := []struct {
		name     string
		opts     []postgres.PostgresOptionFunc
		expected string
	}{
		{
			name:     "defaults",
			expected: "host=localhost user=postgres password= dbname=condorcet port=5432 sslmode=disable TimeZone=UTC",
		},
		{
			name: "custom",
			opts: []postgres.PostgresOptionFunc{
				postgres.WithHost("db.local"),
				postgres.WithPort(6543),
				postgres.WithUser("condorcet"),
				postgres.WithPassword("secret"),
				postgres.WithDatabase("governance"),
				postgres.WithSSLMode("require"),
				postgres.WithTimeZone("Europe/Paris"),
			},
			expected: "host=db.local user=condorcet password=secret dbname=governance port=6543 sslmode=require TimeZone=Europe/Paris",
		},
		{
			name: "dsn overrides",
			opts: []postgres.PostgresOptionFunc{
				postgres.WithHost("ignored"),
				postgres.WithDSN("  postgres://u:p@h:1/db  "),
			},
			expected: "postgres://u:p@h:1/db",
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			store, err := postgres.NewWithOptions(testDef.opts...)
			require.NoError(t, err)
			assert.Equal(t, testDef.expected, store.DSN())
		})
	}
}

func TestCloseBeforeStart(t *testing.T) {
	store, err := postgres.NewWithOptions()
	require.NoError(t, err)
	assert.Nil(t, store.DB())
	require.NoError(t, store.Stop())
}

func TestRegisteredOptions(t *testing.T) {
	var options []string
	for _, entry := range plugin.GetPlugins(plugin.PluginTypeMetadata) {
		if entry.Name != "postgres" {
			continue
		}
		for _, opt := range entry.Options {
			options = append(options, opt.Name)
		}
	}
	assert.Subset(t, options, []string{"host", "port", "dsn", "max-open-conns", "conn-max-lifetime"})

	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeMetadata, "postgres", "dsn", "host=example"))
	t.Cleanup(func() {
		_ = plugin.SetPluginOption(plugin.PluginTypeMetadata, "postgres", "dsn", "")
	})
	store, ok := postgres.NewFromCmdlineOptions().(*postgres.MetadataStorePostgres)
	require.True(t, ok)
	assert.Equal(t, "host=example", store.DSN())
}
