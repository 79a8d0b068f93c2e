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


package plugin

import (
	"errors"
	"fmt"
)

var ErrPluginNotFound = errors.New("plugin not found")

type Plugin interface {
	Start() error
	Stop() error
}

// ErrorPlugin stands in for a plugin that could not be constructed from its
// options. The construction error surfaces from Start.
type ErrorPlugin struct {
	Err error
}

func NewErrorPlugin(err error) Plugin {
	return &ErrorPlugin{Err: err}
}

func (e *ErrorPlugin) Start() error { return e.Err }

func (e *ErrorPlugin) Stop() error { return nil }

func notFound(pluginType PluginType, pluginName string) error {
	return fmt.Errorf(
		"%w: %s plugin %q",
		ErrPluginNotFound,
		PluginTypeName(pluginType),
		pluginName,
	)
}

// StartPlugin builds the named plugin from its current options and starts it
func StartPlugin(pluginType PluginType, pluginName string) (Plugin, error) {
	p := GetPlugin(pluginType, pluginName)
	if p == nil {
		return nil, notFound(pluginType, pluginName)
	}
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf(
			"start %s plugin %q: %w",
			PluginTypeName(pluginType),
			pluginName,
			err,
		)
	}
	return p, nil
}

// SetPluginOption sets an option of a registered plugin before it is
// built. Unknown option names are ignored, so a caller can set data-dir
// whichever plugin is selected.
func SetPluginOption(
	pluginType PluginType,
	pluginName string,
	optionName string,
	value any,
) error {
	pluginEntriesMutex.RLock()
	defer pluginEntriesMutex.RUnlock()
	for _, entry := range pluginEntries {
		if entry.Type != pluginType || entry.Name != pluginName {
			continue
		}
		for _, opt := range entry.Options {
			if opt.Name == optionName {
				return setOptionValue(opt, value)
			}
		}
		return nil
	}
	return notFound(pluginType, pluginName)
}
