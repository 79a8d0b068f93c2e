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
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sharedLogger       *slog.Logger
	sharedPromRegistry prometheus.Registerer
	sharedMutex        sync.RWMutex
)

// SetLogger sets the logger handed to plugins created from their options
func SetLogger(logger *slog.Logger) {
	sharedMutex.Lock()
	defer sharedMutex.Unlock()
	sharedLogger = logger
}

// SetPromRegistry sets the registry plugins register their metrics on. A nil
// registry disables plugin metrics.
func SetPromRegistry(registry prometheus.Registerer) {
	sharedMutex.Lock()
	defer sharedMutex.Unlock()
	sharedPromRegistry = registry
}

// SharedLogger returns the logger for plugins, never nil
func SharedLogger() *slog.Logger {
	sharedMutex.RLock()
	defer sharedMutex.RUnlock()
	if sharedLogger == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return sharedLogger
}

func SharedPromRegistry() prometheus.Registerer {
	sharedMutex.RLock()
	defer sharedMutex.RUnlock()
	return sharedPromRegistry
}

// PrintfLogger adapts the printf-style logger interfaces of storage client
// libraries onto slog. Messages carry the database component.
type PrintfLogger struct {
	logger *slog.Logger
}

func NewPrintfLogger(logger *slog.Logger) *PrintfLogger {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &PrintfLogger{logger: logger}
}

func (p *PrintfLogger) log(level slog.Level, msg string, args ...any) {
	if !p.logger.Enabled(context.Background(), level) {
		return
	}
	p.logger.Log(
		context.Background(),
		level,
		strings.TrimSpace(fmt.Sprintf(msg, args...)),
		"component", "database",
	)
}

func (p *PrintfLogger) Errorf(msg string, args ...any) {
	p.log(slog.LevelError, msg, args...)
}

func (p *PrintfLogger) Warningf(msg string, args ...any) {
	p.log(slog.LevelWarn, msg, args...)
}

func (p *PrintfLogger) Infof(msg string, args ...any) {
	p.log(slog.LevelInfo, msg, args...)
}

func (p *PrintfLogger) Debugf(msg string, args ...any) {
	p.log(slog.LevelDebug, msg, args...)
}
