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
	"log/slog"

	"github.com/aws/smithy-go/logging"
	"github.com/blinklabs-io/condorcet/database/plugin"
)

// S3Logger is the storage logger, also handed to the AWS SDK
type S3Logger struct {
	*plugin.PrintfLogger
}

func NewS3Logger(logger *slog.Logger) *S3Logger {
	return &S3Logger{PrintfLogger: plugin.NewPrintfLogger(logger)}
}

// Logf implements logging.Logger from smithy-go. SDK output other than
// warnings is only useful when debugging.
func (s *S3Logger) Logf(
	classification logging.Classification,
	format string,
	v ...any,
) {
	if classification == logging.Warn {
		s.Warningf(format, v...)
		return
	}
	s.Debugf(format, v...)
}
