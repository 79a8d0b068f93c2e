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

package proposal

import (
	"fmt"
	"strings"
)

type Status uint8

const (
	StatusOpen Status = iota
	StatusRejected
	StatusPassed
	StatusExecuted
	StatusClosed
	StatusExecutionFailed
)

var statusNames = map[Status]string{
	StatusOpen:            "open",
	StatusRejected:        "rejected",
	StatusPassed:          "passed",
	StatusExecuted:        "executed",
	StatusClosed:          "closed",
	StatusExecutionFailed: "execution_failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

// ParseStatus returns the status with the given name
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if strings.EqualFold(n, name) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown proposal status: %q", name)
}

// Terminal reports whether voting and expiry can no longer change the status
func (s Status) Terminal() bool {
	switch s {
	case StatusExecuted, StatusClosed, StatusExecutionFailed:
		return true
	default:
		return false
	}
}

// HasWinner reports whether the status carries a winning choice
func (s Status) HasWinner() bool {
	switch s {
	case StatusPassed, StatusExecuted, StatusExecutionFailed:
		return true
	default:
		return false
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(data []byte) error {
	tmp, err := ParseStatus(string(data))
	if err != nil {
		return err
	}
	*s = tmp
	return nil
}
