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

import "errors"

var (
	ErrNotOpen             = errors.New("proposal is not open for voting")
	ErrNotPassed           = errors.New("proposal has not passed")
	ErrNotRejected         = errors.New("only rejected proposals can be closed")
	ErrNotExecuted         = errors.New("proposal has not been executed")
	ErrZeroChoices         = errors.New("proposal must have at least one choice")
	ErrTooManyChoices      = errors.New("proposal has too many choices")
	ErrZeroTotalPower      = errors.New("no voting power exists at proposal height")
	ErrZeroVotingPower     = errors.New("voter has no voting power")
	ErrInvalidVotingPeriod = errors.New("invalid voting period")
)
