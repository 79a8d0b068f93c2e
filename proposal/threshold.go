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
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/blinklabs-io/condorcet/tally"
	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const thresholdPrecision = 18

var ErrInvalidThreshold = errors.New("invalid percentage threshold")

var precisionFactor = uint256.NewInt(1_000_000_000_000_000_000)

// PercentageThreshold is the share of total voting power that must take part
// for a result to count. It is either a simple majority or a fraction in (0, 1].
//
//nolint:recvcheck
type PercentageThreshold struct {
	Majority bool
	Percent  decimal.Decimal
}

func Majority() PercentageThreshold {
	return PercentageThreshold{Majority: true}
}

func Percent(d decimal.Decimal) PercentageThreshold {
	return PercentageThreshold{Percent: d}
}

// ParseThreshold accepts "majority" or a decimal fraction such as "0.25"
func ParseThreshold(s string) (PercentageThreshold, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "majority") {
		return Majority(), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return PercentageThreshold{}, fmt.Errorf(
			"%w: %q: %w",
			ErrInvalidThreshold,
			s,
			err,
		)
	}
	t := Percent(d)
	if err := t.Validate(); err != nil {
		return PercentageThreshold{}, err
	}
	return t, nil
}

func (t PercentageThreshold) Validate() error {
	if t.Majority {
		return nil
	}
	if !t.Percent.IsPositive() || t.Percent.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf(
			"%w: %s is not in (0, 1]",
			ErrInvalidThreshold,
			t.Percent,
		)
	}
	return nil
}

// atomics returns the percentage scaled to an integer with 18 decimal places
func (t PercentageThreshold) atomics() *uint256.Int {
	scaled := t.Percent.Shift(thresholdPrecision).Truncate(0).BigInt()
	v, overflow := uint256.FromBig(scaled)
	if overflow || scaled.Sign() < 0 {
		return precisionFactor.Clone()
	}
	return v
}

// IsMet reports whether votes out of total satisfies the threshold. A zero
// total never does.
func (t PercentageThreshold) IsMet(votes, total tally.Amount) bool {
	if total.IsZero() {
		return false
	}
	if t.Majority {
		var doubled uint256.Int
		doubled.Lsh(votes.Uint256(), 1)
		return doubled.Cmp(total.Uint256()) > 0
	}
	// Both products fit easily in 256 bits: 128 + 60 bits
	var lhs, rhs uint256.Int
	lhs.Mul(votes.Uint256(), precisionFactor)
	rhs.Mul(total.Uint256(), t.atomics())
	return lhs.Cmp(&rhs) >= 0
}

func (t PercentageThreshold) String() string {
	if t.Majority {
		return "majority"
	}
	return t.Percent.String()
}

func (t PercentageThreshold) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *PercentageThreshold) UnmarshalText(data []byte) error {
	tmp, err := ParseThreshold(string(data))
	if err != nil {
		return err
	}
	*t = tmp
	return nil
}

func (t PercentageThreshold) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *PercentageThreshold) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidThreshold, string(data))
	}
	return t.UnmarshalText([]byte(s))
}

func (t PercentageThreshold) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(t.String())
}

func (t *PercentageThreshold) UnmarshalCBOR(data []byte) error {
	var s string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return err
	}
	return t.UnmarshalText([]byte(s))
}
