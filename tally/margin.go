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

package tally

import (
	"fmt"
)

// Margin is a signed voting power difference stored as sign and magnitude.
// Zero is never negative.
//
//nolint:recvcheck
type Margin struct {
	_         struct{} `cbor:",toarray"`
	Negative  bool
	Magnitude Amount
}

// PositiveMargin returns a margin of +a
func PositiveMargin(a Amount) Margin {
	return Margin{Magnitude: a}
}

// NegativeMargin returns a margin of -a
func NegativeMargin(a Amount) Margin {
	return Margin{Negative: !a.IsZero(), Magnitude: a}
}

func (m Margin) IsZero() bool {
	return m.Magnitude.IsZero()
}

func (m Margin) IsPositive() bool {
	return !m.Negative && !m.Magnitude.IsZero()
}

func (m Margin) Neg() Margin {
	if m.Magnitude.IsZero() {
		return Margin{}
	}
	return Margin{Negative: !m.Negative, Magnitude: m.Magnitude}
}

// Cmp compares two signed margins
func (m Margin) Cmp(o Margin) int {
	switch {
	case m.Negative && !o.Negative:
		return -1
	case !m.Negative && o.Negative:
		return 1
	case m.Negative:
		// Both negative: larger magnitude is smaller
		return o.Magnitude.Cmp(m.Magnitude)
	default:
		return m.Magnitude.Cmp(o.Magnitude)
	}
}

// Add returns m+a. It panics if the magnitude would overflow, which can only
// happen when more power is counted than exists.
func (m Margin) Add(a Amount) Margin {
	if !m.Negative {
		sum, err := m.Magnitude.CheckedAdd(a)
		if err != nil {
			panic(fmt.Sprintf("margin overflow: %s", err))
		}
		return Margin{Magnitude: sum}
	}
	if m.Magnitude.Cmp(a) > 0 {
		diff, _ := m.Magnitude.CheckedSub(a)
		return Margin{Negative: true, Magnitude: diff}
	}
	diff, _ := a.CheckedSub(m.Magnitude)
	return Margin{Magnitude: diff}
}

// Sub returns m-a, with the same overflow behavior as Add
func (m Margin) Sub(a Amount) Margin {
	return m.Neg().Add(a).Neg()
}

// Winnable reports whether m+outstanding > 0, i.e. whether the margin could
// still end up positive if all outstanding power sided with it
func (m Margin) Winnable(outstanding Amount) bool {
	if !m.Negative {
		return !m.Magnitude.IsZero() || !outstanding.IsZero()
	}
	return outstanding.Cmp(m.Magnitude) > 0
}

func (m Margin) String() string {
	if m.Negative {
		return "-" + m.Magnitude.String()
	}
	return m.Magnitude.String()
}

func (m Margin) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Margin) UnmarshalText(data []byte) error {
	s := string(data)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	a, err := ParseAmount(s)
	if err != nil {
		return err
	}
	if neg {
		*m = NegativeMargin(a)
	} else {
		*m = PositiveMargin(a)
	}
	return nil
}
