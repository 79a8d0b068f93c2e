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
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
)

// AmountBits is the width of the widest voting power value we accept
const AmountBits = 128

var (
	ErrOverflow      = errors.New("amount overflow")
	ErrUnderflow     = errors.New("amount underflow")
	ErrInvalidAmount = errors.New("invalid amount")
)

var maxAmount = func() uint256.Int {
	var v uint256.Int
	v.Lsh(uint256.NewInt(1), AmountBits)
	v.SubUint64(&v, 1)
	return v
}()

// Amount is an unsigned voting power value capped at 2^128-1. All arithmetic is
// checked and never wraps.
//
//nolint:recvcheck
type Amount struct {
	v uint256.Int
}

// NewAmount returns an Amount holding v
func NewAmount(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// MaxAmount returns the largest representable Amount
func MaxAmount() Amount {
	return Amount{v: maxAmount}
}

// ParseAmount parses a base-10 string
func ParseAmount(s string) (Amount, error) {
	var a Amount
	if err := a.v.SetFromDecimal(s); err != nil {
		return Amount{}, fmt.Errorf("%w: %q: %w", ErrInvalidAmount, s, err)
	}
	if a.v.BitLen() > AmountBits {
		return Amount{}, fmt.Errorf("%w: %q exceeds %d bits", ErrOverflow, s, AmountBits)
	}
	return a, nil
}

// AmountFromBig converts a non-negative big.Int
func AmountFromBig(b *big.Int) (Amount, error) {
	if b == nil {
		return Amount{}, nil
	}
	if b.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: negative value %s", ErrInvalidAmount, b)
	}
	if b.BitLen() > AmountBits {
		return Amount{}, fmt.Errorf("%w: %s exceeds %d bits", ErrOverflow, b, AmountBits)
	}
	v, _ := uint256.FromBig(b)
	return Amount{v: *v}, nil
}

func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Cmp returns -1, 0 or +1 depending on whether a is less than, equal to or greater than b
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

func (a Amount) Equal(b Amount) bool {
	return a.v.Eq(&b.v)
}

// CheckedAdd returns a+b or ErrOverflow if the result does not fit in AmountBits
func (a Amount) CheckedAdd(b Amount) (Amount, error) {
	var r Amount
	if _, overflow := r.v.AddOverflow(&a.v, &b.v); overflow ||
		r.v.BitLen() > AmountBits {
		return Amount{}, fmt.Errorf("%w: %s + %s", ErrOverflow, a, b)
	}
	return r, nil
}

// CheckedSub returns a-b or ErrUnderflow if b is larger than a
func (a Amount) CheckedSub(b Amount) (Amount, error) {
	var r Amount
	if _, underflow := r.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, fmt.Errorf("%w: %s - %s", ErrUnderflow, a, b)
	}
	return r, nil
}

// Uint256 returns a copy of the underlying 256-bit value
func (a Amount) Uint256() *uint256.Int {
	return a.v.Clone()
}

// Big returns the value as a big.Int
func (a Amount) Big() *big.Int {
	return a.v.ToBig()
}

func (a Amount) String() string {
	return a.v.Dec()
}

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalText(data []byte) error {
	tmp, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}

// MarshalJSON encodes the amount as a decimal string, since JSON numbers lose
// precision above 2^53 in most decoders
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts both a decimal string and a bare JSON number
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err2 := json.Unmarshal(data, &n); err2 != nil {
			return fmt.Errorf("%w: %s", ErrInvalidAmount, string(data))
		}
		s = n.String()
	}
	return a.UnmarshalText([]byte(s))
}

func (a Amount) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(a.v.ToBig())
}

func (a *Amount) UnmarshalCBOR(data []byte) error {
	var b big.Int
	if err := cbor.Unmarshal(data, &b); err != nil {
		return err
	}
	tmp, err := AmountFromBig(&b)
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}

func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

func (a *Amount) Scan(val any) error {
	switch v := val.(type) {
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("%w: negative value %d", ErrInvalidAmount, v)
		}
		*a = NewAmount(uint64(v))
		return nil
	case nil:
		*a = Amount{}
		return nil
	default:
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
}
