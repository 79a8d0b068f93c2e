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

package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

var (
	ErrInvalidDuration      = errors.New("invalid duration")
	ErrDurationUnitMismatch = errors.New("durations use different units")
)

// Block identifies the point in logical time at which an operation happens
type Block struct {
	Height uint64    `json:"height"`
	Time   time.Time `json:"time"`
}

func (b Block) String() string {
	return fmt.Sprintf("height %d at %s", b.Height, b.Time.UTC().Format(time.RFC3339))
}

type ExpirationKind uint8

const (
	ExpiresNever ExpirationKind = iota
	ExpiresAtHeight
	ExpiresAtTime
)

// Expiration is a point in logical time. The zero value never expires.
//
//nolint:recvcheck
type Expiration struct {
	Kind   ExpirationKind
	Height uint64
	Time   time.Time
}

func Never() Expiration {
	return Expiration{}
}

func AtHeight(height uint64) Expiration {
	return Expiration{Kind: ExpiresAtHeight, Height: height}
}

func AtTime(t time.Time) Expiration {
	return Expiration{Kind: ExpiresAtTime, Time: t}
}

// IsExpired reports whether the block is at or past the expiration
func (e Expiration) IsExpired(block Block) bool {
	switch e.Kind {
	case ExpiresAtHeight:
		return block.Height >= e.Height
	case ExpiresAtTime:
		return !block.Time.Before(e.Time)
	default:
		return false
	}
}

func (e Expiration) String() string {
	switch e.Kind {
	case ExpiresAtHeight:
		return fmt.Sprintf("at height %d", e.Height)
	case ExpiresAtTime:
		return "at time " + e.Time.UTC().Format(time.RFC3339Nano)
	default:
		return "never"
	}
}

type expirationCbor struct {
	_        struct{} `cbor:",toarray"`
	Kind     ExpirationKind
	Height   uint64
	UnixNano int64
}

func (e Expiration) MarshalCBOR() ([]byte, error) {
	tmp := expirationCbor{Kind: e.Kind, Height: e.Height}
	if e.Kind == ExpiresAtTime {
		tmp.UnixNano = e.Time.UnixNano()
	}
	return cbor.Marshal(tmp)
}

func (e *Expiration) UnmarshalCBOR(data []byte) error {
	var tmp expirationCbor
	if err := cbor.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*e = Expiration{Kind: tmp.Kind, Height: tmp.Height}
	if tmp.Kind == ExpiresAtTime {
		e.Time = time.Unix(0, tmp.UnixNano).UTC()
	}
	return nil
}

type expirationJson struct {
	Kind   string     `json:"kind"`
	Height *uint64    `json:"height,omitempty"`
	Time   *time.Time `json:"time,omitempty"`
}

func (e Expiration) MarshalJSON() ([]byte, error) {
	var tmp expirationJson
	switch e.Kind {
	case ExpiresAtHeight:
		h := e.Height
		tmp = expirationJson{Kind: "at_height", Height: &h}
	case ExpiresAtTime:
		t := e.Time.UTC()
		tmp = expirationJson{Kind: "at_time", Time: &t}
	default:
		tmp = expirationJson{Kind: "never"}
	}
	return json.Marshal(tmp)
}

func (e *Expiration) UnmarshalJSON(data []byte) error {
	var tmp expirationJson
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	switch tmp.Kind {
	case "at_height":
		if tmp.Height == nil {
			return errors.New("expiration at_height requires height")
		}
		*e = AtHeight(*tmp.Height)
	case "at_time":
		if tmp.Time == nil {
			return errors.New("expiration at_time requires time")
		}
		*e = AtTime(*tmp.Time)
	case "never", "":
		*e = Never()
	default:
		return fmt.Errorf("unknown expiration kind: %q", tmp.Kind)
	}
	return nil
}

// Duration is a span of logical time, measured either in blocks or in wall
// clock time. Exactly one of the fields is set.
//
//nolint:recvcheck
type Duration struct {
	Height uint64        `yaml:"height,omitempty"`
	Time   time.Duration `yaml:"time,omitempty"`
}

func Heights(n uint64) Duration {
	return Duration{Height: n}
}

func Period(d time.Duration) Duration {
	return Duration{Time: d}
}

func (d Duration) IsHeight() bool {
	return d.Height > 0 && d.Time == 0
}

func (d Duration) IsTime() bool {
	return d.Time > 0 && d.Height == 0
}

// Validate checks that exactly one unit is in use and the span is positive
func (d Duration) Validate() error {
	if d.IsHeight() || d.IsTime() {
		return nil
	}
	return fmt.Errorf(
		"%w: exactly one of height or time must be positive (height=%d, time=%s)",
		ErrInvalidDuration,
		d.Height,
		d.Time,
	)
}

// After returns the expiration that lies this duration after the block
func (d Duration) After(block Block) Expiration {
	if d.IsTime() {
		return AtTime(block.Time.Add(d.Time))
	}
	return AtHeight(block.Height + d.Height)
}

// Compare returns -1, 0 or +1 comparing two durations of the same unit
func (d Duration) Compare(o Duration) (int, error) {
	switch {
	case d.IsHeight() && o.IsHeight():
		switch {
		case d.Height < o.Height:
			return -1, nil
		case d.Height > o.Height:
			return 1, nil
		}
		return 0, nil
	case d.IsTime() && o.IsTime():
		switch {
		case d.Time < o.Time:
			return -1, nil
		case d.Time > o.Time:
			return 1, nil
		}
		return 0, nil
	default:
		return 0, ErrDurationUnitMismatch
	}
}

func (d Duration) String() string {
	if d.IsTime() {
		return d.Time.String()
	}
	return fmt.Sprintf("%d blocks", d.Height)
}

// ParseDuration parses a block count such as "100 blocks" or "100b", or a
// wall clock duration such as "168h"
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	for _, suffix := range []string{"blocks", "block", "b"} {
		num, ok := strings.CutSuffix(s, suffix)
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSpace(num), 10, 64)
		if err != nil {
			break
		}
		d := Heights(n)
		if err := d.Validate(); err != nil {
			return Duration{}, err
		}
		return d, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return Duration{}, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	d := Period(v)
	if err := d.Validate(); err != nil {
		return Duration{}, err
	}
	return d, nil
}

type durationJson struct {
	Height uint64 `json:"height,omitempty"`
	Time   string `json:"time,omitempty"`
}

func (d Duration) MarshalJSON() ([]byte, error) {
	tmp := durationJson{Height: d.Height}
	if d.Time > 0 {
		tmp.Time = d.Time.String()
	}
	return json.Marshal(tmp)
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var tmp durationJson
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*d = Duration{Height: tmp.Height}
	if tmp.Time != "" {
		v, err := time.ParseDuration(tmp.Time)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidDuration, err)
		}
		d.Time = v
	}
	return nil
}

type durationCbor struct {
	_      struct{} `cbor:",toarray"`
	Height uint64
	Time   int64
}

func (d Duration) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(durationCbor{Height: d.Height, Time: int64(d.Time)})
}

func (d *Duration) UnmarshalCBOR(data []byte) error {
	var tmp durationCbor
	if err := cbor.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*d = Duration{Height: tmp.Height, Time: time.Duration(tmp.Time)}
	return nil
}
