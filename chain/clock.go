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
	"sync"
	"time"
)

// Clock supplies the current block to operations that depend on logical time
type Clock interface {
	Current() Block
}

// TimeClock derives block heights from wall clock time, producing one block
// per interval since genesis
type TimeClock struct {
	genesis  time.Time
	now      func() time.Time
	interval time.Duration
}

type TimeClockOptionFunc func(*TimeClock)

// WithNowFunc overrides the source of the current time
func WithNowFunc(now func() time.Time) TimeClockOptionFunc {
	return func(c *TimeClock) {
		c.now = now
	}
}

func NewTimeClock(
	genesis time.Time,
	interval time.Duration,
	opts ...TimeClockOptionFunc,
) *TimeClock {
	c := &TimeClock{
		genesis:  genesis,
		interval: interval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.interval <= 0 {
		c.interval = time.Second
	}
	return c
}

func (c *TimeClock) Current() Block {
	now := c.now()
	var height uint64
	if now.After(c.genesis) {
		height = uint64(now.Sub(c.genesis) / c.interval) //nolint:gosec
	}
	return Block{Height: height, Time: now}
}

// ManualClock only moves when told to
type ManualClock struct {
	block Block
	mu    sync.RWMutex
}

func NewManualClock(block Block) *ManualClock {
	return &ManualClock{block: block}
}

func (c *ManualClock) Current() Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.block
}

func (c *ManualClock) Set(block Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block = block
}

// Advance moves the clock forward by the given number of blocks and time span
func (c *ManualClock) Advance(heights uint64, d time.Duration) Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.block.Height += heights
	c.block.Time = c.block.Time.Add(d)
	return c.block
}
