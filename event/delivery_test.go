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

package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSubscriber struct {
	err    error
	panics bool
	closed bool
}

func (m *mockSubscriber) Deliver(Event) error {
	if m.panics {
		panic("deliver panic")
	}
	return m.err
}

func (m *mockSubscriber) Close() {
	m.closed = true
}

func TestDeliverFailureUnregisters(t *testing.T) {
	eb := NewEventBus(nil, nil)
	defer eb.Stop()
	failing := &mockSubscriber{err: errors.New("deliver failed")}
	panicking := &mockSubscriber{panics: true}
	full := &mockSubscriber{err: ErrSubscriberFull}
	failingId := eb.RegisterSubscriber("test.fail", failing)
	panickingId := eb.RegisterSubscriber("test.fail", panicking)
	fullId := eb.RegisterSubscriber("test.fail", full)
	require.NotZero(t, failingId)

	eb.Publish("test.fail", NewEvent("test.fail", "x"))

	eb.mu.RLock()
	subs := eb.subscribers["test.fail"]
	_, failingExists := subs[failingId]
	_, panickingExists := subs[panickingId]
	_, fullExists := subs[fullId]
	eb.mu.RUnlock()
	assert.False(t, failingExists)
	assert.False(t, panickingExists)
	assert.True(t, fullExists, "a full subscriber only drops the event")
	assert.True(t, failing.closed)
	assert.True(t, panicking.closed)
	assert.False(t, full.closed)
}

func TestChannelSubscriberDeliverNonBlocking(t *testing.T) {
	const bufferSize = 5
	sub := newChannelSubscriber(bufferSize)
	for i := range bufferSize {
		require.NoError(t, sub.Deliver(NewEvent("test", i)))
	}
	require.ErrorIs(t, sub.Deliver(NewEvent("test", "overflow")), ErrSubscriberFull)
	sub.Close()
	sub.Close()
	// Deliver after close drops silently
	require.NoError(t, sub.Deliver(NewEvent("test", "late")))
	count := 0
	for range sub.ch {
		count++
	}
	assert.Equal(t, bufferSize, count)
}
