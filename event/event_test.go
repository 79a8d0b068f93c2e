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

package event_test

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/condorcet/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testEvtType event.EventType = "test.event"

func receive(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "event channel closed unexpectedly")
		return evt
	case <-time.After(time.Second):
		require.FailNow(t, "timeout waiting for event")
	}
	return event.Event{}
}

func TestEventBusSingleSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 999))
	evt := receive(t, subCh)
	assert.Equal(t, testEvtType, evt.Type)
	assert.Equal(t, 999, evt.Data)
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, sub1Ch := eb.Subscribe(testEvtType)
	_, sub2Ch := eb.Subscribe(testEvtType)
	_, otherCh := eb.Subscribe("other.event")
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "x"))
	assert.Equal(t, "x", receive(t, sub1Ch).Data)
	assert.Equal(t, "x", receive(t, sub2Ch).Data)
	select {
	case <-otherCh:
		t.Fatal("received event of another type")
	default:
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	subId, subCh := eb.Subscribe(testEvtType)
	eb.Unsubscribe(testEvtType, subId)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1))
	select {
	case _, ok := <-subCh:
		assert.False(t, ok, "received unexpected event")
	case <-time.After(time.Second):
		t.Fatal("subscriber channel was not closed after Unsubscribe")
	}
}

func TestSubscribeFuncRecoversPanics(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	var calls atomic.Int32
	eb.SubscribeFunc(testEvtType, func(evt event.Event) {
		calls.Add(1)
		if evt.Data == "panic" {
			panic("handler failure")
		}
	})
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "panic"))
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "ok"))
	require.Eventually(t, func() bool {
		return calls.Load() == 2
	}, time.Second, 5*time.Millisecond)
	eb.Stop()
}

func TestPublishAsync(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	var got atomic.Value
	eb.SubscribeFunc(testEvtType, func(evt event.Event) {
		got.Store(evt.Data)
	})
	require.True(t, eb.PublishAsync(testEvtType, event.NewEvent(testEvtType, 42)))
	require.Eventually(t, func() bool {
		return got.Load() == 42
	}, time.Second, 5*time.Millisecond)
	eb.Stop()
	assert.False(t, eb.PublishAsync(testEvtType, event.NewEvent(testEvtType, 43)))
	// Stop is idempotent
	eb.Stop()
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	defer goleak.VerifyNone(t)
	reg := prometheus.NewRegistry()
	eb := event.NewEventBus(reg, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	for i := range event.EventQueueSize + 3 {
		eb.Publish(testEvtType, event.NewEvent(testEvtType, i))
	}
	assert.Len(t, subCh, event.EventQueueSize)
	// The subscriber stays registered after dropping events
	assert.Equal(t, 0, receive(t, subCh).Data)
	expected := `
# HELP event_bus_delivery_errors_total failed or dropped event deliveries by event type and kind
# TYPE event_bus_delivery_errors_total counter
event_bus_delivery_errors_total{kind="dropped",type="test.event"} 3
`
	require.NoError(
		t,
		testutil.GatherAndCompare(
			reg,
			strings.NewReader(expected),
			"event_bus_delivery_errors_total",
		),
	)
}

func TestEventBusSubscribeProposal(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, ch := eb.SubscribeProposal(event.VoteCastEventType, 7)
	for _, id := range []uint64{3, 7, 9} {
		eb.Publish(
			event.VoteCastEventType,
			event.NewEvent(event.VoteCastEventType, event.VoteCastEvent{ProposalID: id, Voter: "alice"}),
		)
	}
	evt := receive(t, ch)
	vote, ok := evt.Data.(event.VoteCastEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(7), vote.ProposalID)
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event for another proposal: %+v", evt.Data)
	default:
	}
	for _, evtType := range event.ProposalEventTypes {
		assert.True(t, strings.HasPrefix(string(evtType), "governance."))
	}
}
