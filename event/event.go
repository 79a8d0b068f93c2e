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
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	EventQueueSize      = 20
	AsyncQueueSize      = 1000
	AsyncWorkerPoolSize = 4
)

// ErrSubscriberFull is returned by a subscriber that cannot take another
// event without blocking. The event is dropped for that subscriber only.
var ErrSubscriberFull = errors.New("subscriber queue full")

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

// Subscriber receives events from the bus. Deliver must not block and Close
// must be idempotent.
type Subscriber interface {
	Deliver(Event) error
	Close()
}

type queuedEvent struct {
	eventType EventType
	event     Event
}

type subscription struct {
	id  EventSubscriberId
	sub Subscriber
}

type EventBus struct {
	logger      *slog.Logger
	metrics     *eventMetrics
	mu          sync.RWMutex
	subscribers map[EventType]map[EventSubscriberId]Subscriber
	lastSubId   EventSubscriberId

	queue     chan queuedEvent
	workerWg  sync.WaitGroup
	handlerWg sync.WaitGroup
	stateMu   sync.RWMutex
	stopCh    chan struct{}
	stopped   bool
}

// NewEventBus returns a bus with its async delivery workers running
func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		logger:      logger.With("component", "event"),
		subscribers: make(map[EventType]map[EventSubscriberId]Subscriber),
		queue:       make(chan queuedEvent, AsyncQueueSize),
		stopCh:      make(chan struct{}),
	}
	if promRegistry != nil {
		e.metrics = newEventMetrics(promRegistry)
	}
	e.workerWg.Add(AsyncWorkerPoolSize)
	for range AsyncWorkerPoolSize {
		go e.worker()
	}
	return e
}

func (e *EventBus) worker() {
	defer e.workerWg.Done()
	for {
		select {
		case <-e.stopCh:
			return
		case qe := <-e.queue:
			e.Publish(qe.eventType, qe.event)
		}
	}
}

// RegisterSubscriber adds sub for eventType and returns its id
func (e *EventBus) RegisterSubscriber(
	eventType EventType,
	sub Subscriber,
) EventSubscriberId {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSubId++
	subs, ok := e.subscribers[eventType]
	if !ok {
		subs = make(map[EventSubscriberId]Subscriber)
		e.subscribers[eventType] = subs
	}
	subs[e.lastSubId] = sub
	e.countSubscriber(eventType, sub, 1)
	return e.lastSubId
}

// Subscribe returns a buffered channel receiving events of eventType. Events
// are dropped for this subscriber while the channel is full.
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	sub := newChannelSubscriber(EventQueueSize)
	return e.RegisterSubscriber(eventType, sub), sub.ch
}

// SubscribeProposal is like Subscribe, but only passes events that concern
// the given proposal
func (e *EventBus) SubscribeProposal(
	eventType EventType,
	proposalID uint64,
) (EventSubscriberId, <-chan Event) {
	sub := newChannelSubscriber(EventQueueSize)
	id := e.RegisterSubscriber(
		eventType,
		&proposalFilter{proposalID: proposalID, Subscriber: sub},
	)
	return id, sub.ch
}

// SubscribeFunc calls handlerFunc for each event of eventType from a
// dedicated goroutine. A panicking handler is logged and keeps receiving
// later events.
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	subId, evtCh := e.Subscribe(eventType)
	e.handlerWg.Add(1)
	go func() {
		defer e.handlerWg.Done()
		for evt := range evtCh {
			e.callHandler(handlerFunc, evt)
		}
	}()
	return subId
}

func (e *EventBus) callHandler(handlerFunc EventHandlerFunc, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error(
				"event handler panic",
				"type", evt.Type,
				"panic", r,
			)
			e.countDeliveryError(evt.Type, "handler-panic")
		}
	}()
	handlerFunc(evt)
}

// Unsubscribe removes and closes a subscriber
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	sub, ok := e.subscribers[eventType][subId]
	if ok {
		delete(e.subscribers[eventType], subId)
		if len(e.subscribers[eventType]) == 0 {
			delete(e.subscribers, eventType)
		}
		e.countSubscriber(eventType, sub, -1)
	}
	e.mu.Unlock()
	if ok {
		sub.Close()
	}
}

// Publish delivers evt to every subscriber of eventType before returning.
// A subscriber whose delivery fails is removed; a full one only misses evt.
func (e *EventBus) Publish(eventType EventType, evt Event) {
	for _, s := range e.snapshot(eventType) {
		err := deliver(s.sub, evt)
		if err == nil {
			continue
		}
		kind := "dropped"
		if !errors.Is(err, ErrSubscriberFull) {
			kind = subscriberKind(s.sub)
			e.Unsubscribe(eventType, s.id)
		}
		e.countDeliveryError(eventType, kind)
		e.logger.Debug(
			"event delivery error",
			"type", eventType,
			"subscriber", s.id,
			"error", err,
		)
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
}

func (e *EventBus) snapshot(eventType EventType) []subscription {
	e.mu.RLock()
	defer e.mu.RUnlock()
	subs := e.subscribers[eventType]
	ret := make([]subscription, 0, len(subs))
	for id, sub := range subs {
		ret = append(ret, subscription{id: id, sub: sub})
	}
	return ret
}

func deliver(sub Subscriber, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber deliver panic: %v", r)
		}
	}()
	return sub.Deliver(evt)
}

// PublishAsync queues evt for delivery by the worker pool. It returns false
// when the bus is stopped or the queue is full.
func (e *EventBus) PublishAsync(eventType EventType, evt Event) bool {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	if e.stopped {
		return false
	}
	select {
	case e.queue <- queuedEvent{eventType: eventType, event: evt}:
		return true
	default:
		e.logger.Warn(
			"async event queue full, dropping event",
			"type", eventType,
		)
		e.countDeliveryError(eventType, "async-dropped")
		return false
	}
}

// Stop halts the workers, closes every subscriber and waits for the
// SubscribeFunc handlers to drain. It is safe to call more than once.
func (e *EventBus) Stop() {
	e.stateMu.Lock()
	if e.stopped {
		e.stateMu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.stateMu.Unlock()
	e.workerWg.Wait()

	e.mu.Lock()
	all := e.subscribers
	e.subscribers = make(map[EventType]map[EventSubscriberId]Subscriber)
	e.mu.Unlock()
	for _, subs := range all {
		for _, sub := range subs {
			sub.Close()
		}
	}
	e.handlerWg.Wait()
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}
}

func (e *EventBus) countSubscriber(eventType EventType, sub Subscriber, delta float64) {
	if e.metrics == nil {
		return
	}
	e.metrics.subscribers.WithLabelValues(string(eventType), subscriberKind(sub)).Add(delta)
}

func (e *EventBus) countDeliveryError(eventType EventType, kind string) {
	if e.metrics == nil {
		return
	}
	e.metrics.deliveryErrors.WithLabelValues(string(eventType), kind).Inc()
}

// channelSubscriber backs Subscribe. The read lock is held across the send
// so Close cannot close the channel underneath it.
type channelSubscriber struct {
	ch     chan Event
	mu     sync.RWMutex
	closed bool
}

func newChannelSubscriber(buffer int) *channelSubscriber {
	return &channelSubscriber{ch: make(chan Event, buffer)}
}

func (c *channelSubscriber) Deliver(evt Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil
	}
	select {
	case c.ch <- evt:
		return nil
	default:
		return ErrSubscriberFull
	}
}

func (c *channelSubscriber) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

type proposalFilter struct {
	Subscriber
	proposalID uint64
}

func (f *proposalFilter) Deliver(evt Event) error {
	pe, ok := evt.Data.(ProposalEvent)
	if !ok || pe.Proposal() != f.proposalID {
		return nil
	}
	return f.Subscriber.Deliver(evt)
}

func subscriberKind(sub Subscriber) string {
	switch sub.(type) {
	case *channelSubscriber, *proposalFilter:
		return "in-memory"
	default:
		return "remote"
	}
}
