package events

import (
	"sync"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/interfaces"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
)

// subscriberBuffer bounds the per-subscription queue. A subscriber that falls
// further behind than this loses events rather than stalling the publisher.
const subscriberBuffer = 64

// Bus is an in-process publish/subscribe channel keyed by job ID. Delivery is
// best-effort and at-most-once per connected subscriber: a disconnected
// subscriber simply misses events, and a slow one drops them once its buffer
// fills. Publishing with zero subscribers is a no-op. Each subscription is
// drained by a single goroutine, so one subscriber observes a job's events in
// publish order; no ordering holds between different subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[int]*subscription
	nextID int
	logger logging.Logger
}

var _ interfaces.Bus = (*Bus)(nil)

// NewBus creates an empty bus.
func NewBus(logger logging.Logger) *Bus {
	return &Bus{
		subs:   make(map[string]map[int]*subscription),
		logger: logger.With(logging.Field{Key: "component", Value: "event-bus"}),
	}
}

// Publish fans ev out to all current subscribers of jobID. Events with an
// unknown type are rejected and logged rather than relayed. Sends never
// block: a full subscriber buffer drops the event for that subscriber only.
func (b *Bus) Publish(jobID string, ev model.AgentEvent) {
	if !ev.Type.Valid() {
		b.logger.Warn("dropping event with unknown type",
			logging.Field{Key: "job_id", Value: jobID},
			logging.Field{Key: "type", Value: string(ev.Type)})
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[jobID] {
		select {
		case sub.ch <- ev:
		default:
			b.logger.Warn("subscriber buffer full, dropping event",
				logging.Field{Key: "job_id", Value: jobID},
				logging.Field{Key: "type", Value: string(ev.Type)})
		}
	}
}

// Subscribe registers handler for jobID events and returns the capability to
// unregister it. The handler runs on a dedicated goroutine that drains the
// subscription's queue in order.
func (b *Bus) Subscribe(jobID string, handler func(model.AgentEvent)) interfaces.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[int]*subscription)
	}
	id := b.nextID
	b.nextID++

	sub := &subscription{
		bus:   b,
		jobID: jobID,
		id:    id,
		ch:    make(chan model.AgentEvent, subscriberBuffer),
	}
	b.subs[jobID][id] = sub

	go b.drain(sub, handler)
	return sub
}

// drain feeds queued events to one handler, recovering panics so a failing
// handler cannot kill its subscription.
func (b *Bus) drain(sub *subscription, handler func(model.AgentEvent)) {
	for ev := range sub.ch {
		b.deliver(sub.jobID, handler, ev)
	}
}

func (b *Bus) deliver(jobID string, h func(model.AgentEvent), ev model.AgentEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				logging.Field{Key: "job_id", Value: jobID},
				logging.Field{Key: "panic", Value: r})
		}
	}()
	h(ev)
}

type subscription struct {
	bus   *Bus
	jobID string
	id    int
	ch    chan model.AgentEvent
	once  sync.Once
}

// Unsubscribe removes the handler and stops its drain goroutine once queued
// events are processed. It is idempotent and does not affect other
// subscribers.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		if m := s.bus.subs[s.jobID]; m != nil {
			delete(m, s.id)
			if len(m) == 0 {
				delete(s.bus.subs, s.jobID)
			}
		}
		close(s.ch)
	})
}