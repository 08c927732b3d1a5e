package changefeed

import (
	"sync"

	"github.com/google/uuid"
)

const defaultBuffer = 64

// Broker routes events to the subscriptions of the event's clinic
type Broker struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[*Subscription]struct{}
	buffer int
}

// Subscription is one session's view of its clinic's changes. C is closed
// by Close.
type Subscription struct {
	C <-chan Event

	ch       chan Event
	clinicID uuid.UUID
	broker   *Broker
	once     sync.Once
}

func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broker{
		subs:   make(map[uuid.UUID]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

func (b *Broker) Subscribe(clinicID uuid.UUID) *Subscription {
	ch := make(chan Event, b.buffer)
	sub := &Subscription{C: ch, ch: ch, clinicID: clinicID, broker: b}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[clinicID] == nil {
		b.subs[clinicID] = make(map[*Subscription]struct{})
	}
	b.subs[clinicID][sub] = struct{}{}
	return sub
}

// Publish never blocks. A full subscription drops its oldest event.
func (b *Broker) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[ev.Clinic()] {
		sub.offer(ev)
	}
}

// PublishAll delivers ev to every subscription regardless of clinic
func (b *Broker) PublishAll(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, subs := range b.subs {
		for sub := range subs {
			sub.offer(ev)
		}
	}
}

// SubscriberCount reports the open subscriptions of one clinic
func (b *Broker) SubscriberCount(clinicID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[clinicID])
}

func (b *Broker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subs[sub.clinicID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subs, sub.clinicID)
		}
	}
	close(sub.ch)
}

// offer is called with the broker read lock held, so ch is still open
func (s *Subscription) offer(ev Event) {
	for {
		select {
		case s.ch <- ev:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Close is safe to call more than once
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.remove(s)
	})
}
