package events

import (
	"log/slog"
	"sync"
)

// subscriberBuffer is the per-subscriber delivery channel capacity. Agent
// status transitions are low-frequency; a small buffer absorbs the burst
// from a full probe cycle flipping several agents at once.
const subscriberBuffer = 16

// Broker is an in-process publish/subscribe hub. Publishers hand it
// pre-marshaled event payloads; each subscriber receives them on its own
// buffered channel. Delivery is best-effort: a subscriber that falls
// behind has events dropped rather than blocking the publisher.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan []byte // channel → subscriber id → delivery chan
	nextID int
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[int]chan []byte)}
}

// Subscribe registers a subscriber for a channel and returns its delivery
// channel plus a cancel func. Cancel removes the subscription and closes
// the delivery channel; it is safe to call more than once.
func (b *Broker) Subscribe(channel string) (<-chan []byte, func()) {
	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[int]chan []byte)
	}
	id := b.nextID
	b.nextID++
	ch := make(chan []byte, subscriberBuffer)
	b.subs[channel][id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs, ok := b.subs[channel]
			if !ok {
				return
			}
			delete(subs, id)
			if len(subs) == 0 {
				delete(b.subs, channel)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers a payload to every subscriber of the channel. Sends are
// non-blocking: a full delivery buffer drops the event with a warning
// instead of stalling the caller.
func (b *Broker) Publish(channel string, payload []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
			slog.Warn("Dropping event for slow subscriber",
				"channel", channel, "subscriber_id", id)
		}
	}
}

// SubscriberCount returns the number of subscribers for a channel.
func (b *Broker) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}
