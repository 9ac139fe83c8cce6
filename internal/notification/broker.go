package notification

import (
	"context"
	"sync"
)

// subscriberBuffer is the number of messages queued per subscriber before
// further messages to it are dropped.
const subscriberBuffer = 16

// Broker fans notifications out to UI subscribers. A subscriber that does
// not keep up misses messages instead of blocking the sender.
type Broker struct {
	mu      sync.RWMutex
	clients map[chan Message]struct{}
}

// NewBroker returns a broker without subscribers.
func NewBroker() *Broker {
	return &Broker{clients: make(map[chan Message]struct{})}
}

// Subscribe registers a new subscriber. The returned cancel function
// unregisters it and closes the channel.
func (b *Broker) Subscribe() (<-chan Message, func()) {
	ch := make(chan Message, subscriberBuffer)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.clients, ch)
			close(ch)
		})
	}
}

// Subscribers returns the number of registered subscribers.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Send implements Notifier.
func (b *Broker) Send(_ context.Context, message Message) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- message:
		default:
		}
	}
	return nil
}
