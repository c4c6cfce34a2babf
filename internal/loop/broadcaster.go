package loop

import (
	"sync"

	"trainmystery/internal/game"
)

// Broadcaster fans session views out to subscribers of an environment
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string][]chan game.View
	latest      map[string]game.View
}

// NewBroadcaster creates an empty broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string][]chan game.View),
		latest:      make(map[string]game.View),
	}
}

// Subscribe returns a channel receiving every view published for env
func (b *Broadcaster) Subscribe(env string) chan game.View {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan game.View, 10)
	b.subscribers[env] = append(b.subscribers[env], ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel
func (b *Broadcaster) Unsubscribe(env string, ch chan game.View) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[env]
	for i, sub := range subs {
		if sub == ch {
			b.subscribers[env] = append(subs[:i], subs[i+1:]...)
			close(ch)
			break
		}
	}
}

// Publish stores the view as latest and offers it to every subscriber.
// Slow subscribers miss views instead of stalling the loop.
func (b *Broadcaster) Publish(v game.View) {
	b.mu.Lock()
	b.latest[v.Session] = v
	b.mu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[v.Session] {
		select {
		case ch <- v:
		default:
			// Channel full, skip
		}
	}
}

// Latest returns the most recently published view for env
func (b *Broadcaster) Latest(env string) (game.View, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.latest[env]
	return v, ok
}

// Subscribers returns the number of subscribers for env
func (b *Broadcaster) Subscribers(env string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[env])
}
