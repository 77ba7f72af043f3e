package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Broadcaster is a subscriber registry stores can embed to implement Subscribe.
// The zero value is ready to use.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]func(Notification)
}

// Subscribe registers fn. The returned cancel func is idempotent.
func (b *Broadcaster) Subscribe(fn func(Notification)) (cancel func()) {
	id := uuid.New()
	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[uuid.UUID]func(Notification))
	}
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish stamps n with an ID and time when missing and delivers it to every
// subscriber on the calling goroutine. It must not be called with store locks held.
func (b *Broadcaster) Publish(n Notification) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.At.IsZero() {
		n.At = time.Now()
	}

	b.mu.RLock()
	fns := make([]func(Notification), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(n)
	}
}

// Subscribers returns the number of registered subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
