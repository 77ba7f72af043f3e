package gateway

import (
	"sync"
	"sync/atomic"

	"github.com/cyp0633/calgate/store"
)

// Observer receives store change notifications relayed by a Gateway.
type Observer interface {
	StoreChanged(gw *Gateway, n store.Notification)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(gw *Gateway, n store.Notification)

func (f ObserverFunc) StoreChanged(gw *Gateway, n store.Notification) {
	f(gw, n)
}

// Subscription is the relay from a store to an Observer. Once closed, no
// further notifications are delivered.
type Subscription struct {
	closed atomic.Bool
	once   sync.Once
	cancel func()
}

func subscribe(g *Gateway, obs Observer) *Subscription {
	sub := &Subscription{}
	sub.cancel = g.store.Subscribe(func(n store.Notification) {
		if sub.closed.Load() {
			return
		}
		g.logger.Debug("relaying store change", "kind", n.Kind, "change", n.Change, "uid", n.UID)
		obs.StoreChanged(g, n)
	})
	return sub
}

// Active reports whether notifications are still being relayed.
func (s *Subscription) Active() bool {
	return s != nil && !s.closed.Load()
}

// Close stops the relay. It is safe to call more than once and on a nil Subscription.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.closed.Store(true)
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}
