package gateway

import (
	"fmt"
	"sync/atomic"

	"github.com/cyp0633/calgate/store"
	"github.com/samber/mo"
)

// dispatch checks authorization for kind and, only when authorized, runs call.
// completion receives exactly one result whatever path is taken.
func dispatch[T any](g *Gateway, op string, kind store.EntityKind, call func(done func(T, error)), completion func(mo.Result[T])) {
	var delivered, completionPanicked atomic.Bool
	deliver := func(r mo.Result[T]) {
		if !delivered.CompareAndSwap(false, true) {
			g.logger.Debug("dropped repeated store callback", "op", op, "kind", kind)
			return
		}
		if completion == nil {
			return
		}
		returned := false
		defer func() {
			if !returned {
				completionPanicked.Store(true)
			}
		}()
		completion(r)
		returned = true
	}

	switch status := g.store.AuthorizationStatus(kind); status {
	case store.StatusAuthorized:
	case store.StatusNotDetermined:
		g.logger.Debug("authorization pending", "op", op, "kind", kind)
		deliver(mo.Err[T](AuthorizationPending(kind)))
		return
	default:
		g.logger.Debug("not authorized", "op", op, "kind", kind, "status", status)
		deliver(mo.Err[T](NotAuthorized(kind)))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			// Panics raised by the caller's completion are not ours to handle
			if completionPanicked.Load() {
				panic(r)
			}
			g.logger.Debug("store call panicked", "op", op, "kind", kind, "panic", r)
			// No-op when the store already reported before panicking
			deliver(mo.Err[T](Unhandled(fmt.Errorf("%w: %v", ErrStorePanic, r))))
		}
	}()

	call(func(v T, err error) {
		if err != nil {
			g.logger.Debug("store call failed", "op", op, "kind", kind, "error", err)
			deliver(mo.Err[T](Unhandled(err)))
			return
		}
		deliver(mo.Ok(v))
	})
}
