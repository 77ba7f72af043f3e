package gateway

import (
	"context"

	"github.com/cyp0633/calgate/store"
	"github.com/samber/mo"
)

// Await runs a completion-style call and blocks for its result. If ctx ends
// first, ctx.Err() is returned; the call itself keeps running.
//
//	res := gateway.Await(ctx, func(done func(mo.Result[[]*store.Event])) {
//		gw.SearchEvents(from, until, nil, done)
//	})
func Await[T any](ctx context.Context, start func(func(mo.Result[T]))) mo.Result[T] {
	ch := make(chan mo.Result[T], 1)
	start(func(r mo.Result[T]) {
		select {
		case ch <- r:
		default:
		}
	})

	select {
	case r := <-ch:
		return r
	case <-ctx.Done():
		return mo.Err[T](ctx.Err())
	}
}

// AwaitAuthorization is the blocking form of RequestAuthorization.
func AwaitAuthorization(ctx context.Context, gw *Gateway, kind store.EntityKind) (bool, error) {
	return Await(ctx, func(done func(mo.Result[bool])) {
		gw.RequestAuthorization(kind, func(granted bool, err error) {
			if err != nil {
				done(mo.Err[bool](err))
				return
			}
			done(mo.Ok(granted))
		})
	}).Get()
}
