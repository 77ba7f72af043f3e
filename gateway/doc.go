// Package gateway is an authorization-gated access layer over a store.Store.
//
// Every search, save and delete first consults the store's authorization
// status for the entity kind involved:
//
//   - Authorized: the store is called and its outcome delivered as a mo.Result.
//   - NotDetermined: the result is an AuthorizationPending error.
//   - Restricted, Denied or anything else: the result is a NotAuthorized error.
//
// Store failures arrive as Unhandled errors. Completions are called exactly
// once, synchronously for every operation except SearchReminders, whose
// completion runs wherever the store delivers its reminder fetch.
//
// A Gateway created with WithObserver relays store change notifications to
// the observer until Close is called.
package gateway
